package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"
)

// RegisterRoutes 注册聊天相關的路由
func RegisterRoutes(r *fiber.App, gateway *app.ChatGatewayHandler, api *app.ChatHTTPHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		gateway.HandleConnection(context.Background(), c)
	}))

	conversations := r.Group("/conversations")
	conversations.Post("/", api.CreateConversation)
	conversations.Get("/", api.ListConversations)
	conversations.Get("/:id", api.GetConversation)
	conversations.Delete("/:id", api.DeleteConversation)
	conversations.Post("/:id/members", api.AddMember)
	conversations.Delete("/:id/members/:userID", api.RemoveMember)
	conversations.Put("/:id/members/:userID/role", api.UpdateRole)
	conversations.Get("/:id/messages", api.ListMessages)

	messages := r.Group("/messages")
	messages.Get("/unread", api.GetUnread)
	messages.Delete("/:id", api.DeleteMessage)

	r.Get("/users/:id/status", api.GetUserStatus)
}
