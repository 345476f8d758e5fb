package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
)

// ChatHTTPHandler REST surface for conversation management and history.
// Real-time traffic goes through the websocket, this covers everything else.
type ChatHTTPHandler struct {
	convUC     *ConversationUseCase
	messageUC  *SendMessageUseCase
	presenceUC *PresenceUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(convUC *ConversationUseCase, messageUC *SendMessageUseCase, presenceUC *PresenceUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{convUC: convUC, messageUC: messageUC, presenceUC: presenceUC}
}

func userID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok || id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyMember):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type createConversationReq struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

// CreateConversation POST /conversations
func (h *ChatHTTPHandler) CreateConversation(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	var req createConversationReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	conv, err := h.convUC.Create(c.Context(), uid, req.Name, domain.ConversationType(req.Type), req.Description, req.MemberIDs)
	if err != nil {
		logger.Log.Errorf("create conversation error:", err)
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusCreated).JSON(conv)
}

// ListConversations GET /conversations
func (h *ChatHTTPHandler) ListConversations(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	summaries, err := h.convUC.Summaries(c.Context(), uid)
	if err != nil {
		logger.Log.Errorf("list conversations error:", err)
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(summaries)
}

// GetConversation GET /conversations/:id
func (h *ChatHTTPHandler) GetConversation(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	summary, err := h.convUC.Get(c.Context(), c.Params("id"), uid)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(summary)
}

type memberReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember POST /conversations/:id/members
func (h *ChatHTTPHandler) AddMember(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	var req memberReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	//只有active member可以加人
	ok, err := h.convUC.membershipRepo.IsActiveMember(c.Context(), uid, c.Params("id"))
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": domain.ErrNotMember.Error()})
	}

	if err := h.convUC.AddMember(c.Context(), c.Params("id"), req.UserID, domain.ConversationRole(req.Role)); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"msg": "member added"})
}

// RemoveMember DELETE /conversations/:id/members/:userID
func (h *ChatHTTPHandler) RemoveMember(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	target := c.Params("userID")
	//自己離開,或owner踢人
	if target != uid {
		m, err := h.convUC.membershipRepo.FindMembership(c.Context(), c.Params("id"), uid)
		if err != nil || !m.IsActive || m.Role != domain.RoleOwner {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": domain.ErrNotMember.Error()})
		}
	}

	if err := h.convUC.RemoveMember(c.Context(), c.Params("id"), target); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"msg": "member removed"})
}

// UpdateRole PUT /conversations/:id/members/:userID/role
func (h *ChatHTTPHandler) UpdateRole(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	var req memberReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	m, err := h.convUC.membershipRepo.FindMembership(c.Context(), c.Params("id"), uid)
	if err != nil || !m.IsActive || m.Role != domain.RoleOwner {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": domain.ErrNotMember.Error()})
	}

	if err := h.convUC.UpdateRole(c.Context(), c.Params("id"), c.Params("userID"), domain.ConversationRole(req.Role)); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"msg": "role updated"})
}

// DeleteConversation DELETE /conversations/:id
func (h *ChatHTTPHandler) DeleteConversation(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.convUC.Delete(c.Context(), c.Params("id"), uid); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"msg": "conversation deleted"})
}

// ListMessages GET /conversations/:id/messages?page=&page_size=
func (h *ChatHTTPHandler) ListMessages(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 50
	}

	msgs, err := h.messageUC.Messages(c.Context(), uid, c.Params("id"), page, pageSize)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(msgs)
}

// DeleteMessage DELETE /messages/:id
func (h *ChatHTTPHandler) DeleteMessage(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.messageUC.Delete(c.Context(), c.Params("id"), uid); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"msg": "message deleted"})
}

// GetUserStatus GET /users/:id/status — live presence, derived from the
// connection count and any explicit override
func (h *ChatHTTPHandler) GetUserStatus(c *fiber.Ctx) error {
	if _, err := userID(c); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	status, err := h.presenceUC.Status(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"user_id": c.Params("id"), "status": status})
}

// GetUnread GET /messages/unread
func (h *ChatHTTPHandler) GetUnread(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	counts, err := h.messageUC.UnreadCounts(c.Context(), uid)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(counts)
}
