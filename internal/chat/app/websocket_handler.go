package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
)

// ChatGatewayHandler 可包含所有需要的 UseCase
type ChatGatewayHandler struct {
	presenceUC     *PresenceUseCase
	messageUC      *SendMessageUseCase
	membershipRepo repository.MembershipRepository
	pubSub         repository.PubSub
}

// NewChatGatewayHandler create ChatGatewayHandler
func NewChatGatewayHandler(
	presenceUC *PresenceUseCase,
	messageUC *SendMessageUseCase,
	membershipRepo repository.MembershipRepository,
	pubSub repository.PubSub,
) *ChatGatewayHandler {
	return &ChatGatewayHandler{
		presenceUC:     presenceUC,
		messageUC:      messageUC,
		membershipRepo: membershipRepo,
		pubSub:         pubSub,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatGatewayHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Error("websocket connection without user id")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, domain.ErrUnauthenticated.Error()))
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	sess := NewSession(conn, userID)
	ticker := time.NewTicker(30 * time.Second)
	ctxClose, cancel := context.WithCancel(context.Background())
	connected := false

	defer func() {
		ticker.Stop()
		cancel()
		sess.Close()
		if connected {
			if err := h.presenceUC.Disconnect(context.Background(), userID, sess.ID); err != nil {
				logger.Log.Errorf("presence disconnect error:", err)
			}
		}
		logger.Log.Info("websocket close", zap.String("userID", userID))
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	//client發出ping,手動回pong
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	go sess.WriteLoop()

	connected = h.register(ctx, ctxClose, sess)

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := sess.Ping(); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, ctxClose, sess, mt, message)
	}
}

func (h *ChatGatewayHandler) execWebsocketAction(ctx, connCtx context.Context, sess *Session, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, connCtx, sess, msg)

	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		h.sendError(sess, "unknown message type")
	}
}

func (h *ChatGatewayHandler) textMessageAction(ctx, connCtx context.Context, sess *Session, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		h.sendError(sess, "invalid request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch domain.Action(req.Action) {
	//傳送訊息,寫入db後推給conversation group
	case domain.ActionSendMessage:
		view, err := h.messageUC.Execute(ctx, sess.UserID, domain.CreateMessageRequest{
			ConversationID:   req.ConversationID,
			Type:             domain.MessageType(req.Type),
			Content:          req.Content,
			FileURL:          req.FileURL,
			FileName:         req.FileName,
			FileSize:         req.FileSize,
			ReplyToMessageID: nilIfEmpty(req.ReplyToMessageID),
		})
		if err != nil {
			resp.Error = clientError(err)
		} else {
			resp.Success = true
			resp.Payload["message"] = view
		}

	//訂閱conversation的即時事件,需active membership
	case domain.ActionJoinConversation:
		ok, err := h.membershipRepo.IsActiveMember(ctx, sess.UserID, req.ConversationID)
		if err != nil {
			resp.Error = clientError(err)
		} else if !ok {
			resp.Error = domain.ErrNotMember.Error()
		} else {
			h.joinGroup(connCtx, sess, req.ConversationID)
			resp.Success = true
			resp.Payload["conversation_id"] = req.ConversationID
		}

	//取消訂閱,不檢查membership
	case domain.ActionLeaveConversation:
		sess.RemoveGroup(req.ConversationID)
		resp.Success = true
		resp.Payload["conversation_id"] = req.ConversationID

	//typing為fire-and-forget,不回ack
	case domain.ActionStartTyping:
		h.publishTyping(ctx, sess, req.ConversationID, domain.EventUserStartedTyping)
		return

	case domain.ActionStopTyping:
		h.publishTyping(ctx, sess, req.ConversationID, domain.EventUserStoppedTyping)
		return

	//將訊息標為已讀,只有真正前進才通知sender
	case domain.ActionMarkRead:
		entry, err := h.messageUC.MarkRead(ctx, req.MessageID, sess.UserID)
		if err != nil {
			resp.Error = clientError(err)
		} else {
			resp.Success = true
			if entry != nil {
				resp.Payload["status"] = entry
			}
		}

	case domain.ActionMarkDelivered:
		entry, err := h.messageUC.MarkDelivered(ctx, req.MessageID, sess.UserID)
		if err != nil {
			resp.Error = clientError(err)
		} else {
			resp.Success = true
			if entry != nil {
				resp.Payload["status"] = entry
			}
		}

	//手動改presence(away/busy/online)
	case domain.ActionUpdateStatus:
		err := h.presenceUC.SetStatus(ctx, sess.UserID, domain.UserStatus(req.Status), sess.ID)
		if err != nil {
			resp.Error = clientError(err)
		} else {
			resp.Success = true
			resp.Payload["status"] = req.Status
		}

	//搜尋所有未讀數
	case domain.ActionGetUnread:
		counts, err := h.messageUC.UnreadCounts(ctx, sess.UserID)
		if err != nil {
			resp.Error = clientError(err)
		} else {
			resp.Success = true
			for _, c := range counts {
				resp.Payload[c.ConversationID] = c.UnreadCount
			}
		}

	default:
		h.sendError(sess, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("UserID", sess.UserID), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	sess.Push(resp)
}

// register presence登記 + 訂閱backplane + 自動加入所有已參加的conversation group。
// presence掛掉只回報error event並繼續服務,斷線只保留給認證失敗
func (h *ChatGatewayHandler) register(ctx, connCtx context.Context, sess *Session) bool {
	registered := true
	if err := h.presenceUC.Connect(ctx, sess.UserID, sess.ID); err != nil {
		logger.Log.Errorf("presence connect error:", err)
		h.sendError(sess, "presence registration failed")
		registered = false
	}

	h.subscribe(connCtx, sess, repository.UserChannel(sess.UserID))
	h.subscribe(connCtx, sess, repository.BroadcastChannel)

	convIDs, err := h.membershipRepo.ActiveConversations(ctx, sess.UserID)
	if err != nil {
		logger.Log.Errorf("load conversations error:", err)
	}
	for _, id := range convIDs {
		h.joinGroup(connCtx, sess, id)
	}
	return registered
}

// joinGroup subscribe the conversation channel with its own cancel so that
// leave_conversation only tears down this one subscription
func (h *ChatGatewayHandler) joinGroup(connCtx context.Context, sess *Session, conversationID string) {
	if sess.Joined(conversationID) {
		return
	}
	subCtx, cancel := context.WithCancel(connCtx)
	sess.AddGroup(conversationID, cancel)
	h.subscribe(subCtx, sess, repository.ConversationChannel(conversationID))
}

func (h *ChatGatewayHandler) subscribe(ctx context.Context, sess *Session, channel string) {
	err := h.pubSub.Subscribe(ctx, channel, func(env domain.Envelope) {
		h.deliver(sess, env)
	})
	if err != nil {
		logger.Log.Errorf("subscribe error:", err)
	}
}

// deliver push a backplane event to the client, dropping events this very
// connection originated (typing, own status changes). A client too slow to
// drain its buffer gets disconnected rather than silently lose events.
func (h *ChatGatewayHandler) deliver(sess *Session, env domain.Envelope) {
	if env.Origin != "" && env.Origin == sess.ID {
		return
	}
	if !sess.Push(domain.WSPush{Event: env.Event, Payload: env.Payload}) {
		sess.Drop()
	}
}

func (h *ChatGatewayHandler) publishTyping(ctx context.Context, sess *Session, conversationID, event string) {
	ok, err := h.membershipRepo.IsActiveMember(ctx, sess.UserID, conversationID)
	if err != nil || !ok {
		return
	}
	env := domain.Envelope{
		Event:  event,
		Origin: sess.ID,
		Payload: domain.TypingPayload{
			UserID:         sess.UserID,
			ConversationID: conversationID,
		},
	}
	if err := h.pubSub.Publish(ctx, repository.ConversationChannel(conversationID), env); err != nil {
		logger.Log.Errorf("publish typing error:", err)
	}
}

// clientError 只有 domain 錯誤可以原文回給 client,storage/driver 錯誤一律換成
// generic 訊息,原文留在 server log
func clientError(err error) string {
	for _, known := range []error{
		domain.ErrNotMember,
		domain.ErrNotFound,
		domain.ErrAlreadyMember,
		domain.ErrInvalidStatus,
		domain.ErrUnauthenticated,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "operation failed"
}

func (h *ChatGatewayHandler) sendError(sess *Session, errorMsg string) {
	sess.Push(domain.WSPush{
		Event:   domain.EventError,
		Payload: map[string]interface{}{"error": errorMsg},
	})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
