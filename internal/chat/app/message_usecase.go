package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"
)

// SendMessageUseCase message pipeline: validates sender membership, persists
// the message together with its delivery status entries, assembles the view
// and fans it out to the conversation group.
type SendMessageUseCase struct {
	membershipRepo repository.MembershipRepository
	msgRepo        repository.MessageRepository
	statusRepo     repository.StatusRepository
	pubSub         repository.PubSub
	journal        repository.EventJournal
}

// NewSendMessageUseCase init send message use case
func NewSendMessageUseCase(
	membershipRepo repository.MembershipRepository,
	msgRepo repository.MessageRepository,
	statusRepo repository.StatusRepository,
	pubSub repository.PubSub,
	journal repository.EventJournal,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		membershipRepo: membershipRepo,
		msgRepo:        msgRepo,
		statusRepo:     statusRepo,
		pubSub:         pubSub,
		journal:        journal,
	}
}

// Execute create a message and broadcast it to the conversation group.
// Any failure before the broadcast is the caller's alone; nothing partial is
// ever pushed to the group.
func (uc *SendMessageUseCase) Execute(ctx context.Context, senderID string, req domain.CreateMessageRequest) (*domain.MessageView, error) {
	ok, err := uc.membershipRepo.IsActiveMember(ctx, senderID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotMember
	}

	// reply 目標必須在同一個會話裡而且沒被刪除
	if req.ReplyToMessageID != nil {
		target, err := uc.msgRepo.FindByID(ctx, *req.ReplyToMessageID)
		if err != nil {
			return nil, err
		}
		if target.ConversationID != req.ConversationID || target.IsDeleted {
			return nil, domain.ErrNotFound
		}
	}

	memberIDs, err := uc.membershipRepo.ActiveMemberIDs(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	msg := &domain.Message{
		ID:               uuid.New().String(),
		ConversationID:   req.ConversationID,
		SenderID:         senderID,
		Type:             msgType,
		Content:          req.Content,
		FileURL:          req.FileURL,
		FileName:         req.FileName,
		FileSize:         req.FileSize,
		ReplyToMessageID: req.ReplyToMessageID,
		CreatedAt:        time.Now().UTC(),
	}

	// 訊息跟 status entries 同一個 transaction,不會讀到缺 entry 的訊息
	if err := uc.msgRepo.CreateWithStatuses(ctx, msg, recipients); err != nil {
		return nil, err
	}

	view, err := uc.msgRepo.FindViewByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if uc.journal != nil {
		if err := uc.journal.Append(ctx, msg.ConversationID, view); err != nil {
			logger.Log.Errorf("journal append error:", err, zap.String("messageID", msg.ID))
		}
	}

	err = uc.pubSub.Publish(ctx, repository.ConversationChannel(msg.ConversationID), domain.Envelope{
		Event:   domain.EventReceiveMessage,
		Payload: view,
	})
	if err != nil {
		logger.Log.Errorf("message broadcast error:", err, zap.String("messageID", msg.ID))
	}

	return view, nil
}

// MarkRead move the (message, reader) entry to read. A real transition pushes
// MessageStatusUpdated at the sender's user channel, reaching every live
// session of the sender on any gateway node. A no-op transition pushes nothing.
func (uc *SendMessageUseCase) MarkRead(ctx context.Context, messageID, userID string) (*domain.DeliveryStatusEntry, error) {
	return uc.updateStatus(ctx, messageID, userID, domain.StatusRead)
}

// MarkDelivered move the (message, recipient) entry to delivered
func (uc *SendMessageUseCase) MarkDelivered(ctx context.Context, messageID, userID string) (*domain.DeliveryStatusEntry, error) {
	return uc.updateStatus(ctx, messageID, userID, domain.StatusDelivered)
}

func (uc *SendMessageUseCase) updateStatus(ctx context.Context, messageID, userID string, status domain.DeliveryStatus) (*domain.DeliveryStatusEntry, error) {
	entry, err := uc.statusRepo.UpdateStatus(ctx, messageID, userID, status)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		// entry 不存在或狀態沒有前進,照規則是 no-op 不是錯
		return nil, nil
	}

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return entry, err
	}
	err = uc.pubSub.Publish(ctx, repository.UserChannel(msg.SenderID), domain.Envelope{
		Event: domain.EventMessageStatusUpdated,
		Payload: domain.StatusUpdatedPayload{
			MessageID: entry.MessageID,
			UserID:    entry.UserID,
			Status:    entry.Status,
			UpdatedAt: entry.UpdatedAt,
		},
	})
	if err != nil {
		logger.Log.Errorf("status notify error:", err, zap.String("messageID", messageID))
	}
	return entry, nil
}

// Messages history page for a conversation the caller is an active member of
func (uc *SendMessageUseCase) Messages(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.MessageView, error) {
	ok, err := uc.membershipRepo.IsActiveMember(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotMember
	}
	return uc.msgRepo.ListByConversation(ctx, conversationID, page, pageSize)
}

// Delete sender-only soft delete
func (uc *SendMessageUseCase) Delete(ctx context.Context, messageID, userID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return domain.ErrNotMember
	}
	return uc.msgRepo.SoftDelete(ctx, messageID, userID)
}

// UnreadCounts per-conversation unread counts for one user
func (uc *SendMessageUseCase) UnreadCounts(ctx context.Context, userID string) ([]domain.ConversationUnread, error) {
	return uc.msgRepo.UnreadCounts(ctx, userID)
}
