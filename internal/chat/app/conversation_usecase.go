package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
)

// ConversationUseCase membership directory write path plus conversation
// listing. Invoked by the REST layer; the gateway loop only reads.
type ConversationUseCase struct {
	membershipRepo repository.MembershipRepository
	msgRepo        repository.MessageRepository
}

// NewConversationUseCase init conversation use case
func NewConversationUseCase(
	membershipRepo repository.MembershipRepository,
	msgRepo repository.MessageRepository,
) *ConversationUseCase {
	return &ConversationUseCase{
		membershipRepo: membershipRepo,
		msgRepo:        msgRepo,
	}
}

// Create conversation with the creator as owner and the given members.
// direct 會話固定兩個人是 client 的約定,storage 不擋
func (uc *ConversationUseCase) Create(ctx context.Context, creatorID, name string, convType domain.ConversationType, description string, memberIDs []string) (*domain.Conversation, error) {
	if convType == "" {
		convType = domain.ConversationTypeGroup
	}
	if convType != domain.ConversationTypeDirect && convType != domain.ConversationTypeGroup {
		return nil, errprocess.Set(fmt.Sprintf("invalid conversation type: %s", convType))
	}
	conv := &domain.Conversation{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        convType,
		Description: description,
		CreatedBy:   creatorID,
		CreatedAt:   time.Now().UTC(),
	}
	conv.UpdatedAt = conv.CreatedAt

	if err := uc.membershipRepo.CreateConversation(ctx, conv, memberIDs); err != nil {
		return nil, err
	}
	return conv, nil
}

// AddMember add or reactivate a membership. The (user, conversation) row is
// reused across leave/re-join, never duplicated.
func (uc *ConversationUseCase) AddMember(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	conv, err := uc.membershipRepo.FindConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.IsDeleted {
		return domain.ErrNotFound
	}

	existing, err := uc.membershipRepo.FindMembership(ctx, conversationID, userID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	if existing != nil && existing.IsActive {
		return domain.ErrAlreadyMember
	}
	if role == "" {
		role = domain.RoleMember
	}
	return uc.membershipRepo.AddMember(ctx, conversationID, userID, role)
}

// RemoveMember soft leave
func (uc *ConversationUseCase) RemoveMember(ctx context.Context, conversationID, userID string) error {
	return uc.membershipRepo.RemoveMember(ctx, conversationID, userID)
}

// UpdateRole change an active member's role
func (uc *ConversationUseCase) UpdateRole(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	return uc.membershipRepo.UpdateRole(ctx, conversationID, userID, role)
}

// Delete owner-only soft delete. A non-owner attempt fails with ErrNotMember
// and leaves the conversation and its messages untouched.
func (uc *ConversationUseCase) Delete(ctx context.Context, conversationID, userID string) error {
	membership, err := uc.membershipRepo.FindMembership(ctx, conversationID, userID)
	if err != nil {
		return domain.ErrNotMember
	}
	if !membership.IsActive || membership.Role != domain.RoleOwner {
		return domain.ErrNotMember
	}
	return uc.membershipRepo.SoftDeleteConversation(ctx, conversationID)
}

// Get one conversation for an active member
func (uc *ConversationUseCase) Get(ctx context.Context, conversationID, userID string) (*domain.ConversationSummary, error) {
	conv, err := uc.membershipRepo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.IsDeleted {
		return nil, domain.ErrNotFound
	}
	ok, err := uc.membershipRepo.IsActiveMember(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotMember
	}
	return uc.summarize(ctx, conv, userID)
}

// Summaries conversation listing for one user: active members, last message,
// unread count per conversation
func (uc *ConversationUseCase) Summaries(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	ids, err := uc.membershipRepo.ActiveConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(ids))
	for _, id := range ids {
		conv, err := uc.membershipRepo.FindConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		s, err := uc.summarize(ctx, conv, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

func (uc *ConversationUseCase) summarize(ctx context.Context, conv *domain.Conversation, userID string) (*domain.ConversationSummary, error) {
	members, err := uc.membershipRepo.ActiveMembers(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	last, err := uc.msgRepo.LastMessage(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	unread, err := uc.msgRepo.UnreadCount(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	return &domain.ConversationSummary{
		Conversation: *conv,
		Members:      members,
		LastMessage:  last,
		UnreadCount:  unread,
	}, nil
}
