package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"realtime_chat_service/internal/chat/domain"
)

// 測試 Create:creator 當 owner,型別預設 group
func TestConversationUseCase_Create(t *testing.T) {
	ctx := context.Background()
	creatorID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("CreateConversation", ctx, mock.Anything, []string{"user-2"}).Return(nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	conv, err := uc.Create(ctx, creatorID, "team", "", "daily", []string{"user-2"})

	assert.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, domain.ConversationTypeGroup, conv.Type)
	assert.Equal(t, creatorID, conv.CreatedBy)
	mockMembershipRepo.AssertExpectations(t)
}

func TestConversationUseCase_Create_InvalidType(t *testing.T) {
	ctx := context.Background()

	mockMembershipRepo := new(MockMembershipRepository)
	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))

	_, err := uc.Create(ctx, uuid.New().String(), "x", domain.ConversationType("channel"), "", nil)

	assert.Error(t, err)
	mockMembershipRepo.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything, mock.Anything)
}

// 重新加入會復用同一列 membership;已經 active 的要擋
func TestConversationUseCase_AddMember(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("FindConversation", ctx, convID).Return(&domain.Conversation{ID: convID}, nil)
	// 之前離開過,存在但 inactive
	mockMembershipRepo.On("FindMembership", ctx, convID, userID).Return(&domain.Membership{
		UserID:         userID,
		ConversationID: convID,
		Role:           domain.RoleMember,
		IsActive:       false,
	}, nil)
	mockMembershipRepo.On("AddMember", ctx, convID, userID, domain.RoleMember).Return(nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	err := uc.AddMember(ctx, convID, userID, "")

	assert.NoError(t, err)
	mockMembershipRepo.AssertExpectations(t)
}

func TestConversationUseCase_AddMember_AlreadyActive(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("FindConversation", ctx, convID).Return(&domain.Conversation{ID: convID}, nil)
	mockMembershipRepo.On("FindMembership", ctx, convID, userID).Return(&domain.Membership{
		UserID:         userID,
		ConversationID: convID,
		IsActive:       true,
	}, nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	err := uc.AddMember(ctx, convID, userID, domain.RoleMember)

	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	mockMembershipRepo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationUseCase_AddMember_DeletedConversation(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("FindConversation", ctx, convID).Return(&domain.Conversation{ID: convID, IsDeleted: true}, nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	err := uc.AddMember(ctx, convID, uuid.New().String(), domain.RoleMember)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// 測試 Delete:只有 active owner 能刪
func TestConversationUseCase_Delete_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("FindMembership", ctx, convID, userID).Return(&domain.Membership{
		UserID:         userID,
		ConversationID: convID,
		Role:           domain.RoleMember,
		IsActive:       true,
	}, nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	err := uc.Delete(ctx, convID, userID)

	assert.ErrorIs(t, err, domain.ErrNotMember)
	mockMembershipRepo.AssertNotCalled(t, "SoftDeleteConversation", mock.Anything, mock.Anything)
}

func TestConversationUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("FindMembership", ctx, convID, userID).Return(&domain.Membership{
		UserID:         userID,
		ConversationID: convID,
		Role:           domain.RoleOwner,
		IsActive:       true,
	}, nil)
	mockMembershipRepo.On("SoftDeleteConversation", ctx, convID).Return(nil)

	uc := NewConversationUseCase(mockMembershipRepo, new(MockMessageRepository))
	err := uc.Delete(ctx, convID, userID)

	assert.NoError(t, err)
	mockMembershipRepo.AssertExpectations(t)
}

// 測試 Summaries:members + last message + unread 組合
func TestConversationUseCase_Summaries(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMsgRepo := new(MockMessageRepository)

	conv := &domain.Conversation{ID: convID, Name: "team", Type: domain.ConversationTypeGroup}
	members := []domain.MemberInfo{
		{UserID: userID, Role: domain.RoleOwner},
		{UserID: "user-2", Role: domain.RoleMember},
	}
	last := &domain.MessageView{Message: domain.Message{ID: uuid.New().String(), ConversationID: convID}}

	mockMembershipRepo.On("ActiveConversations", ctx, userID).Return([]string{convID}, nil)
	mockMembershipRepo.On("FindConversation", ctx, convID).Return(conv, nil)
	mockMembershipRepo.On("ActiveMembers", ctx, convID).Return(members, nil)
	mockMsgRepo.On("LastMessage", ctx, convID).Return(last, nil)
	mockMsgRepo.On("UnreadCount", ctx, convID, userID).Return(3, nil)

	uc := NewConversationUseCase(mockMembershipRepo, mockMsgRepo)
	summaries, err := uc.Summaries(ctx, userID)

	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, *conv, summaries[0].Conversation)
	assert.Equal(t, members, summaries[0].Members)
	assert.Equal(t, last, summaries[0].LastMessage)
	assert.Equal(t, 3, summaries[0].UnreadCount)
}
