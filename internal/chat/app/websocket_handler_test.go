package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
)

func newTestGatewayHandler(
	membershipRepo *MockMembershipRepository,
	presenceRepo *MockPresenceRepository,
	pubSub *MockPubSub,
) *ChatGatewayHandler {
	presenceUC := NewPresenceUseCase(presenceRepo, new(MockUserRepository), pubSub)
	messageUC := NewSendMessageUseCase(membershipRepo, new(MockMessageRepository), new(MockStatusRepository), pubSub, nil)
	return NewChatGatewayHandler(presenceUC, messageUC, membershipRepo, pubSub)
}

func readResponse(t *testing.T, sess *Session) domain.WSResponse {
	t.Helper()
	var resp domain.WSResponse
	assert.NoError(t, json.Unmarshal(<-sess.send, &resp))
	return resp
}

// storage 壞掉時 client 只能看到 generic 訊息,原始錯誤不外洩
func TestChatGatewayHandler_StorageErrorNotLeaked(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("IsActiveMember", mock.Anything, mock.Anything, convID).
		Return(false, errors.New(`pq: connection refused (dbname="chat")`))

	h := newTestGatewayHandler(mockMembershipRepo, new(MockPresenceRepository), new(MockPubSub))
	sess := NewSession(nil, uuid.New().String())

	msg, _ := json.Marshal(domain.WSRequest{
		Action:         string(domain.ActionSendMessage),
		ConversationID: convID,
		Content:        "hello",
	})
	h.textMessageAction(ctx, ctx, sess, msg)

	resp := readResponse(t, sess)
	assert.False(t, resp.Success)
	assert.Equal(t, "operation failed", resp.Error)
	assert.NotContains(t, resp.Error, "pq:")
}

// domain 錯誤的原文要照常回給 client
func TestChatGatewayHandler_DomainErrorPassedThrough(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("IsActiveMember", mock.Anything, mock.Anything, convID).
		Return(false, nil)

	h := newTestGatewayHandler(mockMembershipRepo, new(MockPresenceRepository), new(MockPubSub))
	sess := NewSession(nil, uuid.New().String())

	msg, _ := json.Marshal(domain.WSRequest{
		Action:         string(domain.ActionSendMessage),
		ConversationID: convID,
		Content:        "hello",
	})
	h.textMessageAction(ctx, ctx, sess, msg)

	resp := readResponse(t, sess)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrNotMember.Error(), resp.Error)
}

// update_status 給了不合法的狀態,client 要收到完整的 invalid status 訊息
func TestChatGatewayHandler_InvalidStatusMessage(t *testing.T) {
	ctx := context.Background()

	h := newTestGatewayHandler(new(MockMembershipRepository), new(MockPresenceRepository), new(MockPubSub))
	sess := NewSession(nil, uuid.New().String())

	msg, _ := json.Marshal(domain.WSRequest{
		Action: string(domain.ActionUpdateStatus),
		Status: "sleeping",
	})
	h.textMessageAction(ctx, ctx, sess, msg)

	resp := readResponse(t, sess)
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid status: sleeping", resp.Error)
}

func TestClientError(t *testing.T) {
	assert.Equal(t, "operation failed", clientError(errors.New("dial tcp 10.0.0.1:5432: i/o timeout")))
	assert.Equal(t, domain.ErrNotFound.Error(), clientError(domain.ErrNotFound))
	assert.Equal(t, "invalid status: x", clientError(fmt.Errorf("%w: %s", domain.ErrInvalidStatus, "x")))
}

// presence 登記失敗只降級:回報 error event,訂閱與 group join 照常進行
func TestChatGatewayHandler_Register_PresenceFailureDegrades(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	convID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockPresenceRepo.On("IncrConnections", mock.Anything, userID).
		Return(int64(0), errors.New("redis: connection pool timeout"))

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("ActiveConversations", mock.Anything, userID).
		Return([]string{convID}, nil)

	mockPubSub := new(MockPubSub)
	mockPubSub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	h := newTestGatewayHandler(mockMembershipRepo, mockPresenceRepo, mockPubSub)
	sess := NewSession(nil, userID)

	registered := h.register(ctx, ctx, sess)

	assert.False(t, registered)
	assert.True(t, sess.Joined(convID))
	mockPubSub.AssertCalled(t, "Subscribe", mock.Anything, repository.UserChannel(userID), mock.Anything)
	mockPubSub.AssertCalled(t, "Subscribe", mock.Anything, repository.BroadcastChannel, mock.Anything)
	mockPubSub.AssertCalled(t, "Subscribe", mock.Anything, repository.ConversationChannel(convID), mock.Anything)

	var push domain.WSPush
	assert.NoError(t, json.Unmarshal(<-sess.send, &push))
	assert.Equal(t, domain.EventError, push.Event)
}

// presence 正常時 register 回 true
func TestChatGatewayHandler_Register_Success(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockPresenceRepo.On("IncrConnections", mock.Anything, userID).Return(int64(2), nil)

	mockMembershipRepo := new(MockMembershipRepository)
	mockMembershipRepo.On("ActiveConversations", mock.Anything, userID).
		Return([]string{}, nil)

	mockPubSub := new(MockPubSub)
	mockPubSub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	h := newTestGatewayHandler(mockMembershipRepo, mockPresenceRepo, mockPubSub)
	sess := NewSession(nil, userID)

	assert.True(t, h.register(ctx, ctx, sess))
	assert.Empty(t, sess.send)
}
