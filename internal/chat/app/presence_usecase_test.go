package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
)

// 第一條連線 (0→1) 才對外廣播 online
func TestPresenceUseCase_Connect_First(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	origin := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockUserRepo := new(MockUserRepository)
	mockPubSub := new(MockPubSub)

	mockPresenceRepo.On("IncrConnections", ctx, userID).Return(int64(1), nil)
	mockUserRepo.On("UpdateStatusSnapshot", ctx, userID, domain.UserStatusOnline, mock.Anything).Return(nil)
	mockPubSub.On("Publish", ctx, repository.BroadcastChannel, mock.MatchedBy(func(env domain.Envelope) bool {
		payload, ok := env.Payload.(domain.StatusChangedPayload)
		return ok && env.Event == domain.EventUserStatusChanged && env.Origin == origin &&
			payload.UserID == userID && payload.Status == domain.UserStatusOnline
	})).Return(nil)

	uc := NewPresenceUseCase(mockPresenceRepo, mockUserRepo, mockPubSub)
	err := uc.Connect(ctx, userID, origin)

	assert.NoError(t, err)
	mockPresenceRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

// 第二條連線 (1→2) 對外不可見
func TestPresenceUseCase_Connect_Additional(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockUserRepo := new(MockUserRepository)
	mockPubSub := new(MockPubSub)

	mockPresenceRepo.On("IncrConnections", ctx, userID).Return(int64(2), nil)

	uc := NewPresenceUseCase(mockPresenceRepo, mockUserRepo, mockPubSub)
	err := uc.Connect(ctx, userID, uuid.New().String())

	assert.NoError(t, err)
	mockUserRepo.AssertNotCalled(t, "UpdateStatusSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockPubSub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// 最後一條連線斷掉 (1→0) 才廣播 offline,而且要清掉 override
func TestPresenceUseCase_Disconnect_Last(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	origin := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockUserRepo := new(MockUserRepository)
	mockPubSub := new(MockPubSub)

	mockPresenceRepo.On("DecrConnections", ctx, userID).Return(int64(0), nil)
	mockPresenceRepo.On("ClearOverride", ctx, userID).Return(nil)
	mockUserRepo.On("UpdateStatusSnapshot", ctx, userID, domain.UserStatusOffline, mock.Anything).Return(nil)
	mockPubSub.On("Publish", ctx, repository.BroadcastChannel, mock.MatchedBy(func(env domain.Envelope) bool {
		payload, ok := env.Payload.(domain.StatusChangedPayload)
		return ok && payload.Status == domain.UserStatusOffline
	})).Return(nil)

	uc := NewPresenceUseCase(mockPresenceRepo, mockUserRepo, mockPubSub)
	err := uc.Disconnect(ctx, userID, origin)

	assert.NoError(t, err)
	mockPresenceRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

// 其他裝置還在線,斷線對外不可見
func TestPresenceUseCase_Disconnect_Intermediate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockUserRepo := new(MockUserRepository)
	mockPubSub := new(MockPubSub)

	mockPresenceRepo.On("DecrConnections", ctx, userID).Return(int64(1), nil)

	uc := NewPresenceUseCase(mockPresenceRepo, mockUserRepo, mockPubSub)
	err := uc.Disconnect(ctx, userID, uuid.New().String())

	assert.NoError(t, err)
	mockPresenceRepo.AssertNotCalled(t, "ClearOverride", mock.Anything, mock.Anything)
	mockPubSub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// 測試 SetStatus:有效的 override 會存下來並廣播
func TestPresenceUseCase_SetStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	origin := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	mockUserRepo := new(MockUserRepository)
	mockPubSub := new(MockPubSub)

	mockPresenceRepo.On("SetOverride", ctx, userID, domain.UserStatusAway).Return(nil)
	mockUserRepo.On("UpdateStatusSnapshot", ctx, userID, domain.UserStatusAway, mock.Anything).Return(nil)
	mockPubSub.On("Publish", ctx, repository.BroadcastChannel, mock.MatchedBy(func(env domain.Envelope) bool {
		payload, ok := env.Payload.(domain.StatusChangedPayload)
		return ok && payload.Status == domain.UserStatusAway
	})).Return(nil)

	uc := NewPresenceUseCase(mockPresenceRepo, mockUserRepo, mockPubSub)
	err := uc.SetStatus(ctx, userID, domain.UserStatusAway, origin)

	assert.NoError(t, err)
	mockPresenceRepo.AssertExpectations(t)
}

// offline 不能當 override 設,只能靠斷線
func TestPresenceUseCase_SetStatus_Invalid(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)

	uc := NewPresenceUseCase(mockPresenceRepo, new(MockUserRepository), new(MockPubSub))

	assert.Error(t, uc.SetStatus(ctx, userID, domain.UserStatusOffline, ""))
	assert.Error(t, uc.SetStatus(ctx, userID, domain.UserStatus("sleeping"), ""))
	mockPresenceRepo.AssertNotCalled(t, "SetOverride", mock.Anything, mock.Anything, mock.Anything)
}

// 測試 Status 解析順序:override > 連線數 > offline
func TestPresenceUseCase_Status(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	mockPresenceRepo := new(MockPresenceRepository)
	uc := NewPresenceUseCase(mockPresenceRepo, new(MockUserRepository), new(MockPubSub))

	// override 優先
	mockPresenceRepo.On("Override", ctx, userID).Return(domain.UserStatusBusy, nil).Once()
	status, err := uc.Status(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, domain.UserStatusBusy, status)

	// 沒 override,有連線 → online
	mockPresenceRepo.On("Override", ctx, userID).Return(domain.UserStatus(""), nil).Once()
	mockPresenceRepo.On("Connections", ctx, userID).Return(int64(2), nil).Once()
	status, err = uc.Status(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, domain.UserStatusOnline, status)

	// 沒 override,沒連線 → offline
	mockPresenceRepo.On("Override", ctx, userID).Return(domain.UserStatus(""), nil).Once()
	mockPresenceRepo.On("Connections", ctx, userID).Return(int64(0), nil).Once()
	status, err = uc.Status(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, domain.UserStatusOffline, status)
}
