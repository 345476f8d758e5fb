package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"
)

// PresenceUseCase derives a user's presence from the count of live
// connections. One user can hold many sessions (multiple tabs/devices);
// only the 0→1 and 1→0 boundaries are externally visible.
type PresenceUseCase struct {
	presenceRepo repository.PresenceRepository
	userRepo     repository.UserRepository
	pubSub       repository.PubSub
}

// NewPresenceUseCase init presence use case
func NewPresenceUseCase(
	presenceRepo repository.PresenceRepository,
	userRepo repository.UserRepository,
	pubSub repository.PubSub,
) *PresenceUseCase {
	return &PresenceUseCase{
		presenceRepo: presenceRepo,
		userRepo:     userRepo,
		pubSub:       pubSub,
	}
}

// Connect register one live connection. origin is the connection id, carried
// in the broadcast so the originating session can skip its own event.
func (uc *PresenceUseCase) Connect(ctx context.Context, userID, origin string) error {
	n, err := uc.presenceRepo.IncrConnections(ctx, userID)
	if err != nil {
		return err
	}
	if n != 1 {
		// 還有其他連線在,對外狀態不變
		return nil
	}

	now := time.Now().UTC()
	if err := uc.userRepo.UpdateStatusSnapshot(ctx, userID, domain.UserStatusOnline, now); err != nil {
		logger.Log.Errorf("presence snapshot error:", err, zap.String("userID", userID))
	}
	uc.broadcast(ctx, origin, domain.StatusChangedPayload{
		UserID:   userID,
		Status:   domain.UserStatusOnline,
		LastSeen: now,
	})
	return nil
}

// Disconnect unregister one live connection. Only the last disconnect flips
// the user offline, stamps last_seen and clears any explicit override.
func (uc *PresenceUseCase) Disconnect(ctx context.Context, userID, origin string) error {
	n, err := uc.presenceRepo.DecrConnections(ctx, userID)
	if err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	if err := uc.presenceRepo.ClearOverride(ctx, userID); err != nil {
		logger.Log.Errorf("presence clear override error:", err, zap.String("userID", userID))
	}
	now := time.Now().UTC()
	if err := uc.userRepo.UpdateStatusSnapshot(ctx, userID, domain.UserStatusOffline, now); err != nil {
		logger.Log.Errorf("presence snapshot error:", err, zap.String("userID", userID))
	}
	uc.broadcast(ctx, origin, domain.StatusChangedPayload{
		UserID:   userID,
		Status:   domain.UserStatusOffline,
		LastSeen: now,
	})
	return nil
}

// SetStatus explicit override (away/busy/online). Lives until the next
// connect/disconnect recomputation; a full disconnect always ends at offline.
func (uc *PresenceUseCase) SetStatus(ctx context.Context, userID string, status domain.UserStatus, origin string) error {
	if !status.Valid() || status == domain.UserStatusOffline {
		return fmt.Errorf("%w: %s", domain.ErrInvalidStatus, status)
	}
	if err := uc.presenceRepo.SetOverride(ctx, userID, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := uc.userRepo.UpdateStatusSnapshot(ctx, userID, status, now); err != nil {
		logger.Log.Errorf("presence snapshot error:", err, zap.String("userID", userID))
	}
	uc.broadcast(ctx, origin, domain.StatusChangedPayload{
		UserID:   userID,
		Status:   status,
		LastSeen: now,
	})
	return nil
}

// Status resolve the live status: override if set, else derived from the count
func (uc *PresenceUseCase) Status(ctx context.Context, userID string) (domain.UserStatus, error) {
	override, err := uc.presenceRepo.Override(ctx, userID)
	if err != nil {
		return domain.UserStatusOffline, err
	}
	if override != "" {
		return override, nil
	}
	n, err := uc.presenceRepo.Connections(ctx, userID)
	if err != nil {
		return domain.UserStatusOffline, err
	}
	if n > 0 {
		return domain.UserStatusOnline, nil
	}
	return domain.UserStatusOffline, nil
}

func (uc *PresenceUseCase) broadcast(ctx context.Context, origin string, payload domain.StatusChangedPayload) {
	err := uc.pubSub.Publish(ctx, repository.BroadcastChannel, domain.Envelope{
		Event:   domain.EventUserStatusChanged,
		Origin:  origin,
		Payload: payload,
	})
	if err != nil {
		logger.Log.Errorf("presence broadcast error:", err, zap.String("userID", payload.UserID))
	}
}
