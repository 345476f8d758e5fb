package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"realtime_chat_service/internal/chat/domain"
)

// PresenceRepository per-user live-connection reference counts.
// 放 Redis 而不是行程記憶體:多個 gateway 節點共享同一份計數,
// INCR/DECR 的回傳值就是 0↔1 邊界判斷,不需要額外的讀-改-寫
type PresenceRepository interface {
	// IncrConnections register one connection, returns the new count
	IncrConnections(ctx context.Context, userID string) (int64, error)
	// DecrConnections unregister one connection, returns the new count (floored at 0)
	DecrConnections(ctx context.Context, userID string) (int64, error)
	Connections(ctx context.Context, userID string) (int64, error)
	// SetOverride explicit away/busy/online override
	SetOverride(ctx context.Context, userID string, status domain.UserStatus) error
	ClearOverride(ctx context.Context, userID string) error
	// Override returns "" when no override is set
	Override(ctx context.Context, userID string) (domain.UserStatus, error)
}

type redisPresenceRepository struct {
	client *redis.Client
}

// NewRedisPresenceRepository create a PresenceRepository
func NewRedisPresenceRepository(client *redis.Client) PresenceRepository {
	return &redisPresenceRepository{client: client}
}

func connKey(userID string) string {
	return "chat:presence:conns:" + userID
}

func overrideKey(userID string) string {
	return "chat:presence:status:" + userID
}

// 計數不能變負,不然下一次 connect 的 0→1 判斷會錯亂
var decrFloorScript = redis.NewScript(`
local v = redis.call("DECR", KEYS[1])
if v <= 0 then
	redis.call("DEL", KEYS[1])
	return 0
end
return v
`)

func (r *redisPresenceRepository) IncrConnections(ctx context.Context, userID string) (int64, error) {
	n, err := r.client.Incr(ctx, connKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr connections: %w", err)
	}
	return n, nil
}

func (r *redisPresenceRepository) DecrConnections(ctx context.Context, userID string) (int64, error) {
	n, err := decrFloorScript.Run(ctx, r.client, []string{connKey(userID)}).Int64()
	if err != nil {
		return 0, fmt.Errorf("decr connections: %w", err)
	}
	return n, nil
}

func (r *redisPresenceRepository) Connections(ctx context.Context, userID string) (int64, error) {
	n, err := r.client.Get(ctx, connKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("get connections: %w", err)
	}
	return n, nil
}

func (r *redisPresenceRepository) SetOverride(ctx context.Context, userID string, status domain.UserStatus) error {
	return r.client.Set(ctx, overrideKey(userID), string(status), 0).Err()
}

func (r *redisPresenceRepository) ClearOverride(ctx context.Context, userID string) error {
	return r.client.Del(ctx, overrideKey(userID)).Err()
}

func (r *redisPresenceRepository) Override(ctx context.Context, userID string) (domain.UserStatus, error) {
	val, err := r.client.Get(ctx, overrideKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("get override: %w", err)
	}
	return domain.UserStatus(val), nil
}
