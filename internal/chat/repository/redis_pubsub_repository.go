package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"
)

// BroadcastChannel presence changes addressed at everyone
const BroadcastChannel = "chat:broadcast"

// ConversationChannel group-addressed channel for one conversation
func ConversationChannel(conversationID string) string {
	return "chat:conv:" + conversationID
}

// UserChannel user-addressed channel, reaches every live session of one user
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// PubSub fanout backplane. Group- and user-addressed events cross gateway
// process boundaries through it.
type PubSub interface {
	Publish(ctx context.Context, channel string, env domain.Envelope) error
	// Subscribe 收到訊息後呼叫 handler,ctx 取消就關閉訂閱
	Subscribe(ctx context.Context, channel string, handler func(env domain.Envelope)) error
}

// RedisPubSub definition redis pub/sub backplane
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 envelope 序列化後發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribe channel until ctx is done
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(env domain.Envelope)) error {
	sub := r.client.Subscribe(ctx, channel)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env domain.Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					logger.Log.Errorf("pubsub unmarshal error:", err)
					continue
				}
				handler(env)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
