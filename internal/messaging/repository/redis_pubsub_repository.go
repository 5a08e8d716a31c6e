package repository

import (
	"context"
	"encoding/json"

	"social_network_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Pub/sub channel layout. User channels carry notifications and presence,
// conversation channels carry cross-node message fan-out.
const (
	userChannelPrefix         = "msg:user:"
	conversationChannelPrefix = "msg:conversation:"
	// PresenceChannel presence transitions broadcast to every node
	PresenceChannel = "msg:presence"
)

// UserChannel channel for one recipient
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// ConversationChannel channel for one conversation room
func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// PubSub definition pub/sub boundary, redis in production
type PubSub interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理，ctx 取消時退訂
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Info("pubsub subscription closed", zap.String("channel", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
