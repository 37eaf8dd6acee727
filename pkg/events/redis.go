package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes messages on Redis pub/sub channels named
// "<prefix><topic>". Delivery is at-most-once, as with any Redis pub/sub.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisPublisher.
type RedisOption func(*RedisPublisher)

// WithChannelPrefix namespaces channels, e.g. "shop:".
func WithChannelPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) {
		p.prefix = prefix
	}
}

func NewRedisPublisher(client redis.UniversalClient, opts ...RedisOption) *RedisPublisher {
	if client == nil {
		panic("events: redis client cannot be nil")
	}
	p := &RedisPublisher{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish wraps payload in a Message envelope and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ErrEncodePayload{Topic: topic, Err: err}
	}

	envelope, err := json.Marshal(Message{Topic: topic, Payload: raw, PublishedAt: time.Now()})
	if err != nil {
		return ErrEncodePayload{Topic: topic, Err: err}
	}

	return p.client.Publish(ctx, p.prefix+topic, envelope).Err()
}

// Subscribe returns a go-redis PubSub for the given topics. The caller owns
// it and must Close it. Use DecodeRedisMessage on each received message.
func (p *RedisPublisher) Subscribe(ctx context.Context, topics ...string) *redis.PubSub {
	channels := make([]string, 0, len(topics))
	for _, t := range topics {
		channels = append(channels, p.prefix+t)
	}
	return p.client.Subscribe(ctx, channels...)
}

// DecodeRedisMessage unwraps the envelope written by RedisPublisher.
func DecodeRedisMessage(msg *redis.Message) (Message, error) {
	var m Message
	err := json.Unmarshal([]byte(msg.Payload), &m)
	return m, err
}
