package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces the Redis pub/sub channels of published messages.
const ChannelPrefix = "notifications:"

// Envelope is the payload published on Redis.
type Envelope struct {
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	Format  Format    `json:"format"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisPublisher republishes messages on Redis for in-house subscribers (bots, websockets).
type RedisPublisher struct {
	Redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{Redis: client}
}

func (p *RedisPublisher) Name() string { return "redis" }

// PublishMessage publishes a JSON Envelope on ChannelPrefix+channel.
func (p *RedisPublisher) PublishMessage(ctx context.Context, channel, text string, format Format) error {
	payload, err := json.Marshal(Envelope{Channel: channel, Text: text, Format: format, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, ChannelPrefix+channel, payload).Err()
}
