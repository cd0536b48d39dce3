package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultRedisChannelPrefix is joined with the family id to form the channel.
const DefaultRedisChannelPrefix = "kinship:family:"

// ChannelPublisher is the pub/sub capability of the Redis client.
type ChannelPublisher interface {
	PublishEvent(ctx context.Context, channel string, message []byte) error
}

// RedisPublisher fans events out on one channel per family so a realtime
// gateway can subscribe to exactly the families it serves.
type RedisPublisher struct {
	client ChannelPublisher
	prefix string
}

func NewRedisPublisher(client ChannelPublisher, channelPrefix string) *RedisPublisher {
	if channelPrefix == "" {
		channelPrefix = DefaultRedisChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: channelPrefix}
}

// Channel returns the channel events for familyID are published on.
func (p *RedisPublisher) Channel(event FamilyChanged) string {
	return p.prefix + event.FamilyID.String()
}

func (p *RedisPublisher) Publish(ctx context.Context, event FamilyChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode family change: %w", err)
	}
	return p.client.PublishEvent(ctx, p.Channel(event), payload)
}
