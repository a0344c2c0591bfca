package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamsBridge implements ports.Bridge by appending messages to Redis
// Streams, one stream per topic
type StreamsBridge struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	maxLen int64
}

// NewStreamsBridge creates a new Redis Streams bridge. Streams are named
// "<prefix>:<topic>" and trimmed to roughly maxLen entries when maxLen > 0.
func NewStreamsBridge(client *redis.Client, prefix string, maxLen int64, logger *zap.Logger) *StreamsBridge {
	return &StreamsBridge{
		client: client,
		logger: logger,
		prefix: prefix,
		maxLen: maxLen,
	}
}

// Send appends msg to the stream of its topic
func (b *StreamsBridge) Send(ctx context.Context, msg domain.Message) error {
	streamKey := b.StreamKey(msg.Topic)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"msg_id": msg.ID,
			"data":   string(data),
		},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}

	if _, err := b.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	b.logger.Debug("message published",
		zap.String("msg_id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.String("stream", streamKey))

	return nil
}

// StreamKey returns the Redis stream key for a topic
func (b *StreamsBridge) StreamKey(topic string) string {
	return fmt.Sprintf("%s:%s", b.prefix, topic)
}
