package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStreamsBridge(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	bridge := NewStreamsBridge(client, "dapipe:bridge", 0, zap.NewNop())

	t.Run("message is appended to the topic stream", func(t *testing.T) {
		msg := domain.NewMessage("dapipe/pipelines", map[string]any{"pipeline_id": "p1"})

		require.NoError(t, bridge.Send(ctx, msg))

		entries, err := client.XRange(ctx, bridge.StreamKey("dapipe/pipelines"), "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, msg.ID, entries[0].Values["msg_id"])

		var decoded domain.Message
		require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &decoded))
		assert.Equal(t, "dapipe/pipelines", decoded.Topic)
		assert.Equal(t, map[string]any{"pipeline_id": "p1"}, decoded.Payload)
	})

	t.Run("closed connection fails", func(t *testing.T) {
		mr.Close()

		err := bridge.Send(ctx, domain.NewMessage("t", nil))

		assert.Error(t, err)
	})
}
