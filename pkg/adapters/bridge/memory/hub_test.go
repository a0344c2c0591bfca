package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	t.Run("subscribers receive messages for their topic", func(t *testing.T) {
		hub := NewHub(0)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pipelines := hub.Subscribe(ctx, "dapipe/pipelines", 4)
		all := hub.Subscribe(ctx, "", 4)

		require.NoError(t, hub.Send(ctx, domain.NewMessage("dapipe/pipelines", 1)))
		require.NoError(t, hub.Send(ctx, domain.NewMessage("other", 2)))

		msg := <-pipelines
		assert.Equal(t, 1, msg.Payload)
		assert.Len(t, pipelines, 0)
		assert.Len(t, all, 2)
	})

	t.Run("history is bounded", func(t *testing.T) {
		hub := NewHub(2)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, hub.Send(ctx, domain.NewMessage("t", i)))
		}

		msgs := hub.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, 1, msgs[0].Payload)
		assert.Equal(t, 2, msgs[1].Payload)
	})

	t.Run("full subscribers do not block send", func(t *testing.T) {
		hub := NewHub(0)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sub := hub.Subscribe(ctx, "", 1)

		require.NoError(t, hub.Send(ctx, domain.NewMessage("t", 1)))
		require.NoError(t, hub.Send(ctx, domain.NewMessage("t", 2)))

		assert.Len(t, sub, 1)
	})

	t.Run("cancelling the context closes the subscription", func(t *testing.T) {
		hub := NewHub(0)
		ctx, cancel := context.WithCancel(context.Background())
		sub := hub.Subscribe(ctx, "", 1)
		assert.Equal(t, 1, hub.Subscribers())

		cancel()

		select {
		case _, ok := <-sub:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscription was not closed")
		}
		assert.Equal(t, 0, hub.Subscribers())
	})
}
