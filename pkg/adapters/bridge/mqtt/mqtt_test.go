package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeToken completes immediately unless pending is set
type fakeToken struct {
	err     error
	pending bool
	done    chan struct{}
}

func newFakeToken(err error, pending bool) *fakeToken {
	t := &fakeToken{err: err, pending: pending, done: make(chan struct{})}
	if !pending {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	token        paho.Token
	topic        string
	qos          byte
	payload      []byte
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p.topic = topic
	p.qos = qos
	p.payload = payload.([]byte)
	return p.token
}

func (p *fakePublisher) Disconnect(quiesce uint) { p.disconnected = true }

func TestBridge(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes json on the message topic", func(t *testing.T) {
		pub := &fakePublisher{token: newFakeToken(nil, false)}
		bridge := NewBridge(pub, 1, time.Second, zap.NewNop())
		msg := domain.NewMessage("dapipe/pipelines", map[string]any{"edges": 1.0})

		require.NoError(t, bridge.Send(ctx, msg))

		assert.Equal(t, "dapipe/pipelines", pub.topic)
		assert.Equal(t, byte(1), pub.qos)
		var decoded domain.Message
		require.NoError(t, json.Unmarshal(pub.payload, &decoded))
		assert.Equal(t, msg.ID, decoded.ID)
	})

	t.Run("broker error is returned", func(t *testing.T) {
		pub := &fakePublisher{token: newFakeToken(errors.New("not connected"), false)}

		err := NewBridge(pub, 0, time.Second, zap.NewNop()).Send(ctx, domain.NewMessage("t", nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not connected")
	})

	t.Run("unacknowledged publish times out", func(t *testing.T) {
		pub := &fakePublisher{token: newFakeToken(nil, true)}

		err := NewBridge(pub, 0, 10*time.Millisecond, zap.NewNop()).Send(ctx, domain.NewMessage("t", nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("close disconnects", func(t *testing.T) {
		pub := &fakePublisher{token: newFakeToken(nil, false)}

		require.NoError(t, NewBridge(pub, 0, time.Second, zap.NewNop()).Close())
		assert.True(t, pub.disconnected)
	})
}
