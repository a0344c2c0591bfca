package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBridge(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the message as json", func(t *testing.T) {
		var received domain.Message
		var contentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		bridge := NewBridge(srv.URL, time.Second, zap.NewNop())
		msg := domain.NewMessage("dapipe/pipelines", map[string]any{"nodes": 2.0}).WithMetadata("origin", "test")

		require.NoError(t, bridge.Send(ctx, msg))
		assert.Equal(t, "application/json", contentType)
		assert.Equal(t, msg.ID, received.ID)
		assert.Equal(t, "test", received.Metadata["origin"])
		assert.Equal(t, srv.URL, bridge.Endpoint())
	})

	t.Run("non success status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewBridge(srv.URL, time.Second, zap.NewNop()).Send(ctx, domain.NewMessage("t", nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		err := NewBridge(url, time.Second, zap.NewNop()).Send(ctx, domain.NewMessage("t", nil))

		assert.Error(t, err)
	})
}
