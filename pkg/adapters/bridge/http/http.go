package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"go.uber.org/zap"
)

// Bridge implements ports.Bridge by POSTing messages as JSON to a flow
// engine endpoint
type Bridge struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewBridge creates a new HTTP bridge
func NewBridge(endpoint string, timeout time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Endpoint returns the configured endpoint URL
func (b *Bridge) Endpoint() string {
	return b.endpoint
}

// Send posts msg to the endpoint. Any non-2xx response is an error.
func (b *Bridge) Send(ctx context.Context, msg domain.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP request failed with status: %s", resp.Status)
	}

	b.logger.Debug("message posted",
		zap.String("msg_id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.Int("status", resp.StatusCode))

	return nil
}
