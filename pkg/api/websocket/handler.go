package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const subscriberBuffer = 32

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscriber is the source of streamed messages
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, buffer int) <-chan domain.Message
}

// Handler handles WebSocket connections
type Handler struct {
	events Subscriber
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(events Subscriber, logger *zap.Logger) *Handler {
	return &Handler{
		events: events,
		logger: logger,
	}
}

// HandleEventStream streams pipeline notifications. The optional topic and
// pipeline_id query parameters narrow the stream.
func (h *Handler) HandleEventStream(c *gin.Context) {
	topic := c.Query("topic")
	pipelineID := c.Query("pipeline_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("topic", topic),
		zap.String("pipeline_id", pipelineID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := h.events.Subscribe(ctx, topic, subscriberBuffer)

	// the client never sends anything; reading detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}

			if pipelineID != "" && messagePipelineID(msg) != pipelineID {
				continue
			}

			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal message", zap.Error(err))
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}
		}
	}
}

func messagePipelineID(msg domain.Message) string {
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := payload["pipeline_id"].(string)
	return id
}
