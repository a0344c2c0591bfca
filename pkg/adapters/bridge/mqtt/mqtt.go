package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher is the subset of the paho client the bridge uses
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Bridge implements ports.Bridge by publishing messages to an MQTT broker.
// The message topic is used as the MQTT topic.
type Bridge struct {
	client  Publisher
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds MQTT bridge configuration
type Config struct {
	Broker   string
	ClientID string
	QoS      byte
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Connect dials the broker and returns a ready bridge
func Connect(cfg *Config) (*Bridge, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	cfg.Logger.Info("connected to MQTT broker",
		zap.String("broker", cfg.Broker),
		zap.String("client_id", cfg.ClientID))

	return NewBridge(client, cfg.QoS, cfg.Timeout, cfg.Logger), nil
}

// NewBridge wraps an already connected client
func NewBridge(client Publisher, qos byte, timeout time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{
		client:  client,
		qos:     qos,
		timeout: timeout,
		logger:  logger,
	}
}

// Send publishes msg and waits for the broker acknowledgement, bounded by
// the bridge timeout and ctx
func (b *Bridge) Send(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	token := b.client.Publish(msg.Topic, b.qos, false, data)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("timed out publishing to %s", msg.Topic)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}

	b.logger.Debug("message published",
		zap.String("msg_id", msg.ID),
		zap.String("topic", msg.Topic))

	return nil
}

// Close disconnects from the broker
func (b *Bridge) Close() error {
	b.client.Disconnect(250)
	return nil
}
