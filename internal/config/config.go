package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for dapipe
type Config struct {
	// Server configuration
	HTTPPort int    `env:"DAPIPE_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"DAPIPE_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFile enables a rotated file sink next to stdout
	LogFile string `env:"LOG_FILE"`

	Pipeline PipelineConfig

	Storage StorageConfig

	// Redis configuration
	Redis RedisConfig

	Bridge BridgeConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// PipelineConfig holds work queue configuration
type PipelineConfig struct {
	WorkDir        string        `env:"PIPELINE_WORK_DIR" envDefault:"./work/pipelines"`
	PollInterval   time.Duration `env:"PIPELINE_POLL_INTERVAL" envDefault:"60s"`
	HealthInterval time.Duration `env:"PIPELINE_HEALTH_INTERVAL" envDefault:"30s"`

	// ExtractorSource names the input dialect recorded in graph metadata
	ExtractorSource string `env:"EXTRACTOR_SOURCE" envDefault:"bloodhound"`
}

// StorageConfig selects where monitoring statistics are persisted
type StorageConfig struct {
	Backend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	RunTTL  time.Duration `env:"STATS_RUN_TTL" envDefault:"24h"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// BridgeConfig holds notification bridge configuration. Every transport with
// a non-empty address is enabled; the in-process hub is always on.
type BridgeConfig struct {
	Topic   string        `env:"BRIDGE_TOPIC" envDefault:"dapipe/pipelines"`
	Timeout time.Duration `env:"BRIDGE_TIMEOUT" envDefault:"10s"`
	History int           `env:"BRIDGE_HISTORY" envDefault:"100"`

	HTTPEndpoint string `env:"BRIDGE_HTTP_ENDPOINT"`

	MQTTBroker   string `env:"BRIDGE_MQTT_BROKER"`
	MQTTClientID string `env:"BRIDGE_MQTT_CLIENT_ID" envDefault:"dapipe"`
	MQTTQoS      int    `env:"BRIDGE_MQTT_QOS" envDefault:"1"`

	RedisStream       string `env:"BRIDGE_REDIS_STREAM"`
	RedisStreamMaxLen int64  `env:"BRIDGE_REDIS_STREAM_MAXLEN" envDefault:"10000"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if c.Pipeline.ExtractorSource == "" {
		return fmt.Errorf("extractor source is required")
	}
	if c.Pipeline.WorkDir == "" {
		return fmt.Errorf("pipeline work directory is required")
	}
	if c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline poll interval must be positive")
	}
	if c.Pipeline.HealthInterval <= 0 {
		return fmt.Errorf("pipeline health interval must be positive")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be memory or redis)", c.Storage.Backend)
	}

	if c.Bridge.RedisStream != "" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required for the redis stream bridge")
	}
	if c.Bridge.MQTTQoS < 0 || c.Bridge.MQTTQoS > 2 {
		return fmt.Errorf("invalid MQTT QoS: %d", c.Bridge.MQTTQoS)
	}
	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge timeout must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// NeedsRedis reports whether any component uses the Redis client
func (c *Config) NeedsRedis() bool {
	return c.Storage.Backend == StorageRedis || c.Bridge.RedisStream != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
