package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/dapipe/internal/application/extractor"
	"github.com/aescanero/dapipe/internal/application/monitor"
	"github.com/aescanero/dapipe/internal/application/orchestrator"
	"github.com/aescanero/dapipe/internal/application/queue"
	"github.com/aescanero/dapipe/internal/application/workers"
	"github.com/aescanero/dapipe/internal/config"
	"github.com/aescanero/dapipe/pkg/adapters/bridge"
	bridgehttp "github.com/aescanero/dapipe/pkg/adapters/bridge/http"
	"github.com/aescanero/dapipe/pkg/adapters/bridge/memory"
	"github.com/aescanero/dapipe/pkg/adapters/bridge/mqtt"
	bridgeredis "github.com/aescanero/dapipe/pkg/adapters/bridge/redis"
	"github.com/aescanero/dapipe/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/aescanero/dapipe/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/dapipe/pkg/adapters/storage/redis"
	"github.com/aescanero/dapipe/pkg/api/grpc"
	"github.com/aescanero/dapipe/pkg/api/http"
	"github.com/aescanero/dapipe/pkg/api/websocket"
	"github.com/aescanero/dapipe/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		exitOnError("Failed to load config", err)
	}

	logger := initLogger(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	logger.Info("starting dapipe",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Stats storage
	var statsStore ports.StatsStore
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		statsStore = redisstorage.NewStatsStore(redisClient, cfg.Storage.RunTTL, logger)
	default:
		statsStore = memorystorage.NewStatsStore()
	}

	mon := monitor.New()
	if saved, err := statsStore.LoadStats(ctx); err != nil {
		logger.Warn("failed to restore monitoring statistics", zap.Error(err))
	} else if saved != nil {
		mon.Restore(*saved)
		logger.Info("restored monitoring statistics",
			zap.Uint64("data_processed", saved.DataProcessed),
			zap.Uint64("errors", saved.Errors))
	}

	// Bridges
	hub := memory.NewHub(cfg.Bridge.History)
	bridges := bridge.NewMulti().Add("hub", hub)

	if cfg.Bridge.HTTPEndpoint != "" {
		bridges.Add("http", bridgehttp.NewBridge(cfg.Bridge.HTTPEndpoint, cfg.Bridge.Timeout, logger))
	}

	var mqttBridge *mqtt.Bridge
	if cfg.Bridge.MQTTBroker != "" {
		mqttBridge, err = mqtt.Connect(&mqtt.Config{
			Broker:   cfg.Bridge.MQTTBroker,
			ClientID: cfg.Bridge.MQTTClientID,
			QoS:      byte(cfg.Bridge.MQTTQoS),
			Timeout:  cfg.Bridge.Timeout,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal("failed to connect MQTT bridge", zap.Error(err))
		}
		bridges.Add("mqtt", mqttBridge)
	}

	if cfg.Bridge.RedisStream != "" {
		bridges.Add("redis", bridgeredis.NewStreamsBridge(redisClient, cfg.Bridge.RedisStream, cfg.Bridge.RedisStreamMaxLen, logger))
	}

	logger.Info("bridges configured", zap.Int("count", bridges.Len()))

	metricsCollector := prometheus.NewCollector()

	// Initialize application components
	graphExtractor := extractor.NewWithSource(cfg.Pipeline.ExtractorSource)

	manager := orchestrator.NewManager(
		orchestrator.NewRegistry(graphExtractor),
		mon,
		bridges,
		statsStore,
		metricsCollector,
		logger,
		cfg.Bridge.Topic,
	)

	workQueue := queue.NewRegistry(cfg.Pipeline.WorkDir)

	queueWorker := workers.NewQueueWorker(
		workQueue,
		manager,
		metricsCollector,
		logger,
		cfg.Pipeline.PollInterval,
	)

	healthMonitor := workers.NewHealthMonitor(
		queueWorker,
		workQueue,
		metricsCollector,
		cfg.Pipeline.HealthInterval,
		logger,
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:      cfg.HTTPPort,
		Version:   Version,
		Manager:   manager,
		Queue:     workQueue,
		Extractor: graphExtractor,
		Health:    healthMonitor,
		Logger:    logger,
	})

	httpServer.SetupWebSocket(websocket.NewHandler(hub, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}
	healthMonitor.OnChange(grpcServer.SetHealthy)

	// Start background work
	if err := queueWorker.Start(); err != nil {
		logger.Fatal("failed to start queue worker", zap.Error(err))
	}
	healthMonitor.Start()

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("dapipe started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("work_dir", cfg.Pipeline.WorkDir),
		zap.Duration("poll_interval", queueWorker.Interval()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	healthMonitor.Stop()

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := queueWorker.Shutdown(shutdownCtx); err != nil {
		logger.Error("queue worker shutdown error", zap.Error(err))
	}

	if err := hub.Close(); err != nil {
		logger.Error("event hub close error", zap.Error(err))
	}

	if mqttBridge != nil {
		if err := mqttBridge.Close(); err != nil {
			logger.Error("MQTT bridge close error", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("dapipe shut down complete")
}
