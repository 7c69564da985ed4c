package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/proof-collab/proof-sync/internal/compression"
	"github.com/proof-collab/proof-sync/internal/config"
	"github.com/proof-collab/proof-sync/internal/database"
	"github.com/proof-collab/proof-sync/internal/document"
	"github.com/proof-collab/proof-sync/internal/monitoring"
	"github.com/proof-collab/proof-sync/internal/observability"
	"github.com/proof-collab/proof-sync/internal/sync"
)

const (
	AppName    = "proof-sync"
	AppVersion = "0.1.0"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting proof sync", zap.String("version", AppVersion))

	// Initialize database
	db, err := database.NewDB(cfg.GetDBPath())
	if err != nil {
		logger.Fatal("Failed to initialize database",
			zap.Error(err),
			zap.String("path", cfg.GetDBPath()))
	}
	defer db.Close()

	logger.Info("Database initialized", zap.String("path", cfg.GetDBPath()))

	// Initialize payload compression for the operation log
	var compressor compression.Compressor
	if cfg.Compression.Enabled {
		compressor, err = compression.NewCompressor(cfg.Compression.Algorithm, cfg.Compression.Level)
		if err != nil {
			logger.Fatal("Failed to initialize payload compression", zap.Error(err))
		}
		logger.Info("Payload compression enabled",
			zap.String("algorithm", cfg.Compression.Algorithm),
			zap.Int("threshold", cfg.Compression.PayloadSizeThreshold))
	}
	store := database.NewStore(db, compressor, cfg.Compression.PayloadSizeThreshold)

	// Initialize otel metrics
	var otelMetrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		ctx := context.Background()
		meterProvider, metricsShutdown, err := observability.InitMetricsProvider(ctx, cfg.Observability.OTELendpoint, AppName)
		if err != nil {
			logger.Fatal("Failed to initialize metrics provider", zap.Error(err))
		}
		defer func() {
			if err := metricsShutdown(); err != nil {
				logger.Error("Failed to shutdown metrics provider", zap.Error(err))
			}
		}()

		otelMetrics, err = observability.NewMetrics(meterProvider, AppName)
		if err != nil {
			logger.Fatal("Failed to initialize metrics", zap.Error(err))
		}
		logger.Info("Metrics initialized")
	}

	// Initialize tracing
	if cfg.Observability.TracingEnabled {
		ctx := context.Background()
		_, tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.OTELendpoint, AppName)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tracingShutdown(); err != nil {
				logger.Error("Failed to shutdown tracing", zap.Error(err))
			}
		}()
		logger.Info("Tracing initialized")
	}

	metrics := monitoring.NewMetrics(otelMetrics)

	// Determine device ID
	deviceID := cfg.Sync.DeviceID
	if deviceID == "" {
		deviceID = generateDeviceID()
		logger.Info("Generated device ID", zap.String("device_id", deviceID))
	} else {
		logger.Info("Using configured device ID", zap.String("device_id", deviceID))
	}

	// Initialize sync engine. No transport is wired here; remote batches
	// arrive through whatever messenger the deployment plugs in.
	engine, err := sync.NewEngine(sync.DeviceID(deviceID), document.New(), store, nil, logger, metrics)
	if err != nil {
		logger.Fatal("Failed to create sync engine", zap.Error(err))
	}
	logger.Info("Sync engine initialized", zap.String("device_id", deviceID))

	// Start monitoring server
	var monitoringServer *monitoring.Server
	if cfg.Monitoring.Enabled {
		monitoringServer = monitoring.NewServer(metrics, logger, cfg.Monitoring.Port)
		if err := monitoringServer.Start(); err != nil {
			logger.Fatal("Failed to start monitoring server", zap.Error(err))
		}
		logger.Info("Monitoring server started", zap.Int("port", cfg.Monitoring.Port))
	}

	logger.Info("Proof sync initialized successfully")
	_ = engine

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("Shutting down...")

	if monitoringServer != nil {
		if err := monitoringServer.Stop(); err != nil {
			logger.Error("Failed to stop monitoring server", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
}

// generateDeviceID generates a unique device ID
func generateDeviceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	timestamp := time.Now().UnixNano()
	return fmt.Sprintf("%s-%d", hostname, timestamp)
}
