// Package main wires the session engine's control-plane HTTP shim,
// worker pool, broker adapter, and metrics endpoint into a runnable
// server. Persistence, auth, and credential storage are out of scope
// (see internal/api's SessionStore/BrokerProvider seams); this binary
// uses the in-memory api.MemStore for sessions and a single-account
// provider that hands every session the same live KIS adapter.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/session-engine/internal/api"
	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/config"
	"github.com/atlas-desktop/session-engine/internal/engine"
	"github.com/atlas-desktop/session-engine/internal/metrics"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/workers"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (optional, env vars and defaults apply regardless)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting session engine",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("broker_environment", cfg.BrokerEnvironment),
	)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workers.NewPool(logger, workers.DefaultPoolConfig("broker"))
	pool.Start()

	manager := engine.NewManager(logger)
	wsRegistry := ws.NewRegistry(logger)
	strategies := strategy.NewRegistry()
	store := api.NewMemStore()
	brokers := newSingleAccountBrokerProvider(cfg, pool, logger)

	server := api.NewServer(logger, cfg.Server, store, brokers, strategies, manager, wsRegistry, cfg.MarketHours, cfg.Session)

	metricsServer := &http.Server{
		Addr:    formatAddr(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	cancel()

	for _, sessionID := range manager.ActiveSessionIDs() {
		manager.StopSession(sessionID)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping server", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error stopping metrics server", zap.Error(err))
	}
	if err := pool.Stop(); err != nil {
		logger.Error("error stopping worker pool", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// singleAccountBrokerProvider resolves every session to the same
// broker.Adapter, built once from the process's own credentials. A
// multi-tenant deployment supplies its own BrokerProvider that looks
// up per-user credentials instead; this one exists so the reference
// binary runs end to end against one KIS account.
type singleAccountBrokerProvider struct {
	adapter broker.Adapter
}

func newSingleAccountBrokerProvider(cfg config.Config, pool *workers.Pool, logger *zap.Logger) *singleAccountBrokerProvider {
	creds := broker.Credentials{
		AppKey:        cfg.BrokerAppKey,
		AppSecret:     cfg.BrokerAppSecret,
		AccountNo:     cfg.BrokerAccountNo,
		AccountSuffix: cfg.BrokerAccountSuffix,
		Environment:   cfg.BrokerEnvironment,
		HTSID:         cfg.BrokerHTSID,
	}
	adapter := broker.NewKISAdapter(creds, broker.NewKISHTTPClientFactory(), pool, logger, cfg.RateLimiter)
	return &singleAccountBrokerProvider{adapter: adapter}
}

func (p *singleAccountBrokerProvider) BrokerFor(_ *types.Session) (broker.Adapter, error) {
	return p.adapter, nil
}

func formatAddr(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
