package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/backend"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	output := flag.String("output", "", "index object to serve (overrides indexer.output)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Indexer.Output = *output
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting lookup service", "port", cfg.Server.Port, "output", cfg.Indexer.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	store, err := backend.Open(ctx, cfg, backend.WithMetrics(m))
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var cache lookup.Cache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, lookup caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cache = lookup.NewTermCache(redisClient, cfg.Redis, cfg.Indexer.Output, m)
		slog.Info("lookup cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	svc := lookup.NewService(store, cfg.Indexer.Output, cache, m)
	if err := svc.Load(ctx); err != nil {
		if !errors.Is(err, apperrors.ErrIndexNotLoaded) {
			slog.Error("failed to load index", "error", err)
			os.Exit(1)
		}
		slog.Warn("index not found yet, serving 503 until reload", "output", cfg.Indexer.Output)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		info := svc.Info()
		if !info.Loaded {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms, %d docs", info.Terms, info.Docs)}
	})
	storagePing := health.PingCheck(store.Ping, health.StatusDegraded)
	checker.Register("storage", func(ctx context.Context) health.ComponentHealth {
		if state, ok := store.BreakerState(); ok && state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return storagePing(ctx)
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
	}

	mux := http.NewServeMux()
	lookup.NewHandler(svc).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("lookup service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("lookup service stopped")
}
