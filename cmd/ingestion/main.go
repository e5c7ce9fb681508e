// Command ingestion accepts document uploads over HTTP and writes them to the
// configured object store. PUT /api/v1/objects/{name} stores the body;
// ?reindex=true also publishes an index request for the object's directory
// when Kafka brokers are configured.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/backend"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "listen port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port, "storage", cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	store, err := backend.Open(ctx, cfg, backend.WithMetrics(m))
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher consumer.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexRequest)
		defer producer.Close()
		publisher = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.IndexRequest)
	} else {
		slog.Warn("no kafka brokers configured, re-index requests disabled")
	}

	checker := health.NewChecker()
	checker.Register("storage", health.PingCheck(store.Ping, health.StatusDown))

	mux := http.NewServeMux()
	ingestion.NewHandler(ingestion.NewUploader(store, publisher)).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
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

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
