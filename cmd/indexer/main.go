package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/status"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/wordindex"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/backend"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	mode := flag.String("mode", "run", "run: index once and exit; consume: serve index requests from kafka")
	prefix := flag.String("prefix", "", "object prefix to index (overrides indexer.prefix)")
	output := flag.String("output", "", "object name the index is written to (overrides indexer.output)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *prefix != "" {
		cfg.Indexer.Prefix = *prefix
	}
	if *output != "" {
		cfg.Indexer.Output = *output
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"mode", *mode,
		"backend", cfg.Storage.Backend,
		"concurrency", cfg.Indexer.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mode); err != nil {
		slog.Error("indexer failed", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("indexer stopped")
}

func run(ctx context.Context, cfg *config.Config, mode string) error {
	if mode != "run" && mode != "consume" {
		return fmt.Errorf("unknown mode %q", mode)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		srv, err := metrics.StartServer(cfg.Metrics.Port)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := backend.Open(ctx, cfg, backend.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	opts := []indexer.Option{
		indexer.WithMetrics(m),
		indexer.WithTracing(cfg.Tracing.Enabled),
	}
	if cfg.Postgres.RecordStatus {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting status database: %w", err)
		}
		defer pg.Close()
		recorder := status.New(pg.DB)
		if err := recorder.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, indexer.WithObserver(recorder))
		slog.Info("index status recording enabled")
	}

	engine, err := indexer.NewEngine(cfg.Indexer, store, opts...)
	if err != nil {
		return err
	}

	var publisher consumer.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		publisher = producer
	}
	handler := consumer.NewHandler(engine, wordindex.IndexByWords, publisher, cfg.Indexer)

	if mode == "run" {
		event, err := handler.Run(ctx, consumer.IndexRequest{})
		if err != nil {
			return err
		}
		slog.Info("index written",
			"output", event.Output,
			"indexed", event.Indexed,
			"failed", event.Failed,
			"terms", event.Terms,
			"duration_ms", event.DurationMs,
		)
		return nil
	}

	if publisher == nil {
		return errors.New("consume mode requires kafka.brokers")
	}
	indexConsumer := consumer.New(cfg.Kafka, handler)
	slog.Info("indexer ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.IndexRequest,
		"group", cfg.Kafka.ConsumerGroup,
	)
	return indexConsumer.Start(ctx)
}
