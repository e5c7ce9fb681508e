// Package consumer drives indexing passes from Kafka: every IndexRequest
// read from the request topic runs one MultiIndex pass, and the outcome is
// published to the completion topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
)

// Indexer runs one indexing pass.
type Indexer interface {
	MultiIndex(ctx context.Context, prefix, output string, fn indexer.ExtractFunc) (*indexer.Result, error)
}

// Publisher delivers completion events.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Handler turns index requests into passes.
type Handler struct {
	engine    Indexer
	extract   indexer.ExtractFunc
	publisher Publisher
	defaults  config.IndexerConfig
	logger    *slog.Logger
}

// NewHandler creates a Handler. publisher may be nil, in which case
// completion events are only logged.
func NewHandler(engine Indexer, fn indexer.ExtractFunc, publisher Publisher, defaults config.IndexerConfig) *Handler {
	return &Handler{
		engine:    engine,
		extract:   fn,
		publisher: publisher,
		defaults:  defaults,
		logger:    slog.Default().With("component", "index-consumer"),
	}
}

// Run executes req and publishes its completion event. The returned error is
// the pass error; a publish failure is only returned when the pass itself
// succeeded.
func (h *Handler) Run(ctx context.Context, req IndexRequest) (*IndexCompleteEvent, error) {
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("idx-%d", time.Now().UnixNano())
	}
	if req.Prefix == "" {
		req.Prefix = h.defaults.Prefix
	}
	if req.Output == "" {
		req.Output = h.defaults.Output
	}
	ctx = logger.WithRequestID(ctx, req.RequestID)

	event := &IndexCompleteEvent{
		RequestID: req.RequestID,
		Prefix:    req.Prefix,
		Output:    req.Output,
		Status:    StatusSucceeded,
	}
	start := time.Now()
	result, runErr := h.engine.MultiIndex(ctx, req.Prefix, req.Output, h.extract)
	if runErr != nil {
		event.Status = StatusFailed
		event.Error = runErr.Error()
	} else {
		event.Objects = result.Objects
		event.Indexed = result.Indexed
		event.Failed = len(result.Failures)
		event.Terms = result.Terms
		event.Failures = result.Failures
	}
	event.DurationMs = time.Since(start).Milliseconds()
	event.CompletedAt = time.Now().UTC()

	pubErr := h.publish(ctx, event)
	if runErr != nil {
		return event, runErr
	}
	return event, pubErr
}

func (h *Handler) publish(ctx context.Context, event *IndexCompleteEvent) error {
	log := logger.FromContext(ctx).With("component", "index-consumer")
	if h.publisher == nil {
		log.Info("index pass finished",
			"status", event.Status,
			"objects", event.Objects,
			"failed", event.Failed,
		)
		return nil
	}
	if err := h.publisher.Publish(ctx, kafka.Event{Key: event.Output, Value: event}); err != nil {
		log.Error("failed to publish completion event", "error", err)
		return fmt.Errorf("publishing completion of %s: %w", event.RequestID, err)
	}
	log.Info("completion event published",
		"status", event.Status,
		"objects", event.Objects,
		"failed", event.Failed,
	)
	return nil
}

// HandleMessage returns a kafka.MessageHandler for the request topic.
// Malformed requests and failed passes are logged and committed; only a
// failure to publish the completion event leaves the message uncommitted.
func (h *Handler) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[IndexRequest](value)
		if err != nil {
			h.logger.Error("failed to decode index request",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		h.logger.Debug("processing index request",
			"request_id", req.RequestID,
			"prefix", req.Prefix,
		)
		event, err := h.Run(ctx, req)
		if err != nil && event.Status == StatusSucceeded {
			return err
		}
		if err != nil {
			h.logger.Error("index pass failed",
				"request_id", event.RequestID,
				"error", err,
			)
		}
		return nil
	}
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer reading the request topic with h.
func New(cfg config.KafkaConfig, h *Handler) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafka.NewConsumer(cfg, cfg.Topics.IndexRequest, h.HandleMessage()),
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}
