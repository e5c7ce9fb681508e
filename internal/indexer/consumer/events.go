package consumer

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
)

// IndexRequest asks for a full indexing pass over Prefix. Empty fields fall
// back to the configured defaults.
type IndexRequest struct {
	RequestID string `json:"request_id"`
	Prefix    string `json:"prefix"`
	Output    string `json:"output"`
}

const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// IndexCompleteEvent is published once per pass, successful or not.
type IndexCompleteEvent struct {
	RequestID   string            `json:"request_id"`
	Prefix      string            `json:"prefix"`
	Output      string            `json:"output"`
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Objects     int               `json:"objects"`
	Indexed     int               `json:"indexed"`
	Failed      int               `json:"failed"`
	Terms       int               `json:"terms"`
	DurationMs  int64             `json:"duration_ms"`
	Failures    []indexer.Failure `json:"failures,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}
