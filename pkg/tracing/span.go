// Package tracing provides lightweight spans that ride on a context.Context.
// An indexing run opens a root span and every per-object read hangs a child
// off it. The finished run is logged as a summary.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type contextKey string

const spanKey contextKey = "trace_span"

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

// StartSpan creates a new root span and stores it in the returned context.
// An empty traceID is replaced by one derived from the start time.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	now := time.Now()
	if traceID == "" {
		traceID = fmt.Sprintf("%x", now.UnixNano())
	}
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: now,
		Children:  make([]*Span, 0),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan creates a child span linked to the parent in ctx. Without a
// parent the child is returned detached and never logged.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	child := &Span{
		Name:      name,
		StartTime: time.Now(),
		Children:  make([]*Span, 0),
		Attrs:     make(map[string]any),
	}

	if parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}

	return context.WithValue(ctx, spanKey, child), child
}

func (s *Span) End() {
	s.mu.Lock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.mu.Unlock()
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SetError records err under the "error" attribute. A nil err is ignored.
func (s *Span) SetError(err error) {
	if err == nil {
		return
	}
	s.SetAttr("error", err.Error())
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the span to logger, or to the default logger when nil. The root
// line carries child and error counts; at most limit children follow, failed
// ones first and then the slowest. A limit of zero or less logs every child.
// Grandchildren are not logged.
func (s *Span) Log(logger *slog.Logger, limit int) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs, children := s.snapshot()

	failed := 0
	for _, c := range children {
		if c.failed() {
			failed++
		}
	}
	logger.Info("span", append(attrs, "children", len(children), "failed_children", failed)...)

	sort.SliceStable(children, func(i, j int) bool {
		fi, fj := children[i].failed(), children[j].failed()
		if fi != fj {
			return fi
		}
		return children[i].duration() > children[j].duration()
	})
	if limit > 0 && len(children) > limit {
		children = children[:limit]
	}
	for _, c := range children {
		childAttrs, _ := c.snapshot()
		logger.Info("span", append(childAttrs, "parent", s.Name)...)
	}
}

func (s *Span) snapshot() ([]any, []*Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, s.Attrs[k])
	}
	return attrs, append([]*Span(nil), s.Children...)
}

func (s *Span) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Attrs["error"]
	return ok
}

func (s *Span) duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Duration
}
