package tracing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansAttachToRoot(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "multi_index", "req-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, child := StartChildSpan(ctx, "index_by_words")
			child.SetAttr("doc_id", "x")
			child.End()
		}()
	}
	wg.Wait()
	root.End()

	require.Len(t, root.Children, 8)
	for _, child := range root.Children {
		assert.Equal(t, "req-1", child.TraceID)
	}
}

func TestStartSpanGeneratesTraceID(t *testing.T) {
	_, span := StartSpan(context.Background(), "run", "")
	assert.NotEmpty(t, span.TraceID)
}

func TestChildWithoutParentIsDetached(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, SpanFromContext(ctx))
}

func TestLogWritesSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := StartSpan(context.Background(), "multi_index", "trace-9")
	for i := 0; i < 5; i++ {
		_, child := StartChildSpan(ctx, "index_by_words")
		child.SetAttr("doc_id", fmt.Sprintf("doc-%d", i))
		if i == 3 {
			child.SetError(errors.New("boom"))
		}
		child.End()
	}
	root.End()
	root.Log(logger, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "span=multi_index")
	assert.Contains(t, lines[0], "children=5")
	assert.Contains(t, lines[0], "failed_children=1")
	assert.Contains(t, lines[1], "doc_id=doc-3")
	assert.Contains(t, lines[1], "error=boom")
	assert.Contains(t, lines[1], "parent=multi_index")
}

func TestLogWithoutLimit(t *testing.T) {
	var buf bytes.Buffer
	ctx, root := StartSpan(context.Background(), "multi_index", "trace-1")
	for i := 0; i < 3; i++ {
		_, child := StartChildSpan(ctx, "index_by_words")
		child.End()
	}
	root.End()
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)), 0)
	assert.Equal(t, 4, strings.Count(buf.String(), "msg=span"))
}
