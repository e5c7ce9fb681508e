package indexer

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

// Object is one document of an indexing pass. Output is the name the pass
// persists its index under; extraction functions treat it as opaque.
type Object struct {
	Name   string
	Output string
}

// ExtractFunc turns one stored object into its term list. It is called
// concurrently for different objects of the same pass.
type ExtractFunc func(ctx context.Context, store storage.Reader, obj Object) ([]string, error)

// Observer is notified about each object as the pass completes it. Calls
// arrive from worker goroutines and must be safe for concurrent use.
type Observer interface {
	ObjectIndexed(ctx context.Context, obj Object, terms int)
	ObjectFailed(ctx context.Context, obj Object, err error)
}

// Failure describes an object that was left out of the index.
type Failure struct {
	Object string `json:"object"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

// Result is the outcome of a MultiIndex pass.
type Result struct {
	Index    *index.MemoryIndex
	Output   string
	Objects  int
	Indexed  int
	Failures []Failure
	Terms    int
	Duration time.Duration
}

// Get returns the sorted identifiers of documents containing term.
func (r *Result) Get(term string) []string {
	return r.Index.Get(term)
}
