package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexAddAndGet(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("foo", []string{"this", "is", "sentence", "is"})
	mi.AddDocument("bar", []string{"another", "sentence"})
	mi.AddDocument("empty", nil)

	assert.Equal(t, []string{"bar", "foo"}, mi.Get("sentence"))
	assert.Equal(t, []string{"foo"}, mi.Get("this"))
	assert.Empty(t, mi.Get("missing"))
	assert.Equal(t, 3, mi.DocCount())
	assert.Equal(t, 4, mi.Terms())

	postings := mi.Search("is")
	require.Len(t, postings, 1)
	assert.Equal(t, Posting{DocID: "foo", Frequency: 2}, postings[0])
}

func TestMemoryIndexReAddReplaces(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("doc", []string{"old", "shared"})
	sizeBefore := mi.Size()
	mi.AddDocument("doc", []string{"new", "shared"})

	assert.Empty(t, mi.Get("old"))
	assert.Equal(t, []string{"doc"}, mi.Get("new"))
	assert.Equal(t, []string{"doc"}, mi.Get("shared"))
	assert.Equal(t, 1, mi.DocCount())
	assert.Equal(t, 2, mi.Terms())
	assert.Equal(t, sizeBefore, mi.Size())
}

func TestMemoryIndexSearchReturnsCopies(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("doc", []string{"term", "term"})
	got := mi.Search("term")
	got[0].Frequency = 99
	assert.Equal(t, 2, mi.Search("term")[0].Frequency)
}

func TestMemoryIndexSnapshotSorted(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("b", []string{"zeta", "alpha"})
	mi.AddDocument("a", []string{"alpha"})

	snap := mi.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "alpha", snap[0].Term)
	assert.Equal(t, []string{"a", "b"}, snap[0].Postings.DocIDs())
	assert.Equal(t, "zeta", snap[1].Term)

	mi.Reset()
	assert.Empty(t, mi.Snapshot())
	assert.Zero(t, mi.Size())
	assert.Zero(t, mi.DocCount())
}

func TestMemoryIndexConcurrentMerges(t *testing.T) {
	mi := NewMemoryIndex()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mi.AddDocument(fmt.Sprintf("doc-%02d", i), []string{"common", fmt.Sprintf("unique%c%c", 'a'+i/26, 'a'+i%26)})
			_ = mi.Get("common")
		}(i)
	}
	wg.Wait()

	assert.Len(t, mi.Get("common"), 50)
	assert.Equal(t, 51, mi.Terms())
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex()
	terms := []string{"this", "is", "benchmark", "document", "with", "several", "terms", "for", "testing"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(fmt.Sprintf("doc-%d", i), terms)
	}
}

func BenchmarkMemoryIndexGetParallel(b *testing.B) {
	mi := NewMemoryIndex()
	for i := 0; i < 10000; i++ {
		mi.AddDocument(fmt.Sprintf("doc-%d", i), []string{"distributed", "search", "engine"})
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = mi.Get("search")
		}
	})
}
