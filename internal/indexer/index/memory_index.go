// Package index holds the in-memory inverted index a multi-object indexing
// pass merges every document's term list into.
package index

import (
	"sort"
	"sync"
)

// MemoryIndex maps term -> document -> posting. Each AddDocument call is
// applied under one write lock, so readers never see a document half
// merged.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]map[string]*Posting
	docs  map[string][]string
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[string]*Posting),
		docs:  make(map[string][]string),
	}
}

// AddDocument merges the term list of docID. Re-adding a document replaces
// its previous postings. A document with no terms is still counted.
func (m *MemoryIndex) AddDocument(docID string, terms []string) {
	termData := make(map[string]*Posting)
	for _, term := range terms {
		p, exists := termData[term]
		if !exists {
			p = &Posting{DocID: docID}
			termData[term] = p
		}
		p.Frequency++
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docID)
	docTerms := make([]string, 0, len(termData))
	for term, posting := range termData {
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[string]*Posting)
		}
		m.index[term][docID] = posting
		m.size += postingSize(term, posting)
		docTerms = append(docTerms, term)
	}
	m.docs[docID] = docTerms
}

func (m *MemoryIndex) removeLocked(docID string) {
	old, ok := m.docs[docID]
	if !ok {
		return
	}
	for _, term := range old {
		docs := m.index[term]
		if p, ok := docs[docID]; ok {
			m.size -= postingSize(term, p)
			delete(docs, docID)
		}
		if len(docs) == 0 {
			delete(m.index, term)
		}
	}
	delete(m.docs, docID)
}

// Get returns the sorted identifiers of documents containing term.
func (m *MemoryIndex) Get(term string) []string {
	return m.Search(term).DocIDs()
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns every term with its postings, both sorted, ready for the
// segment writer.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Terms returns the number of distinct terms.
func (m *MemoryIndex) Terms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// Size is an estimate of the index's memory footprint in bytes.
func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = make(map[string][]string)
	m.size = 0
}

func postingSize(term string, p *Posting) int64 {
	return int64(len(term) + len(p.DocID) + 64)
}
