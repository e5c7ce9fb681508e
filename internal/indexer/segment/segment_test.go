package segment

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/index"
)

func buildIndex() *index.MemoryIndex {
	idx := index.NewMemoryIndex()
	idx.AddDocument("docs/a.txt", []string{"alpha", "beta", "alpha"})
	idx.AddDocument("docs/b.txt", []string{"beta", "gamma"})
	idx.AddDocument("docs/empty.txt", nil)
	return idx
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	idx := buildIndex()
	data, err := Encode(idx.Snapshot(), idx.DocCount())
	require.NoError(t, err)

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Terms())
	assert.Equal(t, uint32(3), r.DocCount())

	ids, err := r.Get("beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, ids)

	postings, err := r.Search("alpha")
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, index.Posting{DocID: "docs/a.txt", Frequency: 2}, postings[0])

	missing, err := r.Get("delta")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil, 0)
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize+len("[]")+FooterSize)

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Zero(t, r.Terms())
	ids, err := r.Get("anything")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReaderVersion(t *testing.T) {
	idx := buildIndex()
	data, err := Encode(idx.Snapshot(), idx.DocCount())
	require.NoError(t, err)

	first, err := Decode(data)
	require.NoError(t, err)
	again, err := Decode(append([]byte(nil), data...))
	require.NoError(t, err)
	assert.NotEmpty(t, first.Version())
	assert.Equal(t, first.Version(), again.Version())

	idx.AddDocument("docs/c.txt", []string{"delta"})
	changed, err := Encode(idx.Snapshot(), idx.DocCount())
	require.NoError(t, err)
	other, err := Decode(changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version(), other.Version())
}

func TestDecodeRejectsCorruption(t *testing.T) {
	idx := buildIndex()
	valid, err := Encode(idx.Snapshot(), idx.DocCount())
	require.NoError(t, err)

	corrupt := func(mutate func([]byte)) []byte {
		data := append([]byte(nil), valid...)
		mutate(data)
		return data
	}
	dictOffset := binary.LittleEndian.Uint64(valid[16:24])

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{name: "too short", data: valid[:HeaderSize], msg: "shorter"},
		{name: "bad magic", data: corrupt(func(d []byte) { d[0] ^= 0xff }), msg: "magic"},
		{name: "bad version", data: corrupt(func(d []byte) { binary.LittleEndian.PutUint32(d[4:8], 9) }), msg: "version"},
		{name: "dictionary flipped", data: corrupt(func(d []byte) { d[dictOffset+2] ^= 0x01 }), msg: "checksum"},
		{name: "bounds", data: corrupt(func(d []byte) { binary.LittleEndian.PutUint64(d[24:32], 1<<40) }), msg: "bounds"},
		{name: "negative dictionary size", data: corrupt(func(d []byte) { putInt64(d[24:32], -1) }), msg: "bounds"},
		{name: "negative postings size", data: corrupt(func(d []byte) { putInt64(d[40:48], -1) }), msg: "bounds"},
		{name: "negative dictionary offset", data: corrupt(func(d []byte) { putInt64(d[16:24], -8) }), msg: "bounds"},
		{name: "negative postings offset", data: corrupt(func(d []byte) { putInt64(d[32:40], -64) }), msg: "bounds"},
		{name: "dictionary size overflows", data: corrupt(func(d []byte) { putInt64(d[24:32], math.MaxInt64) }), msg: "bounds"},
		{name: "dictionary offset overflows", data: corrupt(func(d []byte) { putInt64(d[16:24], math.MaxInt64-2) }), msg: "bounds"},
		{name: "postings size overflows", data: corrupt(func(d []byte) { putInt64(d[40:48], math.MaxInt64) }), msg: "bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func putInt64(b []byte, v int64) {
	binary.LittleEndian.PutUint64(b, uint64(v))
}

func TestSearchRejectsBadDictionaryEntries(t *testing.T) {
	idx := buildIndex()
	data, err := Encode(idx.Snapshot(), idx.DocCount())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*DictEntry)
	}{
		{name: "negative length", mutate: func(e *DictEntry) { e.PostLen = -5 }},
		{name: "negative offset", mutate: func(e *DictEntry) { e.PostOffset = -1 }},
		{name: "offset past postings", mutate: func(e *DictEntry) { e.PostOffset = math.MaxInt64 }},
		{name: "length past postings", mutate: func(e *DictEntry) { e.PostLen = math.MaxInt32 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(data)
			require.NoError(t, err)
			require.NotEmpty(t, r.dict)
			tt.mutate(&r.dict[0])

			_, err = r.Search(r.dict[0].Term)
			assert.ErrorContains(t, err, "out of bounds")
		})
	}
}
