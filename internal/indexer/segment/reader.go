package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/index"
)

// Reader answers term lookups from an encoded segment held in memory.
type Reader struct {
	data    []byte
	header  SegmentHeader
	dict    []DictEntry
	version string
}

// Decode validates the header, bounds and dictionary checksum of data and
// returns a Reader over it. data must not be modified afterwards.
func Decode(data []byte) (*Reader, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("invalid segment: %d bytes is shorter than header and footer", len(data))
	}
	headerBytes := data[:HeaderSize]
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment: bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}
	bodyEnd := int64(len(data) - FooterSize)
	if !within(header.PostOffset, header.PostSize, int64(HeaderSize), bodyEnd) ||
		!within(header.DictOffset, header.DictSize, header.PostOffset, bodyEnd) {
		return nil, fmt.Errorf("invalid segment: section bounds exceed %d bytes", len(data))
	}

	dictBytes := data[header.DictOffset : header.DictOffset+header.DictSize]
	footer := data[bodyEnd:]
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(dictBytes); want != got {
		return nil, fmt.Errorf("invalid segment: dictionary checksum %08x, want %08x", got, want)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	return &Reader{
		data:    data,
		header:  header,
		dict:    dict,
		version: fmt.Sprintf("%x-%08x", header.CreatedAt, crc32.ChecksumIEEE(data)),
	}, nil
}

func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	entry := r.dict[idx]
	if !within(entry.PostOffset, int64(entry.PostLen), 0, r.header.PostSize) {
		return nil, fmt.Errorf("postings for term %q out of bounds", term)
	}
	start := r.header.PostOffset + entry.PostOffset
	end := start + int64(entry.PostLen)
	var postings index.PostingList
	if err := json.Unmarshal(r.data[start:end], &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// within reports whether [off, off+size) lies inside [lo, hi). Header and
// dictionary values come from untrusted bytes, so nothing is added before
// the signs are checked.
func within(off, size, lo, hi int64) bool {
	return off >= lo && size >= 0 && off <= hi && size <= hi-off
}

// Get returns the identifiers of documents containing term.
func (r *Reader) Get(term string) ([]string, error) {
	postings, err := r.Search(term)
	if err != nil {
		return nil, err
	}
	return postings.DocIDs(), nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) CreatedAt() time.Time {
	return time.Unix(r.header.CreatedAt, 0)
}

// Version identifies the segment contents. Two segments share a version only
// when they were written in the same second with identical bytes.
func (r *Reader) Version() string {
	return r.version
}
