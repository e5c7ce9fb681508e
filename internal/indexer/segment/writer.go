// Package segment encodes an index snapshot into the .spdx layout and
// decodes it back for lookups:
//
//	header   64 bytes, little endian: magic, version, term count, doc count,
//	         dict offset, dict size, postings offset, postings size, created at
//	postings JSON posting list per term, concatenated
//	dict     JSON array of {term, offset, length, doc freq}, sorted by term
//	footer   32 bytes: CRC-32 (IEEE) of dict, doc count, dict offset,
//	         dict size, postings size
package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/index"
)

// MagicBytes identifies a valid .spdx segment.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".spdx"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

// DictEntry maps a term to its postings offset, length, and document frequency
// in the segment.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Encode serialises sorted term entries into one segment. docCount is the
// number of documents indexed, which can exceed the documents that appear
// in any posting when some produced no terms.
func Encode(entries []index.TermEntry, docCount int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(make([]byte, HeaderSize))

	postingsStart := int64(buf.Len())
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		relativeOffset := int64(buf.Len()) - postingsStart
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return nil, fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		buf.Write(postingsData)
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: relativeOffset,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
	}
	postingsSize := int64(buf.Len()) - postingsStart

	dictStart := int64(buf.Len())
	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	buf.Write(dictData)
	dictSize := int64(len(dictData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(docCount))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(dictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postingsSize))
	buf.Write(footer)

	out := buf.Bytes()
	header := out[:HeaderSize]
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(entries)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(docCount))
	binary.LittleEndian.PutUint64(header[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(header[24:32], uint64(dictSize))
	binary.LittleEndian.PutUint64(header[32:40], uint64(postingsStart))
	binary.LittleEndian.PutUint64(header[40:48], uint64(postingsSize))
	binary.LittleEndian.PutUint64(header[48:56], uint64(time.Now().Unix()))
	return out, nil
}
