package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Distributed search engines process queries across multiple shards to achieve
        horizontal scalability. Each shard maintains its own inverted index and responds
        to queries independently. Results are merged using a global ranking algorithm
        that accounts for term frequency and inverse document frequency across the
        entire corpus.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. The inverted index maps each term to the documents containing it.
        Größere Dokumente enthalten Umlaute, и кириллицу тоже. `, 20),
}

func BenchmarkExtract(b *testing.B) {
	for name, text := range sampleTexts {
		data := []byte(text)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				terms, _ := Extract(data)
				_ = terms
			}
		})
	}
}

func BenchmarkExtractParallel(b *testing.B) {
	data := []byte(sampleTexts["medium"])
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			terms, _ := Extract(data)
			_ = terms
		}
	})
}
