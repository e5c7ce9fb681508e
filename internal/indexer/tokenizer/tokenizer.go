// Package tokenizer turns raw document bytes into the terms of the word
// index. It validates UTF-8, lower-cases with full Unicode case mapping,
// drops every rune that is neither alphabetic nor whitespace, splits on
// whitespace and discards single-character tokens.
//
// Punctuation is removed before splitting, not treated as a separator, so
// "end.No" yields the single term "endno". Callers relying on punctuation
// as a word boundary must insert whitespace themselves.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinTermLength is the shortest term, in runes, that is kept.
const MinTermLength = 2

// UTF8Error reports the first byte offset at which the input stops being
// valid UTF-8.
type UTF8Error struct {
	Offset     int
	Incomplete bool
}

func (e *UTF8Error) Error() string {
	if e.Incomplete {
		return fmt.Sprintf("incomplete utf-8 byte sequence from index %d", e.Offset)
	}
	return fmt.Sprintf("invalid utf-8 sequence from index %d", e.Offset)
}

// Extract validates data as UTF-8 and returns its terms in order of
// appearance. Duplicates are kept. An empty result is not an error; the only
// failure is invalid UTF-8, reported as *UTF8Error.
func Extract(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, invalidAt(data)
	}
	return Terms(string(data)), nil
}

// Terms applies the normalisation to text that is already known to be valid
// UTF-8. It is also used to normalise lookup queries.
func Terms(text string) []string {
	// Casers carry state and are not safe for concurrent use.
	lowered := cases.Lower(language.Und).String(text)
	filtered := strings.Map(keepRune, lowered)
	words := strings.FieldsFunc(filtered, unicode.IsSpace)

	terms := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < MinTermLength {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// IsAlphabetic reports whether r has the Unicode Alphabetic property
// (letters, letter numbers and Other_Alphabetic marks).
func IsAlphabetic(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.Is(unicode.Nl, r) ||
		unicode.Is(unicode.Other_Alphabetic, r)
}

func keepRune(r rune) rune {
	if IsAlphabetic(r) || unicode.IsSpace(r) {
		return r
	}
	return -1
}

func invalidAt(data []byte) *UTF8Error {
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return &UTF8Error{
				Offset:     off,
				Incomplete: !utf8.FullRune(data[off:]),
			}
		}
		off += size
	}
	return &UTF8Error{Offset: len(data)}
}
