// Package storage defines the byte-addressable object store documents are
// read from and indexes are written to. Objects are addressed by
// slash-separated names and read or written whole; there are no partial
// reads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when an object does not exist. Backends must return
// an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for names that are empty, absolute or escape
// the store root.
var ErrInvalidName = errors.New("invalid object name")

// Reader fetches the full content of one object.
type Reader interface {
	ReadBytes(ctx context.Context, name string) ([]byte, error)
}

// Writer replaces the full content of one object.
type Writer interface {
	WriteBytes(ctx context.Context, name string, data []byte) error
}

// Lister enumerates object names under a prefix, sorted.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is the full storage collaborator used by the indexing engine.
type Store interface {
	Reader
	Writer
	Lister
}

// ValidateName checks that name is a relative, slash-separated object name
// without empty, "." or ".." segments.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".", "..":
			return fmt.Errorf("%w: %q has segment %q", ErrInvalidName, name, seg)
		}
	}
	return nil
}
