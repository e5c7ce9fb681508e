package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("parsing term: %w", ErrInvalidInput), http.StatusBadRequest},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"not loaded", ErrIndexNotLoaded, http.StatusServiceUnavailable},
		{"app error wins", New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "storage_read", Kind(fmt.Errorf("x: %w", ErrStorageRead)))
	assert.Equal(t, "decode", Kind(Newf(ErrDecode, http.StatusUnprocessableEntity, "doc %s", "a")))
	assert.Equal(t, "other", Kind(fmt.Errorf("boom")))
}
