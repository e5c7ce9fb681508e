package ingestion

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

type Handler struct {
	uploader *Uploader
	logger   *slog.Logger
}

func NewHandler(uploader *Uploader) *Handler {
	return &Handler{
		uploader: uploader,
		logger:   logger.WithComponent("ingestion-handler"),
	}
}

// Register mounts the upload route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/v1/objects/{name...}", h.Upload)
}

// Upload stores the raw request body under the path name. ?reindex=true
// also requests a re-index of the object's directory.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	reindex := false
	if v := r.URL.Query().Get("reindex"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "reindex must be a boolean")
			return
		}
		reindex = parsed
	}
	if reindex && !h.uploader.CanReindex() {
		h.writeError(w, http.StatusServiceUnavailable, "re-indexing requires kafka")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxObjectSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "reading body failed")
		return
	}

	resp, err := h.uploader.Upload(ctx, r.PathValue("name"), data, reindex)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		if resp != nil {
			log.Warn("object stored but re-index request failed", "doc_id", resp.Name, "error", err)
			h.writeJSON(w, http.StatusAccepted, resp)
			return
		}
		if errors.Is(err, storage.ErrInvalidName) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("upload failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "upload failed")
		return
	}
	log.Info("object stored",
		"doc_id", resp.Name,
		"size", resp.Size,
		"request_id", resp.RequestID,
	)
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
