// Package api exposes the answer pipeline, reindex trigger and corpus
// browser over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// StatusFor maps an error to its HTTP status. Timeouts are checked first
// because a timed-out stage also carries the stage's own category.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReindexInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDependencyUnavailable),
		errors.Is(err, domain.ErrEmbeddingService),
		errors.Is(err, domain.ErrIndexCorrupted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// codeFor returns the machine-readable error code sent to clients.
func codeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrReindexInProgress):
		return "reindex_in_progress"
	case errors.Is(err, domain.ErrEmbeddingService):
		return "embedding_unavailable"
	case errors.Is(err, domain.ErrIndexCorrupted):
		return "index_corrupted"
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return "dependency_unavailable"
	case errors.Is(err, domain.ErrGenerationService):
		return "generation_failed"
	default:
		return "internal"
	}
}

// messageFor returns a client-safe message. Internal details stay in logs.
func messageFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Valid query is required"
	case http.StatusRequestTimeout:
		return "Request timeout. Please try again with a shorter query."
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable. Please try again later."
	default:
		return "Internal server error. Please try again later."
	}
}

// ErrorResponse is the body of every failed /api/chat call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
