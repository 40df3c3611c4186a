package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/inventory-core/internal/blobstore"
	"github.com/nerrad567/inventory-core/internal/inventory"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeDuplicateName = "duplicate_name"
	ErrCodeCapacity      = "capacity_exhausted"
	ErrCodeValidation    = "validation_error"
	ErrCodeTooLarge      = "payload_too_large"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeUnavailable   = "service_unavailable"
	ErrCodeInternal      = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeRegistryError maps an inventory error onto a response.
//
// Lookup failures are 404. Every rejected request (duplicate name, illegal
// transition, empty name, exhausted identifier space) is 400, with a code
// that tells the cases apart. Anything else is logged and reported as 500
// without leaking the cause.
func (s *Server) writeRegistryError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, inventory.ErrDuplicateName):
		writeError(w, http.StatusBadRequest, ErrCodeDuplicateName, err.Error())
	case errors.Is(err, inventory.ErrConflict):
		writeError(w, http.StatusBadRequest, ErrCodeConflict, err.Error())
	case errors.Is(err, inventory.ErrInvalidName):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, inventory.ErrCapacityExhausted):
		writeError(w, http.StatusBadRequest, ErrCodeCapacity, err.Error())
	default:
		s.logger.Error("registry operation failed",
			"operation", op,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "failed to "+op)
	}
}

// writeBlobError maps a blob store error onto a response.
func (s *Server) writeBlobError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		writeNotFound(w, "image not found")
	case errors.Is(err, blobstore.ErrInvalidReference):
		writeBadRequest(w, "invalid image reference")
	case errors.Is(err, blobstore.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err.Error())
	default:
		s.logger.Error("blob store operation failed", "operation", op, "error", err)
		writeInternalError(w, "failed to "+op)
	}
}

// decodeJSON decodes the request body into v. Unknown fields are ignored.
// It writes the error response itself and reports whether decoding worked.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
