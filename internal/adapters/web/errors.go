package web

import (
	"encoding/json"
	"net/http"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps an engine error kind to its HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_STATE", "INSUFFICIENT_STOCK", "INTEGRITY_VIOLATION":
		return http.StatusConflict
	case "INVALID_AMOUNT", "MISSING_UNIT_COST":
		return http.StatusUnprocessableEntity
	case "TRANSIENT":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError maps an engine error to a JSON response. Internal errors
// are logged and their details withheld from the client.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		config.LogError(h.log, "web", r.Method+" "+r.URL.Path, "request failed",
			map[string]any{"request_id": requestIDFromContext(r.Context())}, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", status)
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, r, err.Error(), kind, status)
}
