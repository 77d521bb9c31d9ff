package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// Envelope statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope wraps every response body of the note service.
type Envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// WriteOK writes {"status":"ok","data":data}. A nil data is omitted.
func WriteOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: StatusOK, Data: data})
}

// WriteError writes {"status":"error","error":detail}.
func WriteError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, Envelope{Status: StatusError, Error: detail})
}

// MapStoreError converts store errors to error envelopes.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Envelope{Status: StatusError})
	default:
		slog.Error("store operation failed",
			"component", "api",
			"request_id", GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		// Internal details stay in the log.
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
