package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler implements the note service endpoints.
type Handler struct {
	store   store.NoteService
	apiKey  string
	version string
}

// NewHandler creates a Handler. An empty apiKey disables authentication.
func NewHandler(s store.NoteService, apiKey, version string) *Handler {
	return &Handler{
		store:   s,
		apiKey:  apiKey,
		version: version,
	}
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Version string `json:"version"`
	Notes   int64  `json:"notes"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.CountNotes(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	WriteOK(w, HealthResponse{Version: h.version, Notes: count})
}

// ListNotes handles GET /user/{accountId}/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListNotes(r.Context(), MustAccountIDFromContext(r.Context()))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	WriteOK(w, entries)
}

// GetNote handles GET /user/{accountId}/note/{syncId}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.GetNote(r.Context(), MustAccountIDFromContext(r.Context()), chi.URLParam(r, "syncId"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	WriteOK(w, entry)
}

// AddNote handles POST /user/{accountId}/notes
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	accountID := MustAccountIDFromContext(r.Context())

	syncID, err := h.store.AddNote(r.Context(), accountID, entry)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	slog.Info("note added",
		"component", "api",
		"request_id", GetRequestID(r.Context()),
		"account_id", accountID,
		"id", syncID,
	)
	WriteOK(w, syncID)
}

// UpdateNote handles POST /user/{accountId}/note/{syncId}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	if err := h.store.UpdateNote(r.Context(), MustAccountIDFromContext(r.Context()), chi.URLParam(r, "syncId"), entry); err != nil {
		MapStoreError(w, r, err)
		return
	}
	WriteOK(w, nil)
}

// DeleteNote handles DELETE /user/{accountId}/note/{syncId}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteNote(r.Context(), MustAccountIDFromContext(r.Context()), chi.URLParam(r, "syncId")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	WriteOK(w, nil)
}

// decodeEntry reads and validates an entry body, writing a 400 on failure.
func decodeEntry(w http.ResponseWriter, r *http.Request) (notes.RemoteEntry, bool) {
	var entry notes.RemoteEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&entry); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid entry: "+err.Error())
		return notes.RemoteEntry{}, false
	}
	if errs := validation.ValidateEntry(entry); len(errs) > 0 {
		c := validation.Collector{}
		for i := range errs {
			c.Add(&errs[i])
		}
		WriteError(w, http.StatusBadRequest, c.Summary())
		return notes.RemoteEntry{}, false
	}
	entry.SyncID = ""
	return entry, true
}
