package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Public
	r.Get("/health", h.Health)

	r.Route("/user/{accountId}", func(r chi.Router) {
		r.Use(AuthMiddleware(h.apiKey))
		r.Use(AccountMiddleware)

		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.AddNote)
		r.Get("/note/{syncId}", h.GetNote)
		r.Post("/note/{syncId}", h.UpdateNote)
		r.Delete("/note/{syncId}", h.DeleteNote)
	})

	return r
}
