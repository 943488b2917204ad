package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(engines EngineProvider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(engines)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Search.
	r.Get("/search", h.Search)
	r.Get("/suggest", h.Suggest)

	// Documents.
	r.Get("/documents/*", h.GetDocument)

	// Metadata projections.
	r.Get("/metadata", h.Metadata)
	r.Get("/toc", h.TOC)
	r.Get("/amendments", h.Amendments)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
