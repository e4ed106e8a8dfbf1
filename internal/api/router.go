package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *article.Service, engine *search.Engine, store storage.Provider, events EventPublisher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, engine, store, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Article CRUD. The wildcard form accepts folder-qualified identifiers.
	r.Get("/articles", h.ListArticles)
	r.Post("/articles", h.CreateArticle)
	r.Get("/articles/{slug}/links", h.Links)
	r.Get("/articles/{slug}/backlinks", h.Backlinks)
	r.Get("/articles/*", h.GetArticle)
	r.Put("/articles/*", h.UpdateArticle)
	r.Delete("/articles/*", h.DeleteArticle)

	// Search.
	r.Get("/search", h.Search)

	// Index and link graph rebuild.
	r.Post("/reindex", h.Reindex)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
