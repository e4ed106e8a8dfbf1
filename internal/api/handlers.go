package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/checksum"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/storage"
)

// EventPublisher receives article lifecycle notifications after successful
// mutations. A nil publisher disables notifications.
type EventPublisher interface {
	PublishArticleEvent(kind, slug, scopeName string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *article.Service
	engine *search.Engine
	store  storage.Provider
	events EventPublisher
}

// NewHandler creates a new Handler.
func NewHandler(svc *article.Service, engine *search.Engine, store storage.Provider, events EventPublisher) *Handler {
	return &Handler{svc: svc, engine: engine, store: store, events: events}
}

// identifier extracts the article identifier from the URL. Folder-qualified
// identifiers arrive with encoded slashes (e.g. topics%2Fnote).
func identifier(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func selector(r *http.Request) (scope.Selector, error) {
	return scope.ParseSelector(r.URL.Query().Get("scope"))
}

func (h *Handler) publish(kind, slug string, s scope.Scope) {
	if h.events != nil {
		h.events.PublishArticleEvent(kind, slug, string(s))
	}
}

// ListArticles handles GET /api/articles.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	opts := index.QueryOptions{
		Folder: q.Get("folder"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	}
	if tags, ok := q["tag"]; ok {
		opts.Tags = tags
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("draft"); v != "" {
		draft := v == "true"
		opts.Draft = &draft
	}

	listings, err := h.svc.List(sel, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Scopes: listings})
}

// GetArticle handles GET /api/articles/*. The response carries the content
// checksum both in the body and as a quoted ETag header.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "identifier is required"))
		return
	}
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	art, err := h.svc.Read(id, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	sum, err := h.contentChecksum(art.Meta.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+sum+`"`)
	writeJSON(w, http.StatusOK, ArticleResponse{Article: art, Checksum: sum})
}

// CreateArticle handles POST /api/articles.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "invalid JSON body"))
		return
	}
	sel, err := scope.ParseSelector(req.Scope)
	if err != nil {
		writeError(w, err)
		return
	}

	art, warnings, err := h.svc.Create(req.Title, article.CreateOptions{
		Folder:   req.Folder,
		Tags:     req.Tags,
		Template: req.Template,
		Scope:    sel,
		Slug:     req.Slug,
		Body:     req.Body,
		Draft:    req.Draft,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("created", art.Meta.Slug, art.Scope)
	writeJSON(w, http.StatusCreated, ArticleResponse{Article: art, Warnings: warnings})
}

// UpdateArticle handles PUT /api/articles/* with optimistic concurrency:
// when If-Match is present it must equal the current content checksum.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := identifier(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "identifier is required"))
		return
	}
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "invalid JSON body"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if ifMatch != "" {
		resolved, err := h.svc.ResolveSlug(id, sel)
		if err != nil {
			writeError(w, err)
			return
		}
		sum, err := h.contentChecksum(resolved.Meta.FilePath)
		if err != nil {
			writeError(w, err)
			return
		}
		if sum != ifMatch {
			writeJSON(w, http.StatusConflict, errorBody(apperr.CodeValidationError, "checksum mismatch"))
			return
		}
	}

	art, warnings, err := h.svc.Update(id, article.UpdateOptions{
		Title:       req.Title,
		AddTags:     req.AddTags,
		RemoveTags:  req.RemoveTags,
		Body:        req.Body,
		Append:      req.Append,
		Draft:       req.Draft,
		AddAlias:    req.AddAlias,
		RemoveAlias: req.RemoveAlias,
		Scope:       sel,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("updated", art.Meta.Slug, art.Scope)
	writeJSON(w, http.StatusOK, ArticleResponse{Article: art, Warnings: warnings})
}

// DeleteArticle handles DELETE /api/articles/*.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "identifier is required"))
		return
	}
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, err := h.svc.Delete(id, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("deleted", resolved.Meta.Slug, resolved.Scope)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	queryStr := q.Get("q")
	if queryStr == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeValidationError, "query parameter 'q' is required"))
		return
	}
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Scopes().Resolve(sel, scope.Read)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := search.Options{Roots: res.Roots(), Folder: q.Get("folder")}
	if tags, ok := q["tag"]; ok {
		opts.Tags = tags
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))

	resp, err := h.engine.Search(queryStr, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Links handles GET /api/articles/{slug}/links.
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "slug")
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, links, err := h.svc.ForwardLinks(id, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{
		Slug:  resolved.Meta.Slug,
		Scope: string(resolved.Scope),
		Links: links,
	})
}

// Backlinks handles GET /api/articles/{slug}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "slug")
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, refs, err := h.svc.Backlinks(id, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{
		Slug:      resolved.Meta.Slug,
		Scope:     string(resolved.Scope),
		Backlinks: refs,
	})
}

// Reindex handles POST /api/reindex.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	sel, err := selector(r)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := h.svc.Reindex(sel)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("reindex complete", slog.Int("scopes", len(results)))
	writeJSON(w, http.StatusOK, ReindexResponse{Scopes: results})
}

func (h *Handler) contentChecksum(filePath string) (string, error) {
	raw, err := h.store.ReadFile(filePath)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeIOError, "read article content", err)
	}
	return checksum.Sum(raw), nil
}
