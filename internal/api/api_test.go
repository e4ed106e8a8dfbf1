package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/testutil"
)

type eventRecorder struct {
	kinds []string
	slugs []string
}

func (e *eventRecorder) PublishArticleEvent(kind, slug, scopeName string) {
	e.kinds = append(e.kinds, kind)
	e.slugs = append(e.slugs, slug)
}

func newTestRouter(t *testing.T) (*testutil.Env, chi.Router, *eventRecorder) {
	t.Helper()
	e := testutil.NewEnv(t)
	e.InitLocal(t)
	events := &eventRecorder{}
	r := NewRouter(e.Svc, e.Engine, e.Store, events, false, "", nil)
	return e, r, events
}

func do(t *testing.T, r chi.Router, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return out
}

func TestCreateAndGetArticle(t *testing.T) {
	_, r, events := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/articles", CreateArticleRequest{
		Title: "API Note",
		Body:  "body via api",
		Tags:  []string{"api"},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	created := decode[ArticleResponse](t, w)
	if created.Article.Meta.Slug != "API Note" {
		t.Errorf("slug = %q", created.Article.Meta.Slug)
	}
	if len(events.kinds) != 1 || events.kinds[0] != "created" {
		t.Errorf("events = %v", events.kinds)
	}

	w = do(t, r, http.MethodGet, "/articles/API%20Note", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", w.Code, w.Body)
	}
	got := decode[ArticleResponse](t, w)
	if got.Article.Body != "body via api" {
		t.Errorf("body = %q", got.Article.Body)
	}
	etag := w.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `"`) {
		t.Errorf("etag = %q, want quoted checksum", etag)
	}
	if strings.Trim(etag, `"`) != got.Checksum {
		t.Errorf("etag %q does not match body checksum %q", etag, got.Checksum)
	}
}

func TestGetMissingArticle(t *testing.T) {
	_, r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/articles/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[errResponse](t, w)
	if resp.Error.Code != string(apperr.CodeArticleNotFound) {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestUpdateWithIfMatch(t *testing.T) {
	_, r, events := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "Guarded", Body: "v1"}, nil)
	w := do(t, r, http.MethodGet, "/articles/Guarded", nil, nil)
	etag := w.Header().Get("ETag")

	body := "v2"
	w = do(t, r, http.MethodPut, "/articles/Guarded", UpdateArticleRequest{Body: &body},
		map[string]string{"If-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("matching etag status = %d, body %s", w.Code, w.Body)
	}
	if events.kinds[len(events.kinds)-1] != "updated" {
		t.Errorf("events = %v", events.kinds)
	}

	// The stored content changed, so the old checksum must now be rejected.
	stale := "v3"
	w = do(t, r, http.MethodPut, "/articles/Guarded", UpdateArticleRequest{Body: &stale},
		map[string]string{"If-Match": etag})
	if w.Code != http.StatusConflict {
		t.Errorf("stale etag status = %d, body %s", w.Code, w.Body)
	}
}

func TestDeleteArticle(t *testing.T) {
	_, r, events := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "Doomed"}, nil)
	w := do(t, r, http.MethodDelete, "/articles/Doomed", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body)
	}
	if events.kinds[len(events.kinds)-1] != "deleted" {
		t.Errorf("events = %v", events.kinds)
	}

	w = do(t, r, http.MethodGet, "/articles/Doomed", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", w.Code)
	}
}

func TestListArticles(t *testing.T) {
	_, r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "One", Folder: "docs"}, nil)
	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "Two"}, nil)

	w := do(t, r, http.MethodGet, "/articles?folder=docs&scope=local", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ListResponse](t, w)
	if len(resp.Scopes) != 1 || resp.Scopes[0].Total != 1 {
		t.Errorf("listings = %+v", resp.Scopes)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "Findable", Body: "xylophone practice"}, nil)

	w := do(t, r, http.MethodGet, "/search?q=xylophone", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[SearchResponse](t, w)
	if resp.Total < 1 || resp.Results[0].Slug != "Findable" {
		t.Errorf("search resp = %+v", resp)
	}

	if w := do(t, r, http.MethodGet, "/search", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d", w.Code)
	}
}

func TestLinksAndBacklinksRoutes(t *testing.T) {
	_, r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "From", Body: "see [[To]]"}, nil)
	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "To"}, nil)

	w := do(t, r, http.MethodGet, "/articles/From/links", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("links status = %d, body %s", w.Code, w.Body)
	}
	links := decode[LinksResponse](t, w)
	if len(links.Links) != 1 || links.Links[0].Slug != "To" {
		t.Errorf("links = %+v", links)
	}

	w = do(t, r, http.MethodGet, "/articles/To/backlinks", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks status = %d", w.Code)
	}
	back := decode[BacklinksResponse](t, w)
	if len(back.Backlinks) != 1 || back.Backlinks[0].Slug != "From" {
		t.Errorf("backlinks = %+v", back)
	}
}

func TestReindexEndpoint(t *testing.T) {
	_, r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/articles", CreateArticleRequest{Title: "Indexed"}, nil)
	w := do(t, r, http.MethodPost, "/reindex?scope=local", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[ReindexResponse](t, w)
	if len(resp.Scopes) != 1 || resp.Scopes[0].Articles != 1 {
		t.Errorf("reindex = %+v", resp.Scopes)
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := testutil.NewEnv(t)
	e.InitLocal(t)
	r := NewRouter(e.Svc, e.Engine, e.Store, nil, true, "s3cret", nil)

	if w := do(t, r, http.MethodGet, "/articles", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/articles", nil, map[string]string{
		"Authorization": "Bearer wrong",
	}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/articles", nil, map[string]string{
		"Authorization": "Bearer s3cret",
	}); w.Code != http.StatusOK {
		t.Errorf("good token status = %d", w.Code)
	}
}
