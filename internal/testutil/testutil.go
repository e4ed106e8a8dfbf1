// Package testutil provides shared test helpers for setting up temporary
// scopes and services.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/linker"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/storage"
)

// Env is a fully wired service stack rooted in temporary directories. Cwd
// sits inside a directory tree with no local scope until InitLocal is
// called; Home backs the global scope.
type Env struct {
	Store  storage.Provider
	Scopes *scope.Resolver
	Index  *index.Repo
	Links  *linker.Repo
	Svc    *article.Service
	Engine *search.Engine
	Cwd    string
	Home   string
}

// NewEnv creates a temp home and working directory and wires the full
// service stack on top of them.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	home := t.TempDir()
	cwd := filepath.Join(t.TempDir(), "project", "sub")
	if err := os.MkdirAll(cwd, 0o755); err != nil {
		t.Fatal(err)
	}

	store := storage.NewFS()
	scopes, err := scope.New(store, cwd, home)
	if err != nil {
		t.Fatal(err)
	}
	idx := index.NewRepo(store, scopes)
	links := linker.NewRepo(store, scopes)
	return &Env{
		Store:  store,
		Scopes: scopes,
		Index:  idx,
		Links:  links,
		Svc:    article.NewService(store, scopes, idx, links),
		Engine: search.NewEngine(store, idx),
		Cwd:    cwd,
		Home:   home,
	}
}

// InitLocal initializes a local scope at Cwd and returns its root.
func (e *Env) InitLocal(t *testing.T) string {
	t.Helper()
	root, err := e.Scopes.InitLocalScope()
	if err != nil {
		t.Fatal(err)
	}
	return root
}

// InitGlobal initializes the global scope under Home and returns its root.
func (e *Env) InitGlobal(t *testing.T) string {
	t.Helper()
	root, err := e.Scopes.EnsureGlobalScope()
	if err != nil {
		t.Fatal(err)
	}
	return root
}

// MustCreate creates an article and fails the test on error.
func (e *Env) MustCreate(t *testing.T, title string, opts article.CreateOptions) article.Article {
	t.Helper()
	art, _, err := e.Svc.Create(title, opts)
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return art
}
