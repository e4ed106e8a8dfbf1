package search_test

import (
	"reflect"
	"testing"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/testutil"
)

func TestTokenizeCJKBigrams(t *testing.T) {
	got, err := search.Tokenize("日本語")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"日本", "本語"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize(日本語) = %v, want %v", got, want)
	}
}

func TestTokenizeLowercasesLatin(t *testing.T) {
	got, err := search.Tokenize("Hello World")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize(Hello World) = %v, want %v", got, want)
	}
}

func localRoots(root string) []scope.Root {
	return []scope.Root{{Scope: scope.Local, Path: root}}
}

func TestSearchTitleOutranksBody(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	e.MustCreate(t, "Bleve Guide", article.CreateOptions{
		Tags: []string{"search"},
		Body: "Notes on the query engine.",
	})
	e.MustCreate(t, "Cooking Notes", article.CreateOptions{
		Folder: "kitchen",
		Body:   "The word bleve appears only here.",
	})

	resp, err := e.Engine.Search("bleve", search.Options{Roots: localRoots(root)})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("results = %+v", resp)
	}
	if resp.Results[0].Slug != "Bleve Guide" {
		t.Errorf("title match did not rank first: %+v", resp.Results)
	}
	if resp.Results[0].Score <= resp.Results[1].Score {
		t.Errorf("scores not descending: %+v", resp.Results)
	}

	if len(resp.Results[0].Match.Title) == 0 {
		t.Errorf("first hit missing title match terms: %+v", resp.Results[0].Match)
	}
	if len(resp.Results[1].Match.Body) == 0 {
		t.Errorf("second hit missing body match terms: %+v", resp.Results[1].Match)
	}
}

func TestSearchFilters(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	e.MustCreate(t, "Bleve Guide", article.CreateOptions{
		Tags: []string{"search"},
		Body: "Notes on bleve.",
	})
	e.MustCreate(t, "Cooking Notes", article.CreateOptions{
		Folder: "kitchen",
		Body:   "bleve in the kitchen.",
	})

	byFolder, err := e.Engine.Search("bleve", search.Options{
		Roots:  localRoots(root),
		Folder: "kitchen",
	})
	if err != nil {
		t.Fatal(err)
	}
	if byFolder.Total != 1 || byFolder.Results[0].Slug != "Cooking Notes" {
		t.Errorf("folder filter = %+v", byFolder)
	}

	byTag, err := e.Engine.Search("bleve", search.Options{
		Roots: localRoots(root),
		Tags:  []string{"search"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if byTag.Total != 1 || byTag.Results[0].Slug != "Bleve Guide" {
		t.Errorf("tag filter = %+v", byTag)
	}
}

func TestSearchLimitKeepsTotal(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	for _, title := range []string{"First", "Second", "Third"} {
		e.MustCreate(t, title, article.CreateOptions{Body: "contains syzygy somewhere"})
	}

	resp, err := e.Engine.Search("syzygy", search.Options{
		Roots: localRoots(root),
		Limit: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3 before limit", resp.Total)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %d, want limit applied", len(resp.Results))
	}
}

func TestSearchMergesScopes(t *testing.T) {
	e := testutil.NewEnv(t)
	e.InitLocal(t)
	e.InitGlobal(t)

	e.MustCreate(t, "Local Widget", article.CreateOptions{
		Scope: scope.SelectLocal,
		Body:  "widget notes",
	})
	e.MustCreate(t, "Global Widget", article.CreateOptions{
		Scope: scope.SelectGlobal,
		Body:  "widget notes",
	})

	resp, err := e.Engine.Search("widget", search.Options{Roots: e.Scopes.ReadRoots()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d: %+v", resp.Total, resp.Results)
	}
	scopes := map[scope.Scope]bool{}
	for _, r := range resp.Results {
		scopes[r.Scope] = true
	}
	if !scopes[scope.Local] || !scopes[scope.Global] {
		t.Errorf("results did not span both scopes: %+v", resp.Results)
	}
}

func TestSearchCJKQuery(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	e.MustCreate(t, "日本語のメモ", article.CreateOptions{Body: "本文はここにあります。"})
	e.MustCreate(t, "Unrelated", article.CreateOptions{Body: "plain latin text"})

	resp, err := e.Engine.Search("日本", search.Options{Roots: localRoots(root)})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Slug != "日本語のメモ" {
		t.Errorf("cjk query results = %+v", resp.Results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	resp, err := e.Engine.Search("   ", search.Options{Roots: localRoots(root)})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Errorf("empty query resp = %+v", resp)
	}
}
