package index_test

import (
	"fmt"
	"testing"

	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/testutil"
)

func seedQueryIndex(t *testing.T) (*testutil.Env, string) {
	t.Helper()
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)
	vault := e.Scopes.PathsFor(root).Vault

	metas := []index.ArticleMeta{
		{Slug: "alpha", Title: "Alpha", Folder: "work", Tags: []string{"go", "notes"}, Created: "2024-01-01T00:00:00Z", Updated: "2024-03-01T00:00:00Z"},
		{Slug: "beta", Title: "Beta", Folder: "work", Tags: []string{"go"}, Created: "2024-02-01T00:00:00Z", Updated: "2024-02-01T00:00:00Z"},
		{Slug: "gamma", Title: "Gamma", Folder: "", Tags: []string{"notes"}, Created: "2024-03-01T00:00:00Z", Updated: "2024-01-01T00:00:00Z", Draft: true},
	}
	for _, m := range metas {
		m.FilePath = vault + "/" + m.Slug + ".md"
		if err := e.Index.Upsert(root, m); err != nil {
			t.Fatal(err)
		}
	}
	return e, root
}

func TestQueryFilters(t *testing.T) {
	e, root := seedQueryIndex(t)

	res := e.Index.Query(root, index.QueryOptions{Folder: "work"})
	if res.Total != 2 {
		t.Errorf("folder filter total = %d, want 2", res.Total)
	}

	// All requested tags must be present.
	res = e.Index.Query(root, index.QueryOptions{Tags: []string{"go", "notes"}})
	if res.Total != 1 || res.Articles[0].Slug != "alpha" {
		t.Errorf("tag subset filter = %+v", res.Articles)
	}

	draft := true
	res = e.Index.Query(root, index.QueryOptions{Draft: &draft})
	if res.Total != 1 || res.Articles[0].Slug != "gamma" {
		t.Errorf("draft filter = %+v", res.Articles)
	}

	// Filters are ANDed.
	res = e.Index.Query(root, index.QueryOptions{Folder: "work", Tags: []string{"notes"}})
	if res.Total != 1 || res.Articles[0].Slug != "alpha" {
		t.Errorf("combined filter = %+v", res.Articles)
	}
}

func TestQuerySorting(t *testing.T) {
	e, root := seedQueryIndex(t)

	// Default: updated descending.
	res := e.Index.Query(root, index.QueryOptions{})
	if got := slugs(res); got[0] != "alpha" || got[2] != "gamma" {
		t.Errorf("default order = %v", got)
	}

	res = e.Index.Query(root, index.QueryOptions{Sort: index.SortCreated, Order: "asc"})
	if got := slugs(res); got[0] != "alpha" || got[2] != "gamma" {
		t.Errorf("created asc = %v", got)
	}

	res = e.Index.Query(root, index.QueryOptions{Sort: index.SortTitle, Order: "asc"})
	if got := slugs(res); got[0] != "alpha" || got[1] != "beta" || got[2] != "gamma" {
		t.Errorf("title asc = %v", got)
	}
}

func TestQueryPaginationPartitions(t *testing.T) {
	e, root := seedQueryIndex(t)

	var collected []string
	for offset := 0; ; offset += 2 {
		res := e.Index.Query(root, index.QueryOptions{Limit: 2, Offset: offset})
		if res.Total != 3 {
			t.Fatalf("total = %d at offset %d, want 3", res.Total, offset)
		}
		if len(res.Articles) == 0 {
			break
		}
		collected = append(collected, slugs(res)...)
	}
	if len(collected) != 3 {
		t.Errorf("pages do not partition the result set: %v", collected)
	}
	seen := map[string]bool{}
	for _, s := range collected {
		if seen[s] {
			t.Errorf("slug %s appeared in two pages", s)
		}
		seen[s] = true
	}
}

func TestQueryDefaultLimit(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)
	for i := 0; i < 25; i++ {
		err := e.Index.Upsert(root, index.ArticleMeta{
			Slug:    fmt.Sprintf("n-%02d", i),
			Title:   "N",
			Updated: fmt.Sprintf("2024-01-%02dT00:00:00Z", i+1),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	res := e.Index.Query(root, index.QueryOptions{})
	if len(res.Articles) != 20 || res.Total != 25 {
		t.Errorf("got %d articles, total %d; want 20 of 25", len(res.Articles), res.Total)
	}
}

func slugs(res index.QueryResult) []string {
	out := make([]string, len(res.Articles))
	for i, m := range res.Articles {
		out[i] = m.Slug
	}
	return out
}
