package article_test

import (
	"testing"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/testutil"
)

func TestForwardLinksAndBacklinks(t *testing.T) {
	e := testutil.NewEnv(t)
	e.InitLocal(t)

	e.MustCreate(t, "Hub", article.CreateOptions{Body: "[[Spoke One]] and [[Spoke Two|the second]] and [[missing]]"})
	e.MustCreate(t, "Spoke One", article.CreateOptions{})
	e.MustCreate(t, "Spoke Two", article.CreateOptions{})

	_, links, err := e.Svc.ForwardLinks("Hub", scope.SelectAuto)
	if err != nil {
		t.Fatalf("ForwardLinks: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("links = %+v", links)
	}
	byslug := map[string]article.ResolvedLink{}
	for _, l := range links {
		byslug[l.Slug] = l
	}
	if l := byslug["Spoke One"]; !l.Exists || l.Title != "Spoke One" {
		t.Errorf("spoke one = %+v", l)
	}
	if l := byslug["Spoke Two"]; l.DisplayText != "the second" {
		t.Errorf("display text = %+v", l)
	}
	if l := byslug["missing"]; l.Exists {
		t.Errorf("dangling link resolved: %+v", l)
	}

	_, refs, err := e.Svc.Backlinks("Spoke One", scope.SelectAuto)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(refs) != 1 || refs[0].Slug != "Hub" || refs[0].Title != "Hub" {
		t.Errorf("backlinks = %+v", refs)
	}
}

func TestUnprefixedLinkPrefersLocal(t *testing.T) {
	e := testutil.NewEnv(t)
	e.InitLocal(t)
	e.InitGlobal(t)

	e.MustCreate(t, "Shared", article.CreateOptions{Scope: scope.SelectLocal})
	e.MustCreate(t, "Shared", article.CreateOptions{Scope: scope.SelectGlobal})
	e.MustCreate(t, "Reader", article.CreateOptions{
		Scope: scope.SelectLocal,
		Body:  "plain [[Shared]] and pinned [[global:Shared]]",
	})

	_, links, err := e.Svc.ForwardLinks("Reader", scope.SelectLocal)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Scope != scope.Local {
		t.Errorf("unprefixed link scope = %s, want local to win", links[0].Scope)
	}
	if links[1].Scope != scope.Global || !links[1].Exists {
		t.Errorf("prefixed link = %+v, want pinned to global", links[1])
	}
}

func TestGlobalLinkingLocalWarns(t *testing.T) {
	e := testutil.NewEnv(t)
	e.InitLocal(t)

	_, warnings, err := e.Svc.Create("Global Article", article.CreateOptions{
		Scope: scope.SelectGlobal,
		Body:  "[[local:machine-only]]",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one cross-scope advisory", warnings)
	}
}

func TestReindexRecoversFromLostSideFiles(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	e.MustCreate(t, "One", article.CreateOptions{Body: "[[Two]]"})
	e.MustCreate(t, "Two", article.CreateOptions{Folder: "deep"})

	wantIndex := e.Index.Load(root)
	wantLinks := e.Links.Load(root)

	// Simulate corruption of both side-files.
	paths := e.Scopes.PathsFor(root)
	if err := e.Store.WriteFile(paths.IndexFile, []byte("garbage")); err != nil {
		t.Fatal(err)
	}
	if err := e.Store.WriteFile(paths.LinksFile, []byte("garbage")); err != nil {
		t.Fatal(err)
	}

	results, err := e.Svc.Reindex(scope.SelectLocal)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if len(results) != 1 || results[0].Articles != 2 || results[0].Links != 1 {
		t.Fatalf("results = %+v", results)
	}

	gotIndex := e.Index.Load(root)
	if len(gotIndex.Articles) != len(wantIndex.Articles) {
		t.Errorf("rebuilt index size %d, want %d", len(gotIndex.Articles), len(wantIndex.Articles))
	}
	for slug, want := range wantIndex.Articles {
		got, ok := gotIndex.Articles[slug]
		if !ok {
			t.Errorf("rebuilt index missing %s", slug)
			continue
		}
		if got.Title != want.Title || got.Folder != want.Folder || got.FilePath != want.FilePath {
			t.Errorf("rebuilt %s = %+v, want %+v", slug, got, want)
		}
	}

	gotLinks := e.Links.Load(root)
	if len(gotLinks.Forward["One"]) != len(wantLinks.Forward["One"]) {
		t.Errorf("rebuilt links = %+v, want %+v", gotLinks.Forward, wantLinks.Forward)
	}
}
