package article_test

import (
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/testutil"
)

func TestTemplateShadowingLocalOverGlobal(t *testing.T) {
	e := testutil.NewEnv(t)
	localRoot := e.InitLocal(t)
	globalRoot := e.InitGlobal(t)

	if _, err := e.Svc.CreateTemplate("note", "---\ntitle: \"{{title}}\"\n---\nglobal body", globalRoot); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Svc.CreateTemplate("note", "---\ntitle: \"{{title}}\"\n---\nlocal body", localRoot); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Svc.CreateTemplate("meeting", "", globalRoot); err != nil {
		t.Fatal(err)
	}

	templates, err := e.Svc.ListTemplates()
	if err != nil {
		t.Fatal(err)
	}
	if len(templates) != 2 {
		t.Fatalf("templates = %+v, want note (local) and meeting (global)", templates)
	}

	info, content, err := e.Svc.ReadTemplate("note")
	if err != nil {
		t.Fatal(err)
	}
	if info.Scope != scope.Local || !strings.Contains(content, "local body") {
		t.Errorf("local template did not shadow global: %+v", info)
	}

	if _, _, err := e.Svc.ReadTemplate("nope"); !apperr.Is(err, apperr.CodeTemplateNotFound) {
		t.Errorf("missing template err = %v", err)
	}
}

func TestCreateUsesTemplateBody(t *testing.T) {
	e := testutil.NewEnv(t)
	root := e.InitLocal(t)

	tpl := "---\ntitle: \"{{title}}\"\n---\n# {{title}}\n\nCreated {{date}}."
	if _, err := e.Svc.CreateTemplate("daily", tpl, root); err != nil {
		t.Fatal(err)
	}

	art := e.MustCreate(t, "Standup", article.CreateOptions{Template: "daily"})
	if !strings.HasPrefix(art.Body, "# Standup") {
		t.Errorf("body = %q", art.Body)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if !strings.Contains(art.Body, today) {
		t.Errorf("date placeholder not expanded: %q", art.Body)
	}

	// Missing template falls back to a bare heading.
	plain := e.MustCreate(t, "No Template", article.CreateOptions{Template: "ghost"})
	if plain.Body != "# No Template" {
		t.Errorf("fallback body = %q", plain.Body)
	}
}

func TestExpandTemplate(t *testing.T) {
	got := article.ExpandTemplate("{{a}} {{b}} {{a}}", map[string]string{"a": "x", "b": "y"})
	if got != "x y x" {
		t.Errorf("ExpandTemplate = %q", got)
	}
}
