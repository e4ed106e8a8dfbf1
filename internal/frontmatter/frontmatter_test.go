package frontmatter

import (
	"strings"
	"testing"

	"github.com/corvid-labs/fuda/internal/apperr"
)

func TestParseValid(t *testing.T) {
	content := `---
title: Meeting Notes
tags:
  - work
  - planning
created: "2024-03-01T10:00:00Z"
updated: "2024-03-02T11:30:00Z"
---

# Agenda

Discuss [[roadmap]].
`
	fm, body, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Title != "Meeting Notes" {
		t.Errorf("title = %q", fm.Title)
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "work" || fm.Tags[1] != "planning" {
		t.Errorf("tags = %v", fm.Tags)
	}
	if fm.Created != "2024-03-01T10:00:00Z" {
		t.Errorf("created = %q, want literal timestamp preserved", fm.Created)
	}
	if !strings.HasPrefix(body, "# Agenda") {
		t.Errorf("body = %q", body)
	}
}

func TestParseScalarTag(t *testing.T) {
	content := "---\ntitle: One\ntags: solo\n---\nbody"
	fm, _, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fm.Tags) != 1 || fm.Tags[0] != "solo" {
		t.Errorf("tags = %v, want single-element list from scalar", fm.Tags)
	}
}

func TestParseDefaultsTimestamps(t *testing.T) {
	fm, _, err := Parse("---\ntitle: Untimed\n---\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Created == "" || fm.Updated == "" {
		t.Errorf("timestamps not defaulted: created=%q updated=%q", fm.Created, fm.Updated)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "# Just a heading\n"},
		{"unclosed block", "---\ntitle: Foo\n"},
		{"invalid yaml", "---\ntitle: [unclosed\n---\n"},
		{"missing title", "---\ntags: [a]\n---\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.content)
			if !apperr.Is(err, apperr.CodeInvalidFrontmatter) {
				t.Fatalf("err = %v, want INVALID_FRONTMATTER", err)
			}
		})
	}
}

func TestParseHeaderLineStartingWithDashes(t *testing.T) {
	// A quoted scalar may continue on a line that begins with ---- ; only a
	// whole --- line closes the block.
	content := "---\ntitle: \"Wide\n---- line\"\n---\nreal body\n"
	fm, body, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Title != "Wide ---- line" {
		t.Errorf("title = %q, want the dashes kept inside the header", fm.Title)
	}
	if body != "real body" {
		t.Errorf("body = %q", body)
	}

	// A ---- line alone never closes the block.
	_, _, err = Parse("---\ntitle: Foo\n----\n")
	if !apperr.Is(err, apperr.CodeInvalidFrontmatter) {
		t.Errorf("unclosed err = %v, want INVALID_FRONTMATTER", err)
	}

	// Closing delimiter at end of file without a trailing newline.
	fm, body, err = Parse("---\ntitle: Bare\n---")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Title != "Bare" || body != "" {
		t.Errorf("fm = %+v body = %q", fm, body)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	fm := Frontmatter{
		Title:   "Round Trip",
		Tags:    []string{"a", "b"},
		Created: "2024-01-15T09:00:00Z",
		Updated: "2024-06-01T12:00:00Z",
		Aliases: []string{"rt"},
		Draft:   true,
	}
	content := Serialize(fm, "Body text with [[link]].")

	got, body, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse after Serialize: %v", err)
	}
	if got.Title != fm.Title || got.Created != fm.Created || got.Updated != fm.Updated {
		t.Errorf("round trip changed fields: %+v", got)
	}
	if !got.Draft {
		t.Error("draft flag lost")
	}
	if len(got.Aliases) != 1 || got.Aliases[0] != "rt" {
		t.Errorf("aliases = %v", got.Aliases)
	}
	if body != "Body text with [[link]]." {
		t.Errorf("body = %q", body)
	}

	// Timestamps must survive a second round-trip byte-identically.
	again := Serialize(got, body)
	if again != content {
		t.Errorf("second serialize differs:\n%s\nvs\n%s", again, content)
	}
}

func TestSerializeOmitsOptionalFields(t *testing.T) {
	fm := New("Plain", nil, "", false)
	content := Serialize(fm, "")
	if strings.Contains(content, "draft") {
		t.Errorf("draft serialized when false:\n%s", content)
	}
	if strings.Contains(content, "aliases") {
		t.Errorf("aliases serialized when empty:\n%s", content)
	}
	if strings.Contains(content, "template") {
		t.Errorf("template serialized when empty:\n%s", content)
	}
}

func TestNormalizeTags(t *testing.T) {
	fm := New("T", []string{" a ", "a", "", "b"}, "", false)
	if len(fm.Tags) != 2 || fm.Tags[0] != "a" || fm.Tags[1] != "b" {
		t.Errorf("tags = %v, want deduped and trimmed", fm.Tags)
	}
}
