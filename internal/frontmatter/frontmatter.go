// Package frontmatter parses and serializes the YAML metadata header of a
// vault article. Timestamps are carried as ISO-8601 strings end to end; the
// codec never converts them to time.Time, so the literal text a user wrote
// survives every round-trip.
package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvid-labs/fuda/internal/apperr"
)

const delimiter = "---"

// Frontmatter is the structured header of an article.
type Frontmatter struct {
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Created  string   `json:"created"`
	Updated  string   `json:"updated"`
	Template string   `json:"template,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
	Draft    bool     `json:"draft,omitempty"`
}

// document is the YAML wire shape. Decoding scalars into string fields keeps
// the raw node text, which suppresses yaml.v3's implicit timestamp resolution.
type document struct {
	Title    string     `yaml:"title"`
	Tags     stringList `yaml:"tags"`
	Created  string     `yaml:"created"`
	Updated  string     `yaml:"updated"`
	Template string     `yaml:"template,omitempty"`
	Aliases  []string   `yaml:"aliases,omitempty"`
	Draft    bool       `yaml:"draft,omitempty"`
}

// stringList accepts both a YAML sequence and a bare scalar.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" || node.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(stringList, 0, len(node.Content))
		for _, item := range node.Content {
			out = append(out, item.Value)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("tags: expected scalar or sequence, got %v", node.Kind)
	}
}

// Parse splits content into frontmatter and body. The header block must be
// structurally valid YAML between leading --- delimiters and must contain a
// non-empty title; anything else fails with INVALID_FRONTMATTER.
func Parse(content string) (Frontmatter, string, error) {
	header, body, found := split(content)
	if !found {
		return Frontmatter{}, "", apperr.New(apperr.CodeInvalidFrontmatter,
			"frontmatter block not found")
	}

	var doc document
	if err := yaml.Unmarshal([]byte(header), &doc); err != nil {
		return Frontmatter{}, "", apperr.Wrap(apperr.CodeInvalidFrontmatter,
			"failed to parse frontmatter", err)
	}
	if doc.Title == "" {
		return Frontmatter{}, "", apperr.New(apperr.CodeInvalidFrontmatter,
			`frontmatter must have a "title" field`)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	fm := Frontmatter{
		Title:    doc.Title,
		Tags:     normalizeTags(doc.Tags),
		Created:  orDefault(doc.Created, now),
		Updated:  orDefault(doc.Updated, now),
		Template: doc.Template,
		Aliases:  doc.Aliases,
		Draft:    doc.Draft,
	}
	return fm, strings.TrimSpace(body), nil
}

// Serialize renders frontmatter and body back to article file content.
// Optional fields are omitted when unset; draft appears only when true.
func Serialize(fm Frontmatter, body string) string {
	doc := document{
		Title:    fm.Title,
		Tags:     stringList(normalizeTags(fm.Tags)),
		Created:  fm.Created,
		Updated:  fm.Updated,
		Template: fm.Template,
		Draft:    fm.Draft,
	}
	if len(fm.Aliases) > 0 {
		doc.Aliases = fm.Aliases
	}

	// Field order follows the struct; yaml.v3 quotes timestamp-like strings,
	// which keeps them strings on the next parse.
	header, err := yaml.Marshal(&doc)
	if err != nil {
		// A frontmatter struct of plain strings and slices cannot fail to
		// marshal; keep the signature simple.
		panic(fmt.Sprintf("frontmatter: marshal: %v", err))
	}

	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.Write(header)
	b.WriteString(delimiter)
	b.WriteByte('\n')
	if body != "" {
		b.WriteByte('\n')
		b.WriteString(body)
		b.WriteByte('\n')
	}
	return b.String()
}

// New builds frontmatter for a freshly created article.
func New(title string, tags []string, template string, draft bool) Frontmatter {
	now := time.Now().UTC().Format(time.RFC3339)
	return Frontmatter{
		Title:    title,
		Tags:     normalizeTags(tags),
		Created:  now,
		Updated:  now,
		Template: template,
		Draft:    draft,
	}
}

// split separates the YAML header from the body. Returns found=false when the
// content does not open with a --- delimiter line or never closes it.
func split(content string) (header, body string, found bool) {
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, delimiter) {
		return "", "", false
	}
	rest := trimmed[len(delimiter):]
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return "", "", false
	}
	// The closing delimiter must be a whole --- line; a header line that
	// merely starts with --- (like ---- or ---x) is YAML content.
	pos := 0
	for {
		idx := strings.Index(rest[pos:], "\n"+delimiter)
		if idx < 0 {
			return "", "", false
		}
		end := pos + idx
		after := rest[end+1+len(delimiter):]
		if after == "" || strings.HasPrefix(after, "\n") || strings.HasPrefix(after, "\r\n") {
			header = rest[:end]
			if nl := strings.IndexByte(after, '\n'); nl >= 0 {
				after = after[nl+1:]
			} else {
				after = ""
			}
			return header, after, true
		}
		pos = end + 1
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
