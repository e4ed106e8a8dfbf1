// Package linker parses wiki-links from article bodies and maintains the
// per-scope link graph (links.json): forward links per source slug and the
// derived backlinks per target slug. Backlinks are always the transpose of
// forward links; incremental updates must never drift from what a full
// rebuild would produce.
package linker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/storage"
)

// wikiLinkRe matches [[slug]], [[slug|display]], [[scope:slug]], and
// [[scope:slug|display]]. The slug class excludes ']' and '|' so matches
// never cross a closing boundary, and non-ASCII slugs pass through.
var wikiLinkRe = regexp.MustCompile(`\[\[(?:([a-z]+):)?([^\]|]+)(?:\|([^\]]+))?\]\]`)

// ParsedWikiLink is one wiki-link occurrence in a body. Scope is "" when the
// link carries no explicit scope prefix.
type ParsedWikiLink struct {
	Raw         string
	Scope       string
	Slug        string
	DisplayText string
}

// ParseWikiLinks extracts every wiki-link from a markdown body in order.
func ParseWikiLinks(body string) []ParsedWikiLink {
	matches := wikiLinkRe.FindAllStringSubmatch(body, -1)
	links := make([]ParsedWikiLink, 0, len(matches))
	for _, m := range matches {
		slug := strings.TrimSpace(m[2])
		if slug == "" {
			continue
		}
		links = append(links, ParsedWikiLink{
			Raw:         m[0],
			Scope:       m[1],
			Slug:        slug,
			DisplayText: strings.TrimSpace(m[3]),
		})
	}
	return links
}

// LinkEntry is a forward link as persisted in links.json. Scope is "" for
// unprefixed links; a JSON null from older files also reads as "".
type LinkEntry struct {
	Slug        string `json:"slug"`
	Scope       string `json:"scope"`
	DisplayText string `json:"displayText,omitempty"`
}

// Backref records one source article linking to a target.
type Backref struct {
	Slug  string      `json:"slug"`
	Scope scope.Scope `json:"scope"`
}

// Graph is the persisted shape of links.json.
type Graph struct {
	Forward   map[string][]LinkEntry `json:"forward"`
	Backlinks map[string][]Backref   `json:"backlinks"`
}

func emptyGraph() Graph {
	return Graph{
		Forward:   make(map[string][]LinkEntry),
		Backlinks: make(map[string][]Backref),
	}
}

// Repo provides load/save and mutation operations over per-scope link
// graphs. Like the metadata index, links.json is a rebuildable cache.
type Repo struct {
	store  storage.Provider
	scopes *scope.Resolver
}

// NewRepo creates a link graph repository.
func NewRepo(store storage.Provider, scopes *scope.Resolver) *Repo {
	return &Repo{store: store, scopes: scopes}
}

// Load reads the graph for a scope root, falling back to an empty graph on
// any failure.
func (r *Repo) Load(scopeRoot string) Graph {
	paths := r.scopes.PathsFor(scopeRoot)
	data, err := r.store.ReadFile(paths.LinksFile)
	if err != nil {
		return emptyGraph()
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return emptyGraph()
	}
	if g.Forward == nil {
		g.Forward = make(map[string][]LinkEntry)
	}
	if g.Backlinks == nil {
		g.Backlinks = make(map[string][]Backref)
	}
	return g
}

// Save persists the graph for a scope root.
func (r *Repo) Save(scopeRoot string, g Graph) error {
	paths := r.scopes.PathsFor(scopeRoot)
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("linker: marshal: %w", err)
	}
	return r.store.WriteFile(paths.LinksFile, append(data, '\n'))
}

// UpdateLinks wholesale-replaces the outgoing links of one article: the old
// backlink footprint of {slug, from} is purged everywhere, the forward entry
// is replaced (or deleted when the new list is empty), and backlinks are
// re-added without duplicates. Re-running with identical links is a no-op.
func (r *Repo) UpdateLinks(scopeRoot, slug string, links []ParsedWikiLink, from scope.Scope) error {
	g := r.Load(scopeRoot)
	applyUpdate(&g, slug, links, from)
	return r.Save(scopeRoot, g)
}

// RemoveLinks drops an article from the graph on deletion. Incoming links
// from other articles are left in their sources' forward lists and become
// dangling; rendering surfaces them as not-found rather than hiding them.
func (r *Repo) RemoveLinks(scopeRoot, slug string, from scope.Scope) error {
	g := r.Load(scopeRoot)
	delete(g.Forward, slug)
	purgeBacklinksFrom(&g, slug, from)
	delete(g.Backlinks, slug)
	return r.Save(scopeRoot, g)
}

// GetForwardLinks returns the outgoing links of an article, empty if none.
func (r *Repo) GetForwardLinks(scopeRoot, slug string) []LinkEntry {
	return r.Load(scopeRoot).Forward[slug]
}

// GetBacklinks returns the articles linking to a target, empty if none.
func (r *Repo) GetBacklinks(scopeRoot, slug string) []Backref {
	return r.Load(scopeRoot).Backlinks[slug]
}

// Rebuild re-derives the whole graph from article bodies (slug → body) and
// overwrites the persisted file. Returns the number of forward links.
func (r *Repo) Rebuild(scopeRoot string, from scope.Scope, bodies map[string]string) (int, error) {
	g := emptyGraph()
	for slug, body := range bodies {
		applyUpdate(&g, slug, ParseWikiLinks(body), from)
	}
	count := 0
	for _, entries := range g.Forward {
		count += len(entries)
	}
	if err := r.Save(scopeRoot, g); err != nil {
		return 0, err
	}
	return count, nil
}

// CheckCrossScopeWarnings flags global articles that link into the local
// scope. Global content should not depend on machine-local content; this is
// advisory only, never an error.
func CheckCrossScopeWarnings(links []ParsedWikiLink, from scope.Scope) []string {
	if from != scope.Global {
		return nil
	}
	var warnings []string
	for _, link := range links {
		if link.Scope == string(scope.Local) {
			warnings = append(warnings, fmt.Sprintf(
				"global article links to local '%s'; global articles should not depend on local scope", link.Slug))
		}
	}
	return warnings
}

func applyUpdate(g *Graph, slug string, links []ParsedWikiLink, from scope.Scope) {
	purgeBacklinksFrom(g, slug, from)

	entries := make([]LinkEntry, 0, len(links))
	for _, link := range links {
		entries = append(entries, LinkEntry{
			Slug:        link.Slug,
			Scope:       link.Scope,
			DisplayText: link.DisplayText,
		})
	}

	if len(entries) > 0 {
		g.Forward[slug] = entries
	} else {
		delete(g.Forward, slug)
	}

	for _, entry := range entries {
		if hasBackref(g.Backlinks[entry.Slug], slug, from) {
			continue
		}
		g.Backlinks[entry.Slug] = append(g.Backlinks[entry.Slug], Backref{Slug: slug, Scope: from})
	}
}

// purgeBacklinksFrom removes every backlink entry sourced from {slug, from},
// dropping target keys that end up empty.
func purgeBacklinksFrom(g *Graph, slug string, from scope.Scope) {
	for target, refs := range g.Backlinks {
		kept := refs[:0]
		for _, ref := range refs {
			if ref.Slug == slug && ref.Scope == from {
				continue
			}
			kept = append(kept, ref)
		}
		if len(kept) == 0 {
			delete(g.Backlinks, target)
		} else {
			g.Backlinks[target] = kept
		}
	}
}

func hasBackref(refs []Backref, slug string, s scope.Scope) bool {
	for _, ref := range refs {
		if ref.Slug == slug && ref.Scope == s {
			return true
		}
	}
	return false
}
