package article

import (
	"github.com/corvid-labs/fuda/internal/frontmatter"
	"github.com/corvid-labs/fuda/internal/linker"
	"github.com/corvid-labs/fuda/internal/scope"
)

// ResolvedLink is a forward link enriched for display. Exists is false for
// dangling links; the caller renders those explicitly, never hides them.
type ResolvedLink struct {
	Slug        string      `json:"slug"`
	Scope       scope.Scope `json:"scope"`
	Title       string      `json:"title,omitempty"`
	DisplayText string      `json:"displayText,omitempty"`
	Exists      bool        `json:"exists"`
}

// ResolvedBacklink is one backlink enriched with the source's title.
type ResolvedBacklink struct {
	Slug  string      `json:"slug"`
	Scope scope.Scope `json:"scope"`
	Title string      `json:"title,omitempty"`
}

// ForwardLinks resolves an article and enriches its outgoing links with
// existence and titles. An unprefixed link target present in both scopes
// resolves local-first ("local wins"); explicit prefixes pin the scope.
func (s *Service) ForwardLinks(identifier string, sel scope.Selector) (Resolved, []ResolvedLink, error) {
	resolved, err := s.ResolveSlug(identifier, sel)
	if err != nil {
		return Resolved{}, nil, err
	}
	root, err := s.scopes.RootFor(resolved.Scope)
	if err != nil {
		return Resolved{}, nil, err
	}

	links := s.links.GetForwardLinks(root, resolved.Meta.Slug)
	out := make([]ResolvedLink, 0, len(links))
	for _, link := range links {
		out = append(out, s.resolveLinkTarget(link, resolved.Scope))
	}
	return resolved, out, nil
}

// resolveLinkTarget finds the target of one forward link. Candidate scopes
// are the explicit prefix when present, otherwise the local-first read
// chain; the first scope whose index knows the slug wins.
func (s *Service) resolveLinkTarget(link linker.LinkEntry, sourceScope scope.Scope) ResolvedLink {
	resolved := ResolvedLink{
		Slug:        link.Slug,
		Scope:       sourceScope,
		DisplayText: link.DisplayText,
	}

	var roots []scope.Root
	if link.Scope != "" {
		target := scope.Scope(link.Scope)
		if !target.Valid() {
			return resolved
		}
		path, err := s.scopes.RootFor(target)
		if err != nil {
			return resolved
		}
		roots = []scope.Root{{Scope: target, Path: path}}
	} else {
		roots = s.scopes.ReadRoots()
	}

	for _, root := range roots {
		idx := s.index.Load(root.Path)
		if meta, ok := idx.Articles[link.Slug]; ok {
			resolved.Scope = root.Scope
			resolved.Title = meta.Title
			resolved.Exists = true
			return resolved
		}
	}
	if link.Scope != "" {
		resolved.Scope = scope.Scope(link.Scope)
	}
	return resolved
}

// Backlinks resolves an article and returns the articles linking to it,
// enriched with titles from their own scopes' indexes.
func (s *Service) Backlinks(identifier string, sel scope.Selector) (Resolved, []ResolvedBacklink, error) {
	resolved, err := s.ResolveSlug(identifier, sel)
	if err != nil {
		return Resolved{}, nil, err
	}
	root, err := s.scopes.RootFor(resolved.Scope)
	if err != nil {
		return Resolved{}, nil, err
	}

	refs := s.links.GetBacklinks(root, resolved.Meta.Slug)
	out := make([]ResolvedBacklink, 0, len(refs))
	for _, ref := range refs {
		bl := ResolvedBacklink{Slug: ref.Slug, Scope: ref.Scope}
		if refRoot, err := s.scopes.RootFor(ref.Scope); err == nil {
			if meta, ok := s.index.Load(refRoot).Articles[ref.Slug]; ok {
				bl.Title = meta.Title
			}
		}
		out = append(out, bl)
	}
	return resolved, out, nil
}

// ReindexResult reports one scope's rebuild outcome.
type ReindexResult struct {
	Scope    scope.Scope `json:"scope"`
	Articles int         `json:"articles"`
	Links    int         `json:"links"`
}

// Reindex rebuilds the metadata index and link graph for every resolved
// scope by rescanning the vault. It is idempotent and safe to run at any
// time; it is the authoritative recovery path after a partial failure.
func (s *Service) Reindex(sel scope.Selector) ([]ReindexResult, error) {
	res, err := s.scopes.Resolve(sel, scope.Read)
	if err != nil {
		return nil, err
	}

	var results []ReindexResult
	for _, root := range res.Roots() {
		idx, err := s.index.Rebuild(root.Path)
		if err != nil {
			return nil, err
		}

		bodies := make(map[string]string, len(idx.Articles))
		for slug, meta := range idx.Articles {
			content, err := s.store.ReadFile(meta.FilePath)
			if err != nil {
				continue
			}
			_, body, err := frontmatter.Parse(string(content))
			if err != nil {
				continue
			}
			bodies[slug] = body
		}
		linkCount, err := s.links.Rebuild(root.Path, root.Scope, bodies)
		if err != nil {
			return nil, err
		}

		results = append(results, ReindexResult{
			Scope:    root.Scope,
			Articles: len(idx.Articles),
			Links:    linkCount,
		})
	}
	return results, nil
}
