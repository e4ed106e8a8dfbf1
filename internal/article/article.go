// Package article orchestrates article lifecycle operations: slug
// resolution, create/read/update/delete, and the index and link-graph
// updates that keep the side-files consistent with the vault. There is no
// rollback across those steps; a full reindex is the recovery path.
package article

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/frontmatter"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/linker"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/storage"
)

// invalidSlugChars are characters that cannot appear in a file name.
var invalidSlugChars = regexp.MustCompile(`[/\\:*?"<>|]`)

// TitleToSlug sanitizes a title into a usable slug.
func TitleToSlug(title string) string {
	return invalidSlugChars.ReplaceAllString(strings.TrimSpace(title), "-")
}

// Service coordinates storage, scope resolution, the metadata index, and
// the link graph. Mutations always touch the markdown file first, then the
// index, then the links.
type Service struct {
	store  storage.Provider
	scopes *scope.Resolver
	index  *index.Repo
	links  *linker.Repo
}

// NewService creates an article service.
func NewService(store storage.Provider, scopes *scope.Resolver, idx *index.Repo, links *linker.Repo) *Service {
	return &Service{store: store, scopes: scopes, index: idx, links: links}
}

// Index exposes the metadata index repo for read-side callers.
func (s *Service) Index() *index.Repo { return s.index }

// Links exposes the link graph repo for read-side callers.
func (s *Service) Links() *linker.Repo { return s.links }

// Scopes exposes the scope resolver.
func (s *Service) Scopes() *scope.Resolver { return s.scopes }

// Resolved is the outcome of slug resolution.
type Resolved struct {
	Meta  index.ArticleMeta
	Scope scope.Scope
}

// Article is a fully loaded article.
type Article struct {
	Meta  index.ArticleMeta `json:"meta"`
	Body  string            `json:"body"`
	Scope scope.Scope       `json:"scope"`
}

// ResolveSlug maps a human-typed identifier to exactly one article. It
// tries, in order: exact slug, folder/slug path, exact title, then alias.
// Exact slug matches accumulate across the scope chain, so the same slug in
// local and global surfaces as AMBIGUOUS_SLUG instead of silently picking
// one; the title and alias fallbacks are skipped entirely once any scope
// has matched, so an exact match never competes with a weaker tier.
func (s *Service) ResolveSlug(identifier string, sel scope.Selector) (Resolved, error) {
	res, err := s.scopes.Resolve(sel, scope.Read)
	if err != nil {
		return Resolved{}, err
	}

	var candidates []Resolved
	for _, root := range res.Roots() {
		idx := s.index.Load(root.Path)

		if meta, ok := idx.Articles[identifier]; ok {
			candidates = append(candidates, Resolved{Meta: meta, Scope: root.Scope})
			continue
		}

		for slug, meta := range idx.Articles {
			folderSlug := slug
			if meta.Folder != "" {
				folderSlug = meta.Folder + "/" + slug
			}
			if folderSlug == identifier {
				candidates = append(candidates, Resolved{Meta: meta, Scope: root.Scope})
				break
			}
		}
		// Title and alias fallbacks run only while no scope has matched at
		// all: an exact slug hit in local must not collide with a foreign
		// title or alias in global.
		if len(candidates) == 0 {
			for _, meta := range idx.Articles {
				if meta.Title == identifier {
					candidates = append(candidates, Resolved{Meta: meta, Scope: root.Scope})
					break
				}
			}
		}
		if len(candidates) == 0 {
		aliases:
			for _, meta := range idx.Articles {
				for _, alias := range meta.Aliases {
					if alias == identifier {
						candidates = append(candidates, Resolved{Meta: meta, Scope: root.Scope})
						break aliases
					}
				}
			}
		}
		if len(candidates) > 0 {
			break
		}
	}

	switch len(candidates) {
	case 0:
		return Resolved{}, apperr.Newf(apperr.CodeArticleNotFound, "article %q not found", identifier)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = fmt.Sprintf("%s:%s", c.Scope, c.Meta.Slug)
		}
		return Resolved{}, apperr.Ambiguous(fmt.Sprintf("slug %q is ambiguous", identifier), names)
	}
}

// Read loads an article by identifier. Frontmatter failures on a direct
// read are fatal to the operation, unlike during bulk rebuild.
func (s *Service) Read(identifier string, sel scope.Selector) (Article, error) {
	resolved, err := s.ResolveSlug(identifier, sel)
	if err != nil {
		return Article{}, err
	}
	content, err := s.store.ReadFile(resolved.Meta.FilePath)
	if err != nil {
		return Article{}, apperr.Wrap(apperr.CodeIOError,
			fmt.Sprintf("read article %q", resolved.Meta.Slug), err)
	}
	fm, body, err := frontmatter.Parse(string(content))
	if err != nil {
		return Article{}, err
	}

	meta := resolved.Meta
	applyFrontmatter(&meta, fm)
	return Article{Meta: meta, Body: body, Scope: resolved.Scope}, nil
}

// CreateOptions controls article creation.
type CreateOptions struct {
	Folder   string
	Tags     []string
	Template string
	Scope    scope.Selector
	Slug     string
	Body     string
	Draft    bool
}

// Create writes a new article and records it in the index and link graph.
// A slug collision yields a numeric suffix: foo, foo-1, foo-2.
// Returned warnings are advisory (cross-scope link policy).
func (s *Service) Create(title string, opts CreateOptions) (Article, []string, error) {
	if strings.TrimSpace(title) == "" {
		return Article{}, nil, apperr.New(apperr.CodeValidationError, "title must not be empty")
	}

	res, err := s.scopes.Resolve(opts.Scope, scope.Write)
	if err != nil {
		return Article{}, nil, err
	}
	targetScope := res.Scopes[0]

	var root string
	switch targetScope {
	case scope.Local:
		root = res.LocalRoot
	case scope.Global:
		root, err = s.scopes.EnsureGlobalScope()
		if err != nil {
			return Article{}, nil, err
		}
	}
	paths := s.scopes.PathsFor(root)

	base := opts.Slug
	if base == "" {
		base = TitleToSlug(title)
	}

	dir := paths.Vault
	if opts.Folder != "" {
		dir = filepath.Join(paths.Vault, filepath.FromSlash(opts.Folder))
	}
	if err := s.store.MkdirAll(dir); err != nil {
		return Article{}, nil, err
	}

	// Numeric suffixing on collision; the slug is unique per scope, so the
	// index is checked alongside the target path.
	existing := s.index.Load(root)
	slug := base
	filePath := filepath.Join(dir, slug+".md")
	for counter := 1; s.store.Exists(filePath) || hasSlug(existing, slug); counter++ {
		slug = fmt.Sprintf("%s-%d", base, counter)
		filePath = filepath.Join(dir, slug+".md")
	}

	templateName := opts.Template
	if templateName == "" {
		templateName = "note"
	}
	fm := frontmatter.New(title, opts.Tags, templateName, opts.Draft)

	body := opts.Body
	if body == "" {
		body = s.templateBody(templateName, title, opts.Folder)
	}

	content := frontmatter.Serialize(fm, body)
	if err := s.store.WriteFile(filePath, []byte(content)); err != nil {
		return Article{}, nil, err
	}

	meta := index.ArticleMeta{
		Slug:     slug,
		Title:    title,
		Folder:   opts.Folder,
		Tags:     fm.Tags,
		Created:  fm.Created,
		Updated:  fm.Updated,
		Template: fm.Template,
		Aliases:  fm.Aliases,
		Draft:    fm.Draft,
		FilePath: filePath,
	}
	if err := s.index.Upsert(root, meta); err != nil {
		return Article{}, nil, err
	}

	parsed := linker.ParseWikiLinks(body)
	if err := s.links.UpdateLinks(root, slug, parsed, targetScope); err != nil {
		return Article{}, nil, err
	}
	warnings := linker.CheckCrossScopeWarnings(parsed, targetScope)

	return Article{Meta: meta, Body: body, Scope: targetScope}, warnings, nil
}

// UpdateOptions describes an article update. Body and Append are mutually
// exclusive; nil pointers leave the corresponding field untouched.
type UpdateOptions struct {
	Title       *string
	AddTags     []string
	RemoveTags  []string
	Body        *string
	Append      *string
	Draft       *bool
	AddAlias    string
	RemoveAlias string
	Scope       scope.Selector
}

// Update applies metadata and body changes, refreshes the updated
// timestamp, and propagates the result to the index and link graph.
func (s *Service) Update(identifier string, opts UpdateOptions) (Article, []string, error) {
	if opts.Body != nil && opts.Append != nil {
		return Article{}, nil, apperr.New(apperr.CodeValidationError,
			"cannot specify both body and append")
	}

	art, err := s.Read(identifier, opts.Scope)
	if err != nil {
		return Article{}, nil, err
	}

	fm := frontmatter.Frontmatter{
		Title:    art.Meta.Title,
		Tags:     art.Meta.Tags,
		Created:  art.Meta.Created,
		Updated:  art.Meta.Updated,
		Template: art.Meta.Template,
		Aliases:  art.Meta.Aliases,
		Draft:    art.Meta.Draft,
	}

	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return Article{}, nil, apperr.New(apperr.CodeValidationError, "title must not be empty")
		}
		fm.Title = *opts.Title
	}
	fm.Tags = addUnique(fm.Tags, opts.AddTags)
	fm.Tags = removeAll(fm.Tags, opts.RemoveTags)
	if opts.Draft != nil {
		fm.Draft = *opts.Draft
	}
	if opts.AddAlias != "" {
		fm.Aliases = addUnique(fm.Aliases, []string{opts.AddAlias})
	}
	if opts.RemoveAlias != "" {
		fm.Aliases = removeAll(fm.Aliases, []string{opts.RemoveAlias})
		if len(fm.Aliases) == 0 {
			fm.Aliases = nil
		}
	}
	fm.Updated = time.Now().UTC().Format(time.RFC3339)

	body := art.Body
	switch {
	case opts.Body != nil:
		body = *opts.Body
	case opts.Append != nil:
		if body != "" {
			body = body + "\n\n" + *opts.Append
		} else {
			body = *opts.Append
		}
	}

	content := frontmatter.Serialize(fm, body)
	if err := s.store.WriteFile(art.Meta.FilePath, []byte(content)); err != nil {
		return Article{}, nil, err
	}

	root, err := s.scopes.RootFor(art.Scope)
	if err != nil {
		return Article{}, nil, err
	}

	meta := art.Meta
	applyFrontmatter(&meta, fm)
	if err := s.index.Upsert(root, meta); err != nil {
		return Article{}, nil, err
	}

	parsed := linker.ParseWikiLinks(body)
	if err := s.links.UpdateLinks(root, meta.Slug, parsed, art.Scope); err != nil {
		return Article{}, nil, err
	}
	warnings := linker.CheckCrossScopeWarnings(parsed, art.Scope)

	return Article{Meta: meta, Body: body, Scope: art.Scope}, warnings, nil
}

// Delete removes an article file, its index entry, and its link footprint.
func (s *Service) Delete(identifier string, sel scope.Selector) (Resolved, error) {
	resolved, err := s.ResolveSlug(identifier, sel)
	if err != nil {
		return Resolved{}, err
	}
	if err := s.store.DeleteFile(resolved.Meta.FilePath); err != nil {
		return Resolved{}, err
	}
	root, err := s.scopes.RootFor(resolved.Scope)
	if err != nil {
		return Resolved{}, err
	}
	if err := s.index.Remove(root, resolved.Meta.Slug); err != nil {
		return Resolved{}, err
	}
	if err := s.links.RemoveLinks(root, resolved.Meta.Slug, resolved.Scope); err != nil {
		return Resolved{}, err
	}
	return resolved, nil
}

// Listing is one scope's page of a list query.
type Listing struct {
	Scope    scope.Scope         `json:"scope"`
	Articles []index.ArticleMeta `json:"articles"`
	Total    int                 `json:"total"`
}

// List queries each resolved scope independently.
func (s *Service) List(sel scope.Selector, opts index.QueryOptions) ([]Listing, error) {
	res, err := s.scopes.Resolve(sel, scope.Read)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(res.Scopes))
	for _, root := range res.Roots() {
		q := s.index.Query(root.Path, opts)
		out = append(out, Listing{Scope: root.Scope, Articles: q.Articles, Total: q.Total})
	}
	return out, nil
}

func applyFrontmatter(meta *index.ArticleMeta, fm frontmatter.Frontmatter) {
	meta.Title = fm.Title
	meta.Tags = fm.Tags
	meta.Created = fm.Created
	meta.Updated = fm.Updated
	meta.Template = fm.Template
	meta.Aliases = fm.Aliases
	meta.Draft = fm.Draft
}

func hasSlug(idx index.Index, slug string) bool {
	_, ok := idx.Articles[slug]
	return ok
}

func addUnique(list, add []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := append([]string(nil), list...)
	for _, v := range list {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func removeAll(list, remove []string) []string {
	if len(remove) == 0 {
		return list
	}
	drop := make(map[string]struct{}, len(remove))
	for _, v := range remove {
		drop[v] = struct{}{}
	}
	out := list[:0]
	for _, v := range list {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
