// Package index maintains the per-scope metadata index: a slug → ArticleMeta
// mapping persisted as index.json. The file is a cache, not a source of
// truth; a full vault rescan can regenerate it at any time.
package index

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corvid-labs/fuda/internal/frontmatter"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/storage"
)

// ArticleMeta is the indexed metadata of one article. Created and Updated
// stay ISO-8601 strings; they sort correctly lexicographically and never
// drift through reformatting.
type ArticleMeta struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Folder   string   `json:"folder"`
	Tags     []string `json:"tags"`
	Created  string   `json:"created"`
	Updated  string   `json:"updated"`
	Template string   `json:"template,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
	Draft    bool     `json:"draft,omitempty"`
	// FilePath is absolute in memory and portable on disk (see paths.go).
	FilePath string `json:"filePath"`
}

// Index is the persisted shape of index.json.
type Index struct {
	Articles map[string]ArticleMeta `json:"articles"`
}

// Repo provides load/save and mutation operations over per-scope index
// files. All mutations are whole-file read-modify-write cycles; the single
// writer assumption makes that safe.
type Repo struct {
	store  storage.Provider
	scopes *scope.Resolver
}

// NewRepo creates an index repository.
func NewRepo(store storage.Provider, scopes *scope.Resolver) *Repo {
	return &Repo{store: store, scopes: scopes}
}

// Load reads the index for a scope root. Any failure (missing file, bad
// JSON) yields an empty index: the authoritative state is the vault itself.
func (r *Repo) Load(scopeRoot string) Index {
	paths := r.scopes.PathsFor(scopeRoot)
	idx := Index{Articles: make(map[string]ArticleMeta)}

	data, err := r.store.ReadFile(paths.IndexFile)
	if err != nil {
		return idx
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{Articles: make(map[string]ArticleMeta)}
	}
	if idx.Articles == nil {
		idx.Articles = make(map[string]ArticleMeta)
	}
	for slug, meta := range idx.Articles {
		meta.FilePath = r.toAbsolute(meta.FilePath, scopeRoot)
		if meta.Tags == nil {
			meta.Tags = []string{}
		}
		idx.Articles[slug] = meta
	}
	return idx
}

// Save persists the index, relativizing every FilePath for portability.
func (r *Repo) Save(scopeRoot string, idx Index) error {
	paths := r.scopes.PathsFor(scopeRoot)

	out := Index{Articles: make(map[string]ArticleMeta, len(idx.Articles))}
	for slug, meta := range idx.Articles {
		meta.FilePath = r.toPortable(meta.FilePath, scopeRoot)
		out.Articles[slug] = meta
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	return r.store.WriteFile(paths.IndexFile, append(data, '\n'))
}

// Upsert sets articles[meta.Slug] = meta. Last write wins.
func (r *Repo) Upsert(scopeRoot string, meta ArticleMeta) error {
	idx := r.Load(scopeRoot)
	idx.Articles[meta.Slug] = meta
	return r.Save(scopeRoot, idx)
}

// Remove deletes a slug from the index. Removing an absent slug is a no-op.
func (r *Repo) Remove(scopeRoot, slug string) error {
	idx := r.Load(scopeRoot)
	delete(idx.Articles, slug)
	return r.Save(scopeRoot, idx)
}

// Rebuild rescans every markdown file under the vault and overwrites the
// persisted index with the result. Files whose frontmatter fails to parse
// are skipped so one corrupted note cannot block reindexing the rest.
func (r *Repo) Rebuild(scopeRoot string) (Index, error) {
	paths := r.scopes.PathsFor(scopeRoot)
	files, err := r.store.ListFiles(paths.Vault, "*.md", true)
	if err != nil {
		return Index{}, fmt.Errorf("index: scan vault: %w", err)
	}

	idx := Index{Articles: make(map[string]ArticleMeta, len(files))}
	for _, filePath := range files {
		content, err := r.store.ReadFile(filePath)
		if err != nil {
			continue
		}
		fm, _, err := frontmatter.Parse(string(content))
		if err != nil {
			// parse-or-skip: bulk scans absorb per-file failures.
			continue
		}

		slug := strings.TrimSuffix(filepath.Base(filePath), ".md")
		folder := ""
		if rel, err := filepath.Rel(paths.Vault, filePath); err == nil {
			if dir := filepath.Dir(rel); dir != "." {
				folder = filepath.ToSlash(dir)
			}
		}

		idx.Articles[slug] = ArticleMeta{
			Slug:     slug,
			Title:    fm.Title,
			Folder:   folder,
			Tags:     fm.Tags,
			Created:  fm.Created,
			Updated:  fm.Updated,
			Template: fm.Template,
			Aliases:  fm.Aliases,
			Draft:    fm.Draft,
			FilePath: filePath,
		}
	}

	if err := r.Save(scopeRoot, idx); err != nil {
		return Index{}, err
	}
	return idx, nil
}
