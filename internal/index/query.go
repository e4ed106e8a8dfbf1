package index

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort fields accepted by Query.
const (
	SortCreated = "created"
	SortUpdated = "updated"
	SortTitle   = "title"
)

// QueryOptions filters, sorts, and paginates an index listing. Filters are
// ANDed; Tags uses set-subset semantics (every requested tag must be
// present). Draft filters on the effective flag (absent means false).
type QueryOptions struct {
	Folder string
	Tags   []string
	Sort   string // created, updated, or title; defaults to updated
	Order  string // asc or desc; defaults to desc
	Limit  int    // defaults to 20
	Offset int
	Draft  *bool
}

// QueryResult carries one page of articles plus the pre-pagination total.
type QueryResult struct {
	Articles []ArticleMeta `json:"articles"`
	Total    int           `json:"total"`
}

// Query loads the index for a scope root and applies filters, sorting, and
// pagination in memory.
func (r *Repo) Query(scopeRoot string, opts QueryOptions) QueryResult {
	idx := r.Load(scopeRoot)

	articles := make([]ArticleMeta, 0, len(idx.Articles))
	for _, meta := range idx.Articles {
		if opts.Folder != "" && meta.Folder != opts.Folder {
			continue
		}
		if !containsAll(meta.Tags, opts.Tags) {
			continue
		}
		if opts.Draft != nil && meta.Draft != *opts.Draft {
			continue
		}
		articles = append(articles, meta)
	}

	total := len(articles)
	sortArticles(articles, opts.Sort, opts.Order)

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(articles) {
		offset = len(articles)
	}
	end := offset + limit
	if end > len(articles) {
		end = len(articles)
	}

	return QueryResult{Articles: articles[offset:end], Total: total}
}

// collator is shared; collation of titles follows Unicode order rather than
// raw byte order. ISO timestamps collate the same either way.
var collator = collate.New(language.Und)

func sortArticles(articles []ArticleMeta, field, order string) {
	key := func(m ArticleMeta) string {
		switch field {
		case SortCreated:
			return m.Created
		case SortTitle:
			return m.Title
		default:
			return m.Updated
		}
	}
	desc := order != "asc"

	sort.SliceStable(articles, func(i, j int) bool {
		cmp := collator.CompareString(key(articles[i]), key(articles[j]))
		if cmp == 0 {
			// Deterministic tiebreak.
			cmp = collator.CompareString(articles[i].Slug, articles[j].Slug)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
