// Package search provides full-text search over vault articles. The index
// is built in memory from scratch for every query: at personal-vault scale
// the rebuild is cheap, and there is no persistent index that could go
// stale when files are edited behind our back.
package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/corvid-labs/fuda/internal/frontmatter"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/storage"
)

// analyzerName is our custom analyzer: unicode segmentation, lowercasing,
// and CJK width/bigram filters. The bigram filter turns a contiguous CJK
// run into overlapping two-character tokens, which is what makes search
// work on scripts without whitespace word boundaries.
const analyzerName = "vault"

// Field boost weights: title and tag/alias matches count more than body.
var fieldBoosts = map[string]float64{
	"title":   3.0,
	"tags":    2.0,
	"aliases": 2.0,
	"body":    1.0,
}

// document is the per-article shape fed to bleve.
type document struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Tags    string `json:"tags"`
	Aliases string `json:"aliases"`
}

// Result is one search hit.
type Result struct {
	Slug   string       `json:"slug"`
	Title  string       `json:"title"`
	Scope  scope.Scope  `json:"scope"`
	Folder string       `json:"folder"`
	Score  float64      `json:"score"`
	Tags   []string     `json:"tags"`
	Match  FieldMatches `json:"matches"`
}

// FieldMatches lists which query terms matched in which field, for
// snippet and highlight rendering.
type FieldMatches struct {
	Title []string `json:"title"`
	Body  []string `json:"body"`
}

// Response is the outcome of a search. Total counts filtered results before
// the limit is applied.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Options scopes and filters a search.
type Options struct {
	Roots  []scope.Root
	Tags   []string
	Folder string
	Limit  int
}

// Engine runs queries against freshly built per-scope indexes.
type Engine struct {
	store storage.Provider
	repo  *index.Repo
}

// NewEngine creates a search engine over the given metadata index.
func NewEngine(store storage.Provider, repo *index.Repo) *Engine {
	return &Engine{store: store, repo: repo}
}

// Search builds an index per requested scope, runs the query against each,
// merges, filters, sorts by descending score, and paginates.
func (e *Engine) Search(queryStr string, opts Options) (Response, error) {
	queryStr = strings.TrimSpace(queryStr)
	resp := Response{Query: queryStr, Results: []Result{}}
	if queryStr == "" {
		return resp, nil
	}

	var all []Result
	for _, root := range opts.Roots {
		hits, err := e.searchScope(queryStr, root, opts)
		if err != nil {
			return Response{}, err
		}
		all = append(all, hits...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Slug < all[j].Slug
	})

	resp.Total = len(all)
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(all) > limit {
		all = all[:limit]
	}
	if all != nil {
		resp.Results = all
	}
	return resp, nil
}

func (e *Engine) searchScope(queryStr string, root scope.Root, opts Options) ([]Result, error) {
	metas := e.repo.Load(root.Path)
	idx, err := e.buildIndex(metas)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	req := bleve.NewSearchRequest(buildQuery(queryStr))
	req.Size = len(metas.Articles)
	req.IncludeLocations = true

	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", queryStr, err)
	}

	var out []Result
	for _, hit := range res.Hits {
		meta, ok := metas.Articles[hit.ID]
		if !ok {
			continue
		}
		if len(opts.Tags) > 0 && !containsAll(meta.Tags, opts.Tags) {
			continue
		}
		if opts.Folder != "" && meta.Folder != opts.Folder {
			continue
		}

		matches := FieldMatches{Title: []string{}, Body: []string{}}
		for field, locations := range hit.Locations {
			for term := range locations {
				switch field {
				case "title":
					matches.Title = append(matches.Title, term)
				case "body":
					matches.Body = append(matches.Body, term)
				}
			}
		}
		sort.Strings(matches.Title)
		sort.Strings(matches.Body)

		out = append(out, Result{
			Slug:   hit.ID,
			Title:  meta.Title,
			Scope:  root.Scope,
			Folder: meta.Folder,
			Score:  math.Round(hit.Score*10) / 10,
			Tags:   meta.Tags,
			Match:  matches,
		})
	}
	return out, nil
}

// buildIndex indexes every article of a scope into a fresh in-memory bleve
// index, reading each body from disk rather than trusting any cache.
func (e *Engine) buildIndex(metas index.Index) (bleve.Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}

	batch := idx.NewBatch()
	for slug, meta := range metas.Articles {
		content, err := e.store.ReadFile(meta.FilePath)
		if err != nil {
			continue
		}
		_, body, err := frontmatter.Parse(string(content))
		if err != nil {
			continue
		}
		doc := document{
			Title:   meta.Title,
			Body:    body,
			Tags:    strings.Join(meta.Tags, " "),
			Aliases: strings.Join(meta.Aliases, " "),
		}
		if err := batch.Index(slug, doc); err != nil {
			idx.Close()
			return nil, fmt.Errorf("search: index %s: %w", slug, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("search: batch: %w", err)
	}
	return idx, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			cjk.WidthName,
			lowercase.Name,
			cjk.BigramName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search: add analyzer: %w", err)
	}
	m.DefaultAnalyzer = analyzerName
	return m, nil
}

// buildQuery combines, per field, an analyzed match query with fuzziness 1
// and a prefix query, weighted by the field boosts.
func buildQuery(queryStr string) query.Query {
	var disjuncts []query.Query
	prefix := strings.ToLower(queryStr)

	for field, boost := range fieldBoosts {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		mq.SetBoost(boost)
		mq.Fuzziness = 1
		disjuncts = append(disjuncts, mq)

		pq := bleve.NewPrefixQuery(prefix)
		pq.SetField(field)
		pq.SetBoost(boost)
		disjuncts = append(disjuncts, pq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

// Tokenize runs text through the vault analyzer. Exposed for callers that
// need to inspect segmentation (and to keep the CJK behavior testable).
func Tokenize(text string) ([]string, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, err
	}
	analyzer := m.AnalyzerNamed(analyzerName)
	if analyzer == nil {
		return nil, fmt.Errorf("search: analyzer %q not registered", analyzerName)
	}
	stream := analyzer.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, string(tok.Term))
	}
	return tokens, nil
}

func containsAll(have, want []string) bool {
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
