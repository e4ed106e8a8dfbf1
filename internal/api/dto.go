package api

import (
	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/search"
)

// CreateArticleRequest is the request body for creating an article.
type CreateArticleRequest struct {
	Title    string   `json:"title"`
	Folder   string   `json:"folder,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Template string   `json:"template,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	Slug     string   `json:"slug,omitempty"`
	Body     string   `json:"body,omitempty"`
	Draft    bool     `json:"draft,omitempty"`
}

// UpdateArticleRequest is the request body for updating an article. Nil
// fields are left untouched; body and append are mutually exclusive.
type UpdateArticleRequest struct {
	Title       *string  `json:"title,omitempty"`
	AddTags     []string `json:"addTags,omitempty"`
	RemoveTags  []string `json:"removeTags,omitempty"`
	Body        *string  `json:"body,omitempty"`
	Append      *string  `json:"append,omitempty"`
	Draft       *bool    `json:"draft,omitempty"`
	AddAlias    string   `json:"addAlias,omitempty"`
	RemoveAlias string   `json:"removeAlias,omitempty"`
}

// ArticleResponse wraps a full article with any advisory warnings and the
// content checksum used for optimistic concurrency.
type ArticleResponse struct {
	Article  article.Article `json:"article"`
	Checksum string          `json:"checksum,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ListResponse wraps per-scope listings.
type ListResponse struct {
	Scopes []article.Listing `json:"scopes"`
}

// SearchResponse wraps merged search results.
type SearchResponse = search.Response

// LinksResponse wraps forward links of one article.
type LinksResponse struct {
	Slug  string                 `json:"slug"`
	Scope string                 `json:"scope"`
	Links []article.ResolvedLink `json:"links"`
}

// BacklinksResponse wraps the backlinks of one article.
type BacklinksResponse struct {
	Slug      string                     `json:"slug"`
	Scope     string                     `json:"scope"`
	Backlinks []article.ResolvedBacklink `json:"backlinks"`
}

// ReindexResponse wraps per-scope rebuild counts.
type ReindexResponse struct {
	Scopes []article.ReindexResult `json:"scopes"`
}
