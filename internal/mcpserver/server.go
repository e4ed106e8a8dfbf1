// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes fuda tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
)

// Server wraps the MCP server with fuda tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *article.Service
	engine *search.Engine
}

// New creates a new MCP server with all fuda tools registered.
func New(svc *article.Service, engine *search.Engine) *Server {
	s := &Server{svc: svc, engine: engine}

	s.mcp = server.NewMCPServer(
		"fuda",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search across article titles, tags, aliases, and bodies. "+
			"Handles CJK text and fuzzy matching."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("scope", mcp.Description("Scope to search: local, global, or all (default: local-first chain)")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read an article by slug, folder/slug, title, or alias."),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Article identifier (slug, folder/slug, title, or alias)")),
		mcp.WithString("scope", mcp.Description("Scope to read from: local, global, or all")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create a new article. The body is Markdown and may contain "+
			"[[wikilinks]] to other articles; frontmatter is generated automatically."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
		mcp.WithString("body", mcp.Description("Markdown body (a template heading is used when empty)")),
		mcp.WithString("folder", mcp.Description("Optional folder inside the vault")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("scope", mcp.Description("Target scope: local or global (default: nearest)")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List articles, optionally filtered by folder or tag."),
		mcp.WithString("folder", mcp.Description("Optional folder filter")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithString("scope", mcp.Description("Scope to list: local, global, or all")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all articles that link to the specified article."),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Article identifier to find backlinks for")),
		mcp.WithString("scope", mcp.Description("Scope to resolve in: local, global, or all")),
	), s.getBacklinks)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func requestSelector(req mcp.CallToolRequest) (scope.Selector, error) {
	raw := ""
	if v, err := req.RequireString("scope"); err == nil {
		raw = v
	}
	return scope.ParseSelector(raw)
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := requestSelector(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Scopes().Resolve(sel, scope.Read)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.engine.Search(query, search.Options{Roots: res.Roots(), Limit: 20})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(resp.Results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identifier")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := requestSelector(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.svc.Read(id, sel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nslug: %s\nscope: %s\n", art.Meta.Title, art.Meta.Slug, art.Scope)
	if len(art.Meta.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(art.Meta.Tags, ", "))
	}
	b.WriteString("\n")
	b.WriteString(art.Body)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := requestSelector(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := article.CreateOptions{Scope: sel}
	if v, err := req.RequireString("body"); err == nil {
		opts.Body = v
	}
	if v, err := req.RequireString("folder"); err == nil {
		opts.Folder = v
	}
	if v, err := req.RequireString("tags"); err == nil && v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}

	art, warnings, err := s.svc.Create(title, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("created: %s (scope: %s)", art.Meta.Slug, art.Scope)
	if len(warnings) > 0 {
		msg += "\nwarnings:\n" + strings.Join(warnings, "\n")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel, err := requestSelector(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := index.QueryOptions{Limit: 100}
	if v, err := req.RequireString("folder"); err == nil {
		opts.Folder = v
	}
	if v, err := req.RequireString("tag"); err == nil && v != "" {
		opts.Tags = []string{v}
	}

	listings, err := s.svc.List(sel, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, listing := range listings {
		for _, meta := range listing.Articles {
			name := meta.Slug
			if meta.Folder != "" {
				name = meta.Folder + "/" + meta.Slug
			}
			lines = append(lines, fmt.Sprintf("%s:%s\t%s", listing.Scope, name, meta.Title))
		}
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identifier")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := requestSelector(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, refs, err := s.svc.Backlinks(id, sel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, ref := range refs {
		line := fmt.Sprintf("%s:%s", ref.Scope, ref.Slug)
		if ref.Title != "" {
			line += "\t" + ref.Title
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
