// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the vault analysis tools to agents over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/graph"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/query"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/search"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/stats"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp    *server.MCPServer
	notes  *noteservice.Service
	query  *query.Engine
	search *search.Engine
	graph  *graph.Engine
	stats  *stats.Engine
}

// New creates an MCP server with all vault tools registered.
func New(v *vault.Vault, notes *noteservice.Service) *Server {
	s := &Server{
		notes:  notes,
		query:  query.New(v),
		search: search.New(v),
		graph:  graph.New(v),
		stats:  stats.New(v),
	}

	s.mcp = server.NewMCPServer(
		"obsidian-local-rest-api",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("grep_vault",
		mcp.WithDescription("Search vault files line by line for a literal string or regular expression."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Text or regular expression to look for")),
		mcp.WithBoolean("is_regex", mcp.Description("Treat pattern as a regular expression (default false)")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly (default false)")),
		mcp.WithBoolean("include_frontmatter", mcp.Description("Also search front-matter lines (default true)")),
		mcp.WithString("file_pattern", mcp.Description("Glob on the file path or name (default *.md)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum matches to return, 1-1000 (default 100)")),
		mcp.WithNumber("context_lines", mcp.Description("Lines of context around each match, 0-10 (default 0)")),
	), s.grepVault)

	s.mcp.AddTool(mcp.NewTool("query_frontmatter",
		mcp.WithDescription("Query notes by front-matter fields. Read "+NoteFormatURI+" for the condition syntax."),
		mcp.WithString("fields", mcp.Description("Comma separated keys to return, or * for all")),
		mcp.WithObject("where", mcp.Description("Conditions keyed by field: a literal or [operator, value]")),
		mcp.WithString("sort_by", mcp.Description("Field to sort by")),
		mcp.WithString("sort_direction", mcp.Description("asc or desc (default asc)")),
		mcp.WithNumber("limit", mcp.Description("Maximum records, 1-1000 (default 100)")),
		mcp.WithBoolean("distinct", mcp.Description("Drop records with identical values")),
	), s.queryFrontmatter)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find notes that link to or mention the given note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note (.md optional)")),
		mcp.WithBoolean("include_mentions", mcp.Description("Include unlinked mentions (default true)")),
		mcp.WithBoolean("include_tags", mcp.Description("Include tags among outgoing links (default false)")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_related_notes",
		mcp.WithDescription("Rank notes related to the given note by shared tags and links."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the source note")),
		mcp.WithString("on", mcp.Description("Comma separated criteria: tags, links (default both)")),
		mcp.WithNumber("limit", mcp.Description("Maximum related notes (default 10)")),
	), s.getRelatedNotes)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Search note file names, content and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithString("scope", mcp.Description("Comma separated scopes: content, filename, tags")),
		mcp.WithString("path_filter", mcp.Description("Only notes whose path contains this text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("get_tags",
		mcp.WithDescription("List tags with the number of notes carrying each."),
		mcp.WithNumber("min_count", mcp.Description("Hide tags used by fewer notes (default 1)")),
		mcp.WithBoolean("include_nested", mcp.Description("Count parent tags of a/b/c (default true)")),
		mcp.WithString("format", mcp.Description("flat or hierarchical (default flat)")),
	), s.getTags)

	s.mcp.AddTool(mcp.NewTool("get_vault_stats",
		mcp.WithDescription("Summarize vault size, tags, links and health."),
	), s.getVaultStats)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's front matter and content."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("upsert_note",
		mcp.WithDescription("Create or replace a note. Follow the "+NoteFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the note (.md is added when missing)")),
		mcp.WithObject("front_matter", mcp.Description("Front-matter mapping")),
		mcp.WithString("content", mcp.Description("Markdown body without front matter")),
	), s.upsertNote)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format",
			mcp.WithResourceDescription("Markdown note layout understood by the vault tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func toolError(err error, path string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) grepVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.search.Grep(ctx, search.GrepRequest{
		Pattern:            pattern,
		IsRegex:            req.GetBool("is_regex", false),
		CaseSensitive:      req.GetBool("case_sensitive", false),
		IncludeFrontmatter: req.GetBool("include_frontmatter", true),
		FilePattern:        req.GetString("file_pattern", search.DefaultFilePattern),
		MaxResults:         min(req.GetInt("max_results", search.DefaultMaxResults), search.MaxMaxResults),
		ContextLines:       req.GetInt("context_lines", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) queryFrontmatter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	where, _ := req.GetArguments()["where"].(map[string]any)
	res, err := s.query.Query(ctx, query.Request{
		Fields:        query.FieldsOf(splitList(req.GetString("fields", ""))),
		Where:         where,
		SortBy:        req.GetString("sort_by", ""),
		SortDirection: req.GetString("sort_direction", query.SortAsc),
		Limit:         min(req.GetInt("limit", query.DefaultLimit), query.MaxLimit),
		Distinct:      req.GetBool("distinct", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.graph.Backlinks(ctx, path,
		req.GetBool("include_mentions", true),
		req.GetBool("include_tags", false))
	if err != nil {
		return toolError(err, path), nil
	}
	return jsonResult(res)
}

func (s *Server) getRelatedNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.graph.Related(ctx, path,
		splitList(req.GetString("on", "")),
		req.GetInt("limit", graph.DefaultRelatedLimit))
	if err != nil {
		return toolError(err, path), nil
	}
	return jsonResult(res)
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.search.Search(ctx, search.VaultRequest{
		Query:      q,
		Scope:      splitList(req.GetString("scope", "")),
		PathFilter: req.GetString("path_filter", ""),
		Limit:      req.GetInt("limit", search.DefaultSearchLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.stats.Tags(ctx, stats.TagsRequest{
		MinCount:      req.GetInt("min_count", 1),
		IncludeNested: req.GetBool("include_nested", true),
		Format:        req.GetString("format", stats.FormatFlat),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getVaultStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.stats.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.GetNote(ctx, vault.NotePath(path))
	if err != nil {
		return toolError(err, path), nil
	}
	return jsonResult(n)
}

func (s *Server) upsertNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fm, _ := req.GetArguments()["front_matter"].(map[string]any)
	n, created, err := s.notes.UpsertNote(ctx, path, fm, req.GetString("content", ""))
	if err != nil {
		return toolError(err, path), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", verb, n.Path)), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
