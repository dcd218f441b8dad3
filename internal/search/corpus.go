package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/frontmatter"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
)

// Search scopes.
const (
	ScopeContent  = "content"
	ScopeFilename = "filename"
	ScopeTags     = "tags"
)

// DefaultScopes are searched when a request names none.
var DefaultScopes = []string{ScopeContent, ScopeFilename, ScopeTags}

// VaultRequest describes a corpus search.
type VaultRequest struct {
	Query      string
	Scope      []string
	PathFilter string
	Limit      int
}

// Hit is one note matched by a corpus search.
type Hit struct {
	Note      models.Note `json:"note"`
	Matches   []string    `json:"matches"`
	Relevance int         `json:"relevance"`
}

// VaultResult is the response of a corpus search.
type VaultResult struct {
	Results      []Hit    `json:"results"`
	Query        string   `json:"query"`
	Scope        []string `json:"scope"`
	TotalResults int      `json:"total_results"`
}

// Search checks notes against the requested scopes, scoring each by the
// number of scopes that matched. At most Limit*2 candidate files are read and
// scanning stops once Limit hits are collected.
func (e *Engine) Search(ctx context.Context, req VaultRequest) (*VaultResult, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultSearchLimit
	}
	if len(req.Scope) == 0 {
		req.Scope = DefaultScopes
	}
	scopes := make(map[string]bool, len(req.Scope))
	for _, s := range req.Scope {
		scopes[s] = true
	}

	paths, err := e.vault.MarkdownPaths(req.PathFilter)
	if err != nil {
		return nil, err
	}
	if len(paths) > req.Limit*2 {
		paths = paths[:req.Limit*2]
	}

	needle := strings.ToLower(req.Query)
	hits := make([]Hit, 0)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := e.vault.Load(p)
		if err != nil {
			slog.Debug("search: skipping unreadable note", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}

		var matched []string
		if scopes[ScopeFilename] && strings.Contains(strings.ToLower(p), needle) {
			matched = append(matched, ScopeFilename)
		}
		if scopes[ScopeContent] && strings.Contains(strings.ToLower(doc.Content), needle) {
			matched = append(matched, ScopeContent)
		}
		if scopes[ScopeTags] {
			for _, tag := range frontmatter.Tags(doc.FrontMatter) {
				if strings.Contains(strings.ToLower(tag), needle) {
					matched = append(matched, ScopeTags)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		hits = append(hits, Hit{Note: doc.Note, Matches: matched, Relevance: len(matched)})
		if len(hits) >= req.Limit {
			break
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return &VaultResult{
		Results:      hits,
		Query:        req.Query,
		Scope:        req.Scope,
		TotalResults: len(hits),
	}, nil
}

// ParseScope splits a comma separated scope list, dropping blanks.
func ParseScope(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
