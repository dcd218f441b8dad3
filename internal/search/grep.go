// Package search implements line-oriented pattern search and scored corpus
// search over vault notes.
package search

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

const (
	DefaultFilePattern = "*.md"
	DefaultMaxResults  = 100
	MaxMaxResults      = 1000
	MaxContextLines    = 10
	DefaultSearchLimit = 20
)

const frontmatterDelimiter = "---"

// GrepRequest describes a pattern search across vault files.
type GrepRequest struct {
	Pattern            string
	IsRegex            bool
	CaseSensitive      bool
	IncludeFrontmatter bool
	FilePattern        string
	MaxResults         int
	ContextLines       int
}

// LineMatch is a single matching line.
type LineMatch struct {
	LineNumber    int      `json:"line_number"`
	LineContent   string   `json:"line_content"`
	InFrontmatter bool     `json:"in_frontmatter"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// FileMatches groups the reported matches of one file. TotalMatches counts
// every match in the file, including those cut by the global cap.
type FileMatches struct {
	File         string      `json:"file"`
	Matches      []LineMatch `json:"matches"`
	TotalMatches int         `json:"total_matches"`
}

// GrepResult is the response of a pattern search.
type GrepResult struct {
	Pattern          string        `json:"pattern"`
	IsRegex          bool          `json:"is_regex"`
	FilesSearched    int           `json:"files_searched"`
	FilesWithMatches int           `json:"files_with_matches"`
	TotalMatches     int           `json:"total_matches"`
	Results          []FileMatches `json:"results"`
}

// Engine searches the notes of a vault.
type Engine struct {
	vault *vault.Vault
}

// New creates a search engine.
func New(v *vault.Vault) *Engine {
	return &Engine{vault: v}
}

// Grep scans every file matching req.FilePattern line by line. Scanning stops
// once MaxResults matches have been reported; TotalMatches equals the number
// of matches in Results.
func (e *Engine) Grep(ctx context.Context, req GrepRequest) (*GrepResult, error) {
	if req.FilePattern == "" {
		req.FilePattern = DefaultFilePattern
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	req.ContextLines = max(0, min(req.ContextLines, MaxContextLines))

	all, err := e.vault.Store().List("", true)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range all {
		if MatchGlob(req.FilePattern, f) {
			files = append(files, f)
		}
	}

	m := NewMatcher(req.Pattern, req.IsRegex, req.CaseSensitive)
	res := &GrepResult{
		Pattern:       req.Pattern,
		IsRegex:       req.IsRegex,
		FilesSearched: len(files),
		Results:       make([]FileMatches, 0),
	}

	for _, f := range files {
		if res.TotalMatches >= req.MaxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.vault.Store().Read(f)
		if err != nil {
			slog.Debug("search: skipping unreadable file", slog.String("path", f), slog.String("error", err.Error()))
			continue
		}
		matches := FindMatches(string(data), m, req.IncludeFrontmatter, req.ContextLines)
		if len(matches) == 0 {
			continue
		}
		total := len(matches)
		if remaining := req.MaxResults - res.TotalMatches; len(matches) > remaining {
			matches = matches[:remaining]
		}
		res.Results = append(res.Results, FileMatches{File: f, Matches: matches, TotalMatches: total})
		res.TotalMatches += len(matches)
	}
	res.FilesWithMatches = len(res.Results)
	return res, nil
}

// MatchGlob reports whether p matches pattern. Patterns without a slash are
// matched against the file name so "*.md" selects notes in every folder.
func MatchGlob(pattern, p string) bool {
	target := p
	if !strings.Contains(pattern, "/") {
		target = path.Base(p)
	}
	ok, err := path.Match(pattern, target)
	return err == nil && ok
}

// Matcher reports whether a single line matches.
type Matcher func(line string) bool

// NewMatcher compiles the pattern once. An invalid regular expression
// matches nothing.
func NewMatcher(pattern string, isRegex, caseSensitive bool) Matcher {
	if isRegex {
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			slog.Debug("search: invalid pattern", slog.String("pattern", pattern), slog.String("error", err.Error()))
			return func(string) bool { return false }
		}
		return re.MatchString
	}
	if caseSensitive {
		return func(line string) bool { return strings.Contains(line, pattern) }
	}
	needle := strings.ToLower(pattern)
	return func(line string) bool { return strings.Contains(strings.ToLower(line), needle) }
}

// BlockState tracks the position of a line relative to the front-matter block.
type BlockState int

const (
	// BeforeBlock is the state at line 0, before the opening delimiter is seen.
	BeforeBlock BlockState = iota
	// InBlock covers the lines between the opening and closing delimiters.
	InBlock
	// AfterBlock is body text; any further delimiter lines are ordinary text.
	AfterBlock
)

// FindMatches tests every line of content. Delimiter lines of the leading
// front-matter block are never matched. An unterminated block extends to the
// end of the file.
func FindMatches(content string, match Matcher, includeFrontmatter bool, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}

	var out []LineMatch
	state := BeforeBlock
	for i, line := range lines {
		isDelimiter := strings.TrimSpace(line) == frontmatterDelimiter
		switch state {
		case BeforeBlock:
			if isDelimiter {
				state = InBlock
				continue
			}
			state = AfterBlock
		case InBlock:
			if isDelimiter {
				state = AfterBlock
				continue
			}
		}

		inFM := state == InBlock
		if inFM && !includeFrontmatter {
			continue
		}
		if !match(line) {
			continue
		}
		lm := LineMatch{LineNumber: i + 1, LineContent: line, InFrontmatter: inFM}
		if contextLines > 0 {
			lm.ContextBefore = append([]string(nil), lines[max(0, i-contextLines):i]...)
			lm.ContextAfter = append([]string(nil), lines[i+1:min(len(lines), i+1+contextLines)]...)
		}
		out = append(out, lm)
	}
	return out
}
