// Package models defines the domain types shared across the vault engine.
package models

import "time"

// Link types produced by the extractor.
const (
	LinkWikilink = "wikilink"
	LinkMarkdown = "markdown"
	LinkTag      = "tag"
)

// Note is a parsed Markdown file. It is rebuilt from storage on every request.
type Note struct {
	Path        string         `json:"path"`
	FrontMatter map[string]any `json:"front_matter"`
	Content     string         `json:"content"`
}

// Link is a reference extracted from note text.
type Link struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Display string `json:"display"`
}

// Mention is a line that names a note without necessarily linking to it.
type Mention struct {
	LineNumber  int    `json:"line_number"`
	LineContent string `json:"line_content"`
}

// FileInfo describes a vault entry for listings.
type FileInfo struct {
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	Size         *int64    `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
