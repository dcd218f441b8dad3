package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/query"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/search"
)

// NoteRequest is the body for creating, upserting or replacing a note.
type NoteRequest struct {
	Path        string         `json:"path" example:"projects/alpha.md"`
	FrontMatter map[string]any `json:"front_matter"`
	Content     string         `json:"content" example:"# Alpha\nBody"`
}

// Validate requires a path. PUT takes the path from the URL and skips it.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.Length(1, 1024)),
	)
}

// PatchNoteRequest merges front-matter keys and optionally replaces content.
type PatchNoteRequest struct {
	FrontMatter map[string]any `json:"front_matter"`
	Content     *string        `json:"content"`
}

// Validate requires at least one of the two fields.
func (r PatchNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FrontMatter, validation.Required.When(r.Content == nil).Error("front_matter or content is required")),
	)
}

// BulkDeleteRequest lists the notes to delete.
type BulkDeleteRequest struct {
	Paths []string `json:"paths"`
}

// Validate requires a non-empty list of non-empty paths.
func (r BulkDeleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Paths, validation.Required, validation.Each(validation.Required)),
	)
}

// BulkUpdateItem is one entry of a bulk update.
type BulkUpdateItem struct {
	Path        string         `json:"path"`
	FrontMatter map[string]any `json:"front_matter"`
	Content     *string        `json:"content"`
}

// Validate requires a path.
func (i BulkUpdateItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Path, validation.Required),
	)
}

// BulkUpdateRequest lists note patches.
type BulkUpdateRequest struct {
	Items []BulkUpdateItem `json:"items"`
}

// Validate requires at least one item; every item is validated.
func (r BulkUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required),
	)
}

func (r BulkUpdateRequest) serviceItems() []noteservice.BulkUpdateItem {
	items := make([]noteservice.BulkUpdateItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, noteservice.BulkUpdateItem{Path: it.Path, FrontMatter: it.FrontMatter, Content: it.Content})
	}
	return items
}

// WriteFileRequest is the body of POST /files/write.
type WriteFileRequest struct {
	Path    string `json:"path" example:"inbox.md"`
	Content string `json:"content"`
	Mode    string `json:"mode" example:"append"`
}

// Validate checks the path and write mode.
func (r WriteFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Mode, validation.In(noteservice.ModeOverwrite, noteservice.ModeAppend, noteservice.ModePrepend)),
	)
}

// CreateFileRequest is the body of POST /files.
type CreateFileRequest struct {
	Path    string `json:"path"`
	Type    string `json:"type" example:"file"`
	Content string `json:"content"`
}

// Validate checks the path and entry type.
func (r CreateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Type, validation.In(noteservice.TypeFile, noteservice.TypeDirectory)),
	)
}

// UpdateFileRequest is the body of PUT /files/{path}.
type UpdateFileRequest struct {
	Content *string `json:"content"`
}

// Validate requires content to be present, possibly empty.
func (r UpdateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// GrepRequest is the body of POST /agent/grep. Pointer fields distinguish
// an omitted option from its zero value.
type GrepRequest struct {
	Pattern            string `json:"pattern" example:"TODO"`
	IsRegex            *bool  `json:"is_regex"`
	CaseSensitive      *bool  `json:"case_sensitive"`
	IncludeFrontmatter *bool  `json:"include_frontmatter"`
	FilePattern        string `json:"file_pattern" example:"*.md"`
	MaxResults         *int   `json:"max_results"`
	ContextLines       *int   `json:"context_lines"`
}

// Validate checks the pattern and numeric bounds.
func (r GrepRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Pattern, validation.Required),
		validation.Field(&r.MaxResults, validation.By(intRange(1, search.MaxMaxResults))),
		validation.Field(&r.ContextLines, validation.By(intRange(0, search.MaxContextLines))),
	)
}

func (r GrepRequest) engineRequest() search.GrepRequest {
	return search.GrepRequest{
		Pattern:            r.Pattern,
		IsRegex:            boolOr(r.IsRegex, false),
		CaseSensitive:      boolOr(r.CaseSensitive, false),
		IncludeFrontmatter: boolOr(r.IncludeFrontmatter, true),
		FilePattern:        r.FilePattern,
		MaxResults:         intOr(r.MaxResults, search.DefaultMaxResults),
		ContextLines:       intOr(r.ContextLines, 0),
	}
}

// QueryRequest is the body of POST /agent/query-frontmatter.
type QueryRequest struct {
	Fields        []string       `json:"fields" example:"title,status"`
	Where         map[string]any `json:"where"`
	SortBy        string         `json:"sort_by"`
	SortDirection string         `json:"sort_direction" example:"desc"`
	Limit         *int           `json:"limit"`
	Distinct      bool           `json:"distinct"`
}

// Validate checks the sort direction and limit bounds.
func (r QueryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SortDirection, validation.In(query.SortAsc, query.SortDesc)),
		validation.Field(&r.Limit, validation.By(intRange(1, query.MaxLimit))),
	)
}

func (r QueryRequest) engineRequest() query.Request {
	return query.Request{
		Fields:        query.FieldsOf(r.Fields),
		Where:         r.Where,
		SortBy:        r.SortBy,
		SortDirection: r.SortDirection,
		Limit:         intOr(r.Limit, query.DefaultLimit),
		Distinct:      r.Distinct,
	}
}

// intRange checks an optional integer. ozzo's Min treats zero as empty, so
// bounds that exclude zero need an explicit rule.
func intRange(lo, hi int) validation.RuleFunc {
	return func(v any) error {
		p, _ := v.(*int)
		if p == nil {
			return nil
		}
		if *p < lo || *p > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
