// Package query evaluates structured queries over note front matter.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	SortAsc  = "asc"
	SortDesc = "desc"

	wildcard = "*"
)

// Fields selects which front-matter keys a record carries.
type Fields struct {
	All   bool
	Names []string
}

// FieldsOf builds a selection from a request list. An empty list or one
// containing "*" selects everything.
func FieldsOf(names []string) Fields {
	if len(names) == 0 {
		return Fields{All: true}
	}
	for _, n := range names {
		if n == wildcard {
			return Fields{All: true}
		}
	}
	return Fields{Names: names}
}

// List returns the request form of the selection.
func (f Fields) List() []string {
	if f.All {
		return []string{wildcard}
	}
	return f.Names
}

// Request describes a front-matter query.
type Request struct {
	Fields        Fields
	Where         map[string]any
	SortBy        string
	SortDirection string
	Limit         int
	Distinct      bool
}

// Echo is the normalized request returned alongside results.
type Echo struct {
	Fields        []string       `json:"fields"`
	Where         map[string]any `json:"where"`
	SortBy        *string        `json:"sort_by"`
	SortDirection string         `json:"sort_direction"`
	Limit         int            `json:"limit"`
	Distinct      bool           `json:"distinct"`
}

// Result is the response of a front-matter query.
type Result struct {
	Query             Echo             `json:"query"`
	TotalFilesScanned int              `json:"total_files_scanned"`
	TotalRecords      int              `json:"total_records"`
	Records           []map[string]any `json:"records"`
}

// Engine runs queries against the notes of a vault.
type Engine struct {
	vault *vault.Vault
}

// New creates a query engine.
func New(v *vault.Vault) *Engine {
	return &Engine{vault: v}
}

// Query loads every note and evaluates req against it.
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	paths, err := e.vault.MarkdownPaths("")
	if err != nil {
		return nil, err
	}
	docs, err := e.vault.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, len(docs))
	for i, d := range docs {
		notes[i] = d.Note
	}
	res := Execute(notes, req)
	res.TotalFilesScanned = len(paths)
	return res, nil
}

// Execute evaluates req against notes. Notes without front matter never match.
func Execute(notes []models.Note, req Request) *Result {
	req = withDefaults(req)

	var rows []row
	for _, n := range notes {
		if len(n.FrontMatter) == 0 || !Matches(n.FrontMatter, req.Where) {
			continue
		}
		r := row{record: project(n, req.Fields)}
		if req.SortBy != "" {
			r.key, r.hasKey = Lookup(n.FrontMatter, req.SortBy)
			r.hasKey = r.hasKey && r.key != nil
		}
		rows = append(rows, r)
	}

	if req.SortBy != "" && slices.ContainsFunc(rows, func(r row) bool { return r.hasKey }) {
		desc := req.SortDirection == SortDesc
		sort.SliceStable(rows, func(i, j int) bool {
			c := sortCompare(rows[i].key, rows[j].key)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	records := make([]map[string]any, len(rows))
	for i, r := range rows {
		records[i] = r.record
	}

	if req.Distinct && !req.Fields.All {
		records = distinct(records, req.Fields.Names)
	}

	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	var sortBy *string
	if req.SortBy != "" {
		sortBy = &req.SortBy
	}
	where := req.Where
	if where == nil {
		where = map[string]any{}
	}
	return &Result{
		Query: Echo{
			Fields:        req.Fields.List(),
			Where:         where,
			SortBy:        sortBy,
			SortDirection: req.SortDirection,
			Limit:         req.Limit,
			Distinct:      req.Distinct,
		},
		TotalFilesScanned: len(notes),
		TotalRecords:      len(records),
		Records:           records,
	}
}

func withDefaults(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.SortDirection != SortDesc {
		req.SortDirection = SortAsc
	}
	if !req.Fields.All && len(req.Fields.Names) == 0 {
		req.Fields.All = true
	}
	return req
}

// Matches reports whether fm satisfies every where condition.
func Matches(fm map[string]any, where map[string]any) bool {
	for field, cond := range where {
		actual, _ := Lookup(fm, field)
		op, operand := condition(cond)
		if !evaluate(actual, op, operand) {
			return false
		}
	}
	return true
}

// Lookup returns the value of key in fm. A key not present at the top level
// is tried as a dotted JSONPath selector such as "author.name".
func Lookup(fm map[string]any, key string) (any, bool) {
	if v, ok := fm[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	x, err := jp.ParseString("$." + key)
	if err != nil {
		return nil, false
	}
	found := x.Get(fm)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

func project(n models.Note, fields Fields) map[string]any {
	record := map[string]any{
		"_file": n.Path,
		"_path": path.Dir(n.Path),
	}
	if fields.All {
		for k, v := range n.FrontMatter {
			record[k] = v
		}
		return record
	}
	for _, name := range fields.Names {
		v, _ := Lookup(n.FrontMatter, name)
		record[name] = v
	}
	return record
}

// row pairs a projected record with its sort key, resolved against the full
// front matter so the key need not be projected.
type row struct {
	record map[string]any
	key    any
	hasKey bool
}

func distinct(records []map[string]any, names []string) []map[string]any {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		values := make([]any, len(names))
		for i, n := range names {
			values[i] = r[n]
		}
		key, err := json.Marshal(values)
		if err != nil {
			slog.Debug("query: distinct key", slog.String("error", err.Error()))
			out = append(out, r)
			continue
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		out = append(out, r)
	}
	return out
}
