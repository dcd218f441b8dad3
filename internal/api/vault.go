package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/graph"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/search"
)

// Query parameter bounds.
const (
	maxDirectoryLimit = 1000
	maxSearchLimit    = 100
	maxRecentLimit    = 100
	maxRelatedLimit   = 100
)

// intParams collects integer query parameters and their bounds so that
// malformed and out-of-range values are reported together.
type intParams struct {
	q   url.Values
	bad validation.Errors
}

func newIntParams(q url.Values) *intParams {
	return &intParams{q: q, bad: validation.Errors{}}
}

func (p *intParams) get(key string, def, lo, hi int) int {
	n, ok := queryInt(p.q, key, def)
	switch {
	case !ok:
		p.bad[key] = errors.New("must be an integer")
	case n < lo || n > hi:
		p.bad[key] = fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return n
}

// Validate reports the collected parameter errors.
func (p *intParams) Validate() error {
	if len(p.bad) == 0 {
		return nil
	}
	return p.bad
}

// ListDirectory handles GET /api/vault/directory.
//
//	@Summary		Page through a vault directory
//	@Tags			vault
//	@Produce		json
//	@Param			path		query		string	false	"Directory, vault root when empty"
//	@Param			recursive	query		bool	false	"Include every file below path"
//	@Param			limit		query		int		false	"Page size (default 50)"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	noteservice.DirectoryListing
//	@Failure		404			{object}	errResponse
//	@Router			/vault/directory [get]
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := newIntParams(q)
	limit := params.get("limit", noteservice.DefaultDirectoryLimit, 1, maxDirectoryLimit)
	offset := params.get("offset", 0, 0, math.MaxInt)
	if !validate(w, params) {
		return
	}

	dir := q.Get("path")
	listing, err := h.svc.ListDirectory(r.Context(), dir, queryBool(q, "recursive", false), limit, offset)
	if err != nil {
		writeError(w, err, "list directory", slog.String("path", dir))
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// SearchVault handles GET /api/vault/search.
func (h *Handler) SearchVault(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("query")
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter is required"))
		return
	}
	params := newIntParams(q)
	limit := params.get("limit", search.DefaultSearchLimit, 1, maxSearchLimit)
	if !validate(w, params) {
		return
	}

	res, err := h.search.Search(r.Context(), search.VaultRequest{
		Query:      text,
		Scope:      search.ParseScope(q.Get("scope")),
		PathFilter: q.Get("path_filter"),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err, "search vault", slog.String("query", text))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RecentNotes handles GET /api/vault/notes/recent.
func (h *Handler) RecentNotes(w http.ResponseWriter, r *http.Request) {
	params := newIntParams(r.URL.Query())
	limit := params.get("limit", noteservice.DefaultRecentLimit, 1, maxRecentLimit)
	if !validate(w, params) {
		return
	}
	notes, err := h.svc.RecentNotes(r.Context(), limit)
	if err != nil {
		writeError(w, err, "recent notes")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: notes})
}

type dailyNotFoundResponse struct {
	Error         string   `json:"error"`
	Date          string   `json:"date"`
	SearchedPaths []string `json:"searched_paths"`
}

// DailyNote handles GET /api/vault/notes/daily.
func (h *Handler) DailyNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.DailyNote(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		var nf *noteservice.DailyNoteNotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, http.StatusNotFound, dailyNotFoundResponse{
				Error:         "daily note not found",
				Date:          nf.Date,
				SearchedPaths: nf.SearchedPaths,
			})
			return
		}
		writeError(w, err, "daily note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RelatedNotes handles GET /api/vault/notes/related/*.
func (h *Handler) RelatedNotes(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	params := newIntParams(q)
	limit := params.get("limit", graph.DefaultRelatedLimit, 1, maxRelatedLimit)
	if !validate(w, params) {
		return
	}

	res, err := h.graph.Related(r.Context(), path, search.ParseScope(q.Get("on")), limit)
	if err != nil {
		writeError(w, err, "related notes", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
