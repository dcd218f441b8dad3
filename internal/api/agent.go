package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/stats"
)

var errInvalidFormat = errors.New("must be flat or hierarchical")

// Grep handles POST /api/agent/grep.
//
//	@Summary		Line-oriented pattern search across vault files
//	@Tags			agent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GrepRequest	true	"Search options"
//	@Success		200		{object}	search.GrepResult
//	@Failure		422		{object}	validationResponse
//	@Router			/agent/grep [post]
func (h *Handler) Grep(w http.ResponseWriter, r *http.Request) {
	var req GrepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.search.Grep(r.Context(), req.engineRequest())
	if err != nil {
		writeError(w, err, "grep", slog.String("pattern", req.Pattern))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QueryFrontmatter handles POST /api/agent/query-frontmatter.
//
//	@Summary		Filter, sort and project notes by front matter
//	@Tags			agent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueryRequest	true	"Query"
//	@Success		200		{object}	query.Result
//	@Failure		422		{object}	validationResponse
//	@Router			/agent/query-frontmatter [post]
func (h *Handler) QueryFrontmatter(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.query.Query(r.Context(), req.engineRequest())
	if err != nil {
		writeError(w, err, "query front matter")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Backlinks handles GET /api/agent/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	res, err := h.graph.Backlinks(r.Context(), path,
		queryBool(q, "include_mentions", true),
		queryBool(q, "include_tags", false))
	if err != nil {
		writeError(w, err, "backlinks", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Tags handles GET /api/agent/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := newIntParams(q)
	minCount := params.get("min_count", 1, 1, math.MaxInt)
	format := q.Get("format")
	if format == "" {
		format = stats.FormatFlat
	}
	if format != stats.FormatFlat && format != stats.FormatHierarchical {
		params.bad["format"] = errInvalidFormat
	}
	if !validate(w, params) {
		return
	}

	res, err := h.stats.Tags(r.Context(), stats.TagsRequest{
		MinCount:      minCount,
		IncludeNested: queryBool(q, "include_nested", true),
		Format:        format,
	})
	if err != nil {
		writeError(w, err, "tags")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/agent/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.stats.Stats(r.Context())
	if err != nil {
		writeError(w, err, "vault stats")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
