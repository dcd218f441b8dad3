package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/checksum"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/graph"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/query"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/search"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/stats"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	query  *query.Engine
	search *search.Engine
	graph  *graph.Engine
	stats  *stats.Engine
}

// NewHandler creates a new Handler over v.
func NewHandler(v *vault.Vault, svc *noteservice.Service) *Handler {
	return &Handler{
		svc:    svc,
		query:  query.New(v),
		search: search.New(v),
		graph:  graph.New(v),
		stats:  stats.New(v),
	}
}

// wildcardPath extracts the vault path from the trailing wildcard segment.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryInt(q url.Values, key string, def int) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func queryBool(q url.Values, key string, def bool) bool {
	b, err := strconv.ParseBool(q.Get(key))
	if err != nil {
		return def
	}
	return b
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, optionally filtered by path, content or tag
//	@Tags			notes
//	@Produce		json
//	@Param			search	query		string	false	"Case-insensitive substring"
//	@Success		200		{object}	dataResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err, "list notes")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: notes})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			If-None-Match	header	string	false	"ETag from a previous response"
//	@Success		200		{object}	noteservice.NoteDetail
//	@Success		304		"Not modified"
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, err, "get note", slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.Matches(inm, note.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	noteservice.NoteDetail
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, req.FrontMatter, req.Content)
	if err != nil {
		writeError(w, err, "create note", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpsertNote handles POST /api/notes/upsert: 201 when the note was created,
// 200 when an existing one was replaced.
func (h *Handler) UpsertNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, created, err := h.svc.UpsertNote(r.Context(), req.Path, req.FrontMatter, req.Content)
	if err != nil {
		writeError(w, err, "upsert note", slog.String("path", req.Path))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, note)
}

// UpdateNote handles PUT /api/notes/*.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req NoteRequest
	req.Path = path
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), path, req.FrontMatter, req.Content)
	if err != nil {
		writeError(w, err, "update note", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// PatchNote handles PATCH /api/notes/*.
func (h *Handler) PatchNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PatchNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.PatchNote(r.Context(), path, req.FrontMatter, req.Content)
	if err != nil {
		writeError(w, err, "patch note", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		writeError(w, err, "delete note", slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles DELETE /api/bulk/notes/delete.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.BulkDelete(r.Context(), req.Paths)
	if err != nil {
		writeError(w, err, "bulk delete")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BulkUpdate handles PATCH /api/bulk/notes/update.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.BulkUpdate(r.Context(), req.serviceItems())
	if err != nil {
		writeError(w, err, "bulk update")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
