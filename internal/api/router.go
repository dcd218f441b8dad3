package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
// rps and burst configure RateLimit; rps <= 0 disables limiting.
func NewRouter(v *vault.Vault, svc *noteservice.Service, sseHandler http.Handler, rps float64, burst int) chi.Router {
	h := NewHandler(v, svc)

	r := chi.NewRouter()
	r.Use(RateLimit(rps, burst))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/upsert", h.UpsertNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Patch("/notes/*", h.PatchNote)
	r.Delete("/notes/*", h.DeleteNote)

	r.Delete("/bulk/notes/delete", h.BulkDelete)
	r.Patch("/bulk/notes/update", h.BulkUpdate)

	// Raw files.
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Post("/files/write", h.WriteFile)
	r.Get("/files/*", h.GetFile)
	r.Put("/files/*", h.UpdateFile)
	r.Delete("/files/*", h.DeleteFile)

	// Vault navigation.
	r.Get("/vault/directory", h.ListDirectory)
	r.Get("/vault/search", h.SearchVault)
	r.Get("/vault/notes/recent", h.RecentNotes)
	r.Get("/vault/notes/daily", h.DailyNote)
	r.Get("/vault/notes/related/*", h.RelatedNotes)

	// Agent tools.
	r.Post("/agent/grep", h.Grep)
	r.Post("/agent/query-frontmatter", h.QueryFrontmatter)
	r.Get("/agent/backlinks/*", h.Backlinks)
	r.Get("/agent/tags", h.Tags)
	r.Get("/agent/stats", h.Stats)

	// Front-matter metadata.
	r.Get("/metadata/keys", h.MetadataKeys)
	r.Get("/metadata/values/{key}", h.MetadataValues)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
