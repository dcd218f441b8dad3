// Package noteservice implements note, file and vault operations on top of
// the storage provider. Every call re-reads what it needs.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/checksum"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/frontmatter"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// Notifier receives note changes made through the service.
type Notifier func(kind sse.Kind, path string)

// NoteDetail is a note plus the checksum of its raw text.
type NoteDetail struct {
	models.Note
	Checksum string `json:"-"`
}

// Service coordinates storage reads and writes.
type Service struct {
	vault  *vault.Vault
	store  storage.Provider
	notify Notifier
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the callback invoked after every note write or delete.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithClock overrides the time source used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a note service.
func NewService(v *vault.Vault, opts ...Option) *Service {
	s := &Service{vault: v, store: v.Store(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(kind sse.Kind, path string) {
	if s.notify != nil && vault.IsMarkdown(path) {
		s.notify(kind, path)
	}
}

func cleanPath(p string) (string, error) {
	cleaned, err := storage.Clean(p)
	if err != nil || cleaned == "" {
		return "", apperr.ErrInvalidPath
	}
	return cleaned, nil
}

func notePath(p string) (string, error) {
	return cleanPath(vault.NotePath(p))
}

func detail(doc vault.Document) *NoteDetail {
	return &NoteDetail{Note: doc.Note, Checksum: checksum.Sum([]byte(doc.Raw))}
}

// ListNotes returns every note, optionally filtered by a case-insensitive
// substring of its path, content or front-matter tags.
func (s *Service) ListNotes(ctx context.Context, search string) ([]models.Note, error) {
	docs, err := s.vault.LoadNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(search)
	out := make([]models.Note, 0, len(docs))
	for _, d := range docs {
		if search == "" || noteMatches(d.Note, needle) {
			out = append(out, d.Note)
		}
	}
	return out, nil
}

func noteMatches(n models.Note, needle string) bool {
	if strings.Contains(strings.ToLower(n.Path), needle) || strings.Contains(strings.ToLower(n.Content), needle) {
		return true
	}
	for _, t := range frontmatter.Tags(n.FrontMatter) {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// GetNote reads and parses a note.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	doc, err := s.vault.Load(p)
	if err != nil {
		return nil, err
	}
	return detail(doc), nil
}

func (s *Service) write(path string, fm map[string]any, content string) (*NoteDetail, error) {
	raw, err := frontmatter.Build(fm, content)
	if err != nil {
		return nil, fmt.Errorf("noteservice: build %s: %w", path, err)
	}
	if err := s.store.Write(path, []byte(raw)); err != nil {
		return nil, err
	}
	return detail(vault.Parse(path, raw)), nil
}

// CreateNote writes a new note. The .md extension is added when missing.
func (s *Service) CreateNote(_ context.Context, path string, fm map[string]any, content string) (*NoteDetail, error) {
	p, err := notePath(path)
	if err != nil {
		return nil, err
	}
	if s.store.Exists(p) {
		return nil, apperr.ErrAlreadyExists
	}
	n, err := s.write(p, fm, content)
	if err != nil {
		return nil, err
	}
	s.emit(sse.Created, p)
	return n, nil
}

// UpsertNote creates or replaces a note and reports whether it was created.
func (s *Service) UpsertNote(_ context.Context, path string, fm map[string]any, content string) (*NoteDetail, bool, error) {
	p, err := notePath(path)
	if err != nil {
		return nil, false, err
	}
	if s.store.IsDir(p) {
		return nil, false, apperr.ErrIsDirectory
	}
	created := !s.store.Exists(p)
	n, err := s.write(p, fm, content)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.emit(sse.Created, p)
	} else {
		s.emit(sse.Updated, p)
	}
	return n, created, nil
}

// UpdateNote replaces the front matter and content of an existing note.
func (s *Service) UpdateNote(_ context.Context, path string, fm map[string]any, content string) (*NoteDetail, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	if !s.store.Exists(p) || s.store.IsDir(p) {
		return nil, apperr.ErrNotFound
	}
	n, err := s.write(p, fm, content)
	if err != nil {
		return nil, err
	}
	s.emit(sse.Updated, p)
	return n, nil
}

// PatchNote merges fm into the existing front matter and replaces the
// content only when content is non-nil.
func (s *Service) PatchNote(_ context.Context, path string, fm map[string]any, content *string) (*NoteDetail, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	return s.patch(p, fm, content)
}

func (s *Service) patch(p string, fm map[string]any, content *string) (*NoteDetail, error) {
	doc, err := s.vault.Load(p)
	if err != nil {
		return nil, err
	}
	body := doc.Content
	if content != nil {
		body = *content
	}
	n, err := s.write(p, frontmatter.Merge(doc.FrontMatter, fm), body)
	if err != nil {
		return nil, err
	}
	s.emit(sse.Updated, p)
	return n, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if s.store.IsDir(p) {
		return apperr.ErrIsDirectory
	}
	if err := s.store.Delete(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	s.emit(sse.Deleted, p)
	return nil
}

// BulkDeleteResult reports which paths were removed.
type BulkDeleteResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"not_found"`
}

// BulkDelete deletes every listed note. Missing or invalid paths are
// reported rather than failing the batch.
func (s *Service) BulkDelete(ctx context.Context, paths []string) (*BulkDeleteResult, error) {
	res := &BulkDeleteResult{Deleted: make([]string, 0), NotFound: make([]string, 0)}
	for _, p := range paths {
		err := s.DeleteNote(ctx, p)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, p)
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidPath), errors.Is(err, apperr.ErrIsDirectory):
			res.NotFound = append(res.NotFound, p)
		default:
			return nil, err
		}
	}
	return res, nil
}

// BulkUpdateItem is one patch in a bulk update.
type BulkUpdateItem struct {
	Path        string
	FrontMatter map[string]any
	Content     *string
}

// Bulk update statuses.
const (
	StatusUpdated  = "updated"
	StatusNotFound = "not_found"
)

// BulkUpdateEntry is the outcome for one item.
type BulkUpdateEntry struct {
	Path   string       `json:"path"`
	Status string       `json:"status"`
	Note   *models.Note `json:"note,omitempty"`
}

// BulkUpdateResult lists the outcome of every item in request order.
type BulkUpdateResult struct {
	Results []BulkUpdateEntry `json:"results"`
}

// BulkUpdate applies PatchNote semantics to every item.
func (s *Service) BulkUpdate(ctx context.Context, items []BulkUpdateItem) (*BulkUpdateResult, error) {
	res := &BulkUpdateResult{Results: make([]BulkUpdateEntry, 0, len(items))}
	for _, item := range items {
		n, err := s.PatchNote(ctx, item.Path, item.FrontMatter, item.Content)
		switch {
		case err == nil:
			res.Results = append(res.Results, BulkUpdateEntry{Path: n.Path, Status: StatusUpdated, Note: &n.Note})
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidPath):
			res.Results = append(res.Results, BulkUpdateEntry{Path: item.Path, Status: StatusNotFound})
		default:
			return nil, err
		}
	}
	return res, nil
}
