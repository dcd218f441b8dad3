package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
)

const (
	DefaultDirectoryLimit = 50
	DefaultRecentLimit    = 5

	dateLayout = "2006-01-02"
)

// DirectoryItem is one entry of a directory listing.
type DirectoryItem struct {
	Path     string     `json:"path"`
	Type     string     `json:"type"`
	Size     *int64     `json:"size"`
	Modified *time.Time `json:"modified"`
}

// DirectoryListing is a page of directory entries.
type DirectoryListing struct {
	Items      []DirectoryItem `json:"items"`
	TotalItems int             `json:"total_items"`
	Path       string          `json:"path"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	HasMore    bool            `json:"has_more"`
}

// ListDirectory pages through the entries of dir. A recursive listing holds
// every file below dir; otherwise the direct subdirectories and files.
func (s *Service) ListDirectory(_ context.Context, dir string, recursive bool, limit, offset int) (*DirectoryListing, error) {
	if limit <= 0 {
		limit = DefaultDirectoryLimit
	}
	offset = max(offset, 0)

	d, err := storage.Clean(dir)
	if err != nil {
		return nil, apperr.ErrInvalidPath
	}
	if !s.store.IsDir(d) {
		return nil, apperr.ErrNotFound
	}

	var entries []string
	if !recursive {
		dirs, err := s.store.Dirs(d)
		if err != nil {
			return nil, mapNotExist(err)
		}
		entries = append(entries, dirs...)
	}
	files, err := s.store.List(d, recursive)
	if err != nil {
		return nil, mapNotExist(err)
	}
	entries = append(entries, files...)
	sort.Strings(entries)

	total := len(entries)
	start := min(offset, total)
	end := start + min(limit, total-start)
	page := entries[start:end]
	items := make([]DirectoryItem, 0, len(page))
	for _, p := range page {
		item := DirectoryItem{Path: p, Type: TypeFile}
		if s.store.IsDir(p) {
			item.Type = TypeDirectory
		} else if n, err := s.store.Size(p); err == nil {
			item.Size = &n
		}
		if mod, err := s.store.LastModified(p); err == nil {
			item.Modified = &mod
		}
		items = append(items, item)
	}

	if dir == "" {
		dir = "."
	}
	return &DirectoryListing{
		Items:      items,
		TotalItems: total,
		Path:       dir,
		Offset:     offset,
		Limit:      limit,
		HasMore:    end < total,
	}, nil
}

func mapNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}

// RecentNotes returns the most recently modified notes, newest first.
func (s *Service) RecentNotes(ctx context.Context, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	paths, err := s.vault.MarkdownPaths("")
	if err != nil {
		return nil, err
	}

	type stamped struct {
		path string
		mod  time.Time
	}
	var files []stamped
	for _, p := range paths {
		mod, err := s.store.LastModified(p)
		if err != nil {
			slog.Debug("noteservice: stat", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		files = append(files, stamped{path: p, mod: mod})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	if len(files) > limit {
		files = files[:limit]
	}

	selected := make([]string, len(files))
	for i, f := range files {
		selected[i] = f.path
	}
	docs, err := s.vault.LoadAll(ctx, selected)
	if err != nil {
		return nil, err
	}
	out := make([]models.Note, len(docs))
	for i, d := range docs {
		out[i] = d.Note
	}
	return out, nil
}

// DailyNoteNotFoundError reports the candidate paths probed for a date.
type DailyNoteNotFoundError struct {
	Date          string
	SearchedPaths []string
}

func (e *DailyNoteNotFoundError) Error() string {
	return fmt.Sprintf("daily note for %s not found", e.Date)
}

func (e *DailyNoteNotFoundError) Unwrap() error { return apperr.ErrNotFound }

// ResolveDate turns "today", "yesterday", "tomorrow" or a YYYY-MM-DD string
// into a calendar date. An empty string means today.
func ResolveDate(raw string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch raw {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", apperr.ErrInvalidInput, raw)
	}
	return d, nil
}

// DailyNotePaths lists the locations probed for a date's daily note, in order.
func DailyNotePaths(d time.Time) []string {
	day := d.Format(dateLayout)
	return []string{
		day,
		day + ".md",
		"Daily Notes/" + day + ".md",
		"daily/" + day + ".md",
		d.Format("2006/01/02") + ".md",
	}
}

// DailyNote finds the daily note for date. When none of the candidate paths
// exists the error is a *DailyNoteNotFoundError.
func (s *Service) DailyNote(_ context.Context, date string) (*models.Note, error) {
	d, err := ResolveDate(date, s.now())
	if err != nil {
		return nil, err
	}
	candidates := DailyNotePaths(d)
	for _, p := range candidates {
		if !s.store.Exists(p) || s.store.IsDir(p) {
			continue
		}
		doc, err := s.vault.Load(p)
		if err != nil {
			continue
		}
		return &doc.Note, nil
	}
	return nil, &DailyNoteNotFoundError{Date: d.Format(dateLayout), SearchedPaths: candidates}
}
