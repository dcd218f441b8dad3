// Package vault loads notes from storage for the analysis packages. Nothing
// is cached: every call re-reads the files it needs.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/frontmatter"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
)

const defaultConcurrency = 8

// Document is a parsed note together with the raw file text it came from.
type Document struct {
	models.Note
	Raw string
}

// Vault reads and parses notes from a storage provider.
type Vault struct {
	store       storage.Provider
	concurrency int
}

// New creates a Vault. concurrency bounds parallel reads in LoadAll; values
// below 1 fall back to a default.
func New(store storage.Provider, concurrency int) *Vault {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Vault{store: store, concurrency: concurrency}
}

// Store returns the underlying provider.
func (v *Vault) Store() storage.Provider { return v.store }

// IsMarkdown reports whether p names a Markdown note.
func IsMarkdown(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".md")
}

// NotePath appends the .md extension when it is missing.
func NotePath(p string) string {
	if IsMarkdown(p) {
		return p
	}
	return p + ".md"
}

// MarkdownPaths lists every note in the vault, sorted. A non-empty prefix
// keeps only paths starting with it.
func (v *Vault) MarkdownPaths(prefix string) ([]string, error) {
	all, err := v.store.List("", true)
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	out := make([]string, 0, len(all))
	for _, p := range all {
		if !IsMarkdown(p) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Load reads and parses a single note. A missing file yields apperr.ErrNotFound.
func (v *Vault) Load(p string) (Document, error) {
	if v.store.IsDir(p) {
		return Document{}, apperr.ErrNotFound
	}
	data, err := v.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, apperr.ErrNotFound
		}
		return Document{}, err
	}
	return Parse(p, string(data)), nil
}

// Parse builds a Document from raw note text.
func Parse(p, raw string) Document {
	fm, content := frontmatter.Parse(raw)
	return Document{
		Note: models.Note{Path: p, FrontMatter: fm, Content: content},
		Raw:  raw,
	}
}

// LoadAll reads paths in parallel and returns the parsed documents in the
// same order. Files that cannot be read are logged and skipped. The only
// error returned is the context's.
func (v *Vault) LoadAll(ctx context.Context, paths []string) ([]Document, error) {
	results := make([]*Document, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := v.Load(p)
			if err != nil {
				slog.Debug("vault: skipping unreadable note", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			results[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(results))
	for _, d := range results {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	return docs, nil
}

// LoadNotes lists every note under prefix and loads them all.
func (v *Vault) LoadNotes(ctx context.Context, prefix string) ([]Document, error) {
	paths, err := v.MarkdownPaths(prefix)
	if err != nil {
		return nil, err
	}
	return v.LoadAll(ctx, paths)
}
