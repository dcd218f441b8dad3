package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/models"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
)

// Write modes for WriteFile.
const (
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
	ModePrepend   = "prepend"
)

// Entry types.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// WriteResult describes a completed WriteFile call.
type WriteResult struct {
	Message string `json:"message"`
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Size    int    `json:"size"`
}

// ListFiles returns every file in the vault with its size and modification time.
func (s *Service) ListFiles(_ context.Context) ([]models.FileInfo, error) {
	paths, err := s.store.List("", true)
	if err != nil {
		return nil, err
	}
	out := make([]models.FileInfo, 0, len(paths))
	for _, p := range paths {
		info := models.FileInfo{Path: p, Type: TypeFile}
		if n, err := s.store.Size(p); err == nil {
			info.Size = &n
		}
		if mod, err := s.store.LastModified(p); err == nil {
			info.LastModified = mod
		} else {
			slog.Debug("noteservice: stat", slog.String("path", p), slog.String("error", err.Error()))
		}
		out = append(out, info)
	}
	return out, nil
}

// ReadFile returns the raw content of a file. Directories are reported as
// not found.
func (s *Service) ReadFile(_ context.Context, path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	if s.store.IsDir(p) {
		return "", apperr.ErrNotFound
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content in the given mode. Append and prepend on a
// missing file create it.
func (s *Service) WriteFile(_ context.Context, path, content, mode string) (*WriteResult, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeOverwrite
	}
	switch mode {
	case ModeOverwrite, ModeAppend, ModePrepend:
	default:
		return nil, fmt.Errorf("%w: unknown write mode %q", apperr.ErrInvalidInput, mode)
	}
	if s.store.IsDir(p) {
		return nil, apperr.ErrIsDirectory
	}

	existed := s.store.Exists(p)
	final := content
	if existed && mode != ModeOverwrite {
		old, err := s.store.Read(p)
		if err != nil {
			return nil, err
		}
		if mode == ModeAppend {
			final = string(old) + content
		} else {
			final = content + string(old)
		}
	}
	if err := s.store.Write(p, []byte(final)); err != nil {
		return nil, err
	}

	msg := "File created successfully"
	kind := sse.Created
	if existed {
		msg = fmt.Sprintf("File updated successfully (%s)", mode)
		kind = sse.Updated
	}
	s.emit(kind, p)
	return &WriteResult{Message: msg, Path: p, Mode: mode, Size: len(final)}, nil
}

// CreateFile writes a new file, failing if anything exists at path.
func (s *Service) CreateFile(_ context.Context, path, content string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if s.store.Exists(p) {
		return apperr.ErrAlreadyExists
	}
	if err := s.store.Write(p, []byte(content)); err != nil {
		return err
	}
	s.emit(sse.Created, p)
	return nil
}

// CreateDirectory makes a new directory, failing if anything exists at path.
func (s *Service) CreateDirectory(_ context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if s.store.Exists(p) {
		return apperr.ErrAlreadyExists
	}
	return s.store.MakeDir(p)
}

// UpdateFile replaces the content of an existing file.
func (s *Service) UpdateFile(_ context.Context, path, content string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if !s.store.Exists(p) {
		return apperr.ErrNotFound
	}
	if s.store.IsDir(p) {
		return apperr.ErrIsDirectory
	}
	if err := s.store.Write(p, []byte(content)); err != nil {
		return err
	}
	s.emit(sse.Updated, p)
	return nil
}

// DeleteEntry removes a file or a whole directory and returns the entry type.
func (s *Service) DeleteEntry(_ context.Context, path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	if !s.store.Exists(p) {
		return "", apperr.ErrNotFound
	}
	if s.store.IsDir(p) {
		notes, _ := s.vault.MarkdownPaths(p + "/")
		if err := s.store.DeleteDir(p); err != nil {
			return "", err
		}
		for _, n := range notes {
			s.emit(sse.Deleted, n)
		}
		return TypeDirectory, nil
	}
	if err := s.store.Delete(p); err != nil {
		return "", err
	}
	s.emit(sse.Deleted, p)
	return TypeFile, nil
}
