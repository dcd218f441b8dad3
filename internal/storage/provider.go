// Package storage defines the vault file abstraction and its drivers.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Provider is the interface for vault file operations. All paths are
// vault-relative and use forward slashes; "" denotes the vault root.
type Provider interface {
	// List returns the files under dir, sorted. Subdirectories are descended
	// only when recursive is set.
	List(dir string, recursive bool) ([]string, error)
	// Dirs returns the immediate subdirectories of dir, sorted.
	Dirs(dir string) ([]string, error)
	Exists(path string) bool
	IsDir(path string) bool
	Read(path string) ([]byte, error)
	// Write replaces the file at path, creating parent directories.
	Write(path string, content []byte) error
	Delete(path string) error
	MakeDir(path string) error
	// DeleteDir removes a directory and everything below it.
	DeleteDir(path string) error
	Size(path string) (int64, error)
	LastModified(path string) (time.Time, error)
	// Root returns the on-disk directory backing the vault, or "" when the
	// driver is not file-system based.
	Root() string
}

// Clean normalises a vault-relative path and rejects anything that would
// escape the vault.
func Clean(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	cleaned := path.Clean(rel)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return cleaned, nil
}

func within(dir, p string) bool {
	return dir == "" || strings.HasPrefix(p, dir+"/")
}
