// Package testutil provides shared test helpers for setting up vaults.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestSQLiteVault creates a SQLite-backed store in a temporary file that is
// closed when the test ends.
func TestSQLiteVault(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// WriteFiles writes path -> content pairs into store.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// NewVault returns a filesystem vault seeded with files.
func NewVault(t *testing.T, files map[string]string) *vault.Vault {
	t.Helper()
	_, store := TestVault(t)
	WriteFiles(t, store, files)
	return vault.New(store, 4)
}
