package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_WriteReadDelete(t *testing.T) {
	s := tempSQLite(t)

	require.NoError(t, s.Write("a/b/note.md", []byte("hello")))
	got, err := s.Read("a/b/note.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	assert.True(t, s.IsDir("a"))
	assert.True(t, s.IsDir("a/b"))
	assert.True(t, s.Exists("a/b/note.md"))
	assert.False(t, s.IsDir("a/b/note.md"))

	n, err := s.Size("a/b/note.md")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, s.Delete("a/b/note.md"))
	_, err = s.Read("a/b/note.md")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.True(t, errors.Is(s.Delete("a/b/note.md"), os.ErrNotExist))
}

func TestSQLite_List(t *testing.T) {
	s := tempSQLite(t)
	require.NoError(t, s.Write("root.md", []byte("r")))
	require.NoError(t, s.Write("sub/one.md", []byte("1")))
	require.NoError(t, s.Write("sub/deep/two.md", []byte("2")))
	require.NoError(t, s.Write("sub_x/three.md", []byte("3")))

	all, err := s.List("", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"root.md", "sub/deep/two.md", "sub/one.md", "sub_x/three.md"}, all)

	sub, err := s.List("sub", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/one.md"}, sub)

	dirs, err := s.Dirs("")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub", "sub_x"}, dirs)

	_, err = s.List("missing", true)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSQLite_DeleteDir(t *testing.T) {
	s := tempSQLite(t)
	require.NoError(t, s.Write("keep/a.md", []byte("a")))
	require.NoError(t, s.Write("drop/b.md", []byte("b")))
	require.NoError(t, s.MakeDir("drop/empty"))

	require.NoError(t, s.DeleteDir("drop"))
	assert.False(t, s.Exists("drop"))
	assert.False(t, s.Exists("drop/b.md"))
	assert.True(t, s.Exists("keep/a.md"))
	assert.Error(t, s.DeleteDir(""))
}

func TestSQLite_RejectsTraversal(t *testing.T) {
	s := tempSQLite(t)
	assert.Error(t, s.Write("../escape.md", []byte("x")))
	_, err := s.Read("/etc/passwd")
	assert.Error(t, err)
}
