package noteservice

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/storage"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) notify(kind sse.Kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, string(kind)+":"+path)
}

func newService(t *testing.T, files map[string]string, opts ...Option) (*Service, storage.Provider, *recorder) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	for p, c := range files {
		require.NoError(t, store.Write(p, []byte(c)))
	}
	rec := &recorder{}
	opts = append([]Option{WithNotifier(rec.notify)}, opts...)
	return NewService(vault.New(store, 2), opts...), store, rec
}

func TestNoteCRUD(t *testing.T) {
	svc, store, rec := newService(t, nil)
	ctx := context.Background()

	n, err := svc.CreateNote(ctx, "folder/new", map[string]any{"title": "New"}, "Body")
	require.NoError(t, err)
	assert.Equal(t, "folder/new.md", n.Path)
	assert.NotEmpty(t, n.Checksum)
	raw, _ := store.Read("folder/new.md")
	assert.Equal(t, "---\ntitle: New\n---\nBody", string(raw))

	_, err = svc.CreateNote(ctx, "folder/new.md", nil, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	got, err := svc.GetNote(ctx, "folder/new.md")
	require.NoError(t, err)
	assert.Equal(t, "New", got.FrontMatter["title"])
	assert.Equal(t, n.Checksum, got.Checksum)

	content := "Patched"
	patched, err := svc.PatchNote(ctx, "folder/new.md", map[string]any{"status": "done"}, &content)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "New", "status": "done"}, patched.FrontMatter)
	assert.Equal(t, "Patched", patched.Content)

	patched, err = svc.PatchNote(ctx, "folder/new.md", map[string]any{"title": "Renamed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Patched", patched.Content)
	assert.Equal(t, "Renamed", patched.FrontMatter["title"])

	updated, err := svc.UpdateNote(ctx, "folder/new.md", nil, "plain")
	require.NoError(t, err)
	assert.Empty(t, updated.FrontMatter)
	raw, _ = store.Read("folder/new.md")
	assert.Equal(t, "plain", string(raw))

	_, err = svc.UpdateNote(ctx, "missing.md", nil, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.DeleteNote(ctx, "folder/new.md"))
	assert.ErrorIs(t, svc.DeleteNote(ctx, "folder/new.md"), apperr.ErrNotFound)

	assert.Equal(t, []string{
		"created:folder/new.md",
		"updated:folder/new.md",
		"updated:folder/new.md",
		"updated:folder/new.md",
		"deleted:folder/new.md",
	}, rec.events)
}

func TestUpsertNote(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, created, err := svc.UpsertNote(ctx, "u", nil, "first")
	require.NoError(t, err)
	assert.True(t, created)

	n, created, err := svc.UpsertNote(ctx, "u.md", map[string]any{"k": 1}, "second")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "second", n.Content)
}

func TestTraversalRejected(t *testing.T) {
	svc, _, _ := newService(t, nil)
	_, err := svc.GetNote(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrInvalidPath)
	_, err = svc.CreateNote(context.Background(), "", nil, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidPath)
}

func TestListNotes_Search(t *testing.T) {
	svc, _, _ := newService(t, map[string]string{
		"Projects/alpha.md": "plain",
		"b.md":              "mentions Alpha",
		"c.md":              "---\ntags: [alphabet]\n---\nbody",
		"d.md":              "nothing",
		"e.txt":             "alpha",
	})

	all, err := svc.ListNotes(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	hits, err := svc.ListNotes(context.Background(), "ALPHA")
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestBulkOperations(t *testing.T) {
	svc, store, _ := newService(t, map[string]string{
		"a.md": "---\nstatus: open\n---\nA",
		"b.md": "B",
	})
	ctx := context.Background()

	content := "new body"
	upd, err := svc.BulkUpdate(ctx, []BulkUpdateItem{
		{Path: "a.md", FrontMatter: map[string]any{"status": "closed"}},
		{Path: "b.md", Content: &content},
		{Path: "ghost.md"},
	})
	require.NoError(t, err)
	require.Len(t, upd.Results, 3)
	assert.Equal(t, StatusUpdated, upd.Results[0].Status)
	assert.Equal(t, "closed", upd.Results[0].Note.FrontMatter["status"])
	assert.Equal(t, "A", upd.Results[0].Note.Content)
	assert.Equal(t, "new body", upd.Results[1].Note.Content)
	assert.Equal(t, BulkUpdateEntry{Path: "ghost.md", Status: StatusNotFound}, upd.Results[2])

	del, err := svc.BulkDelete(ctx, []string{"a.md", "ghost.md", "b.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, del.Deleted)
	assert.Equal(t, []string{"ghost.md"}, del.NotFound)
	assert.False(t, store.Exists("a.md"))
	assert.False(t, store.Exists("b.md"))
}

func TestWriteFileModes(t *testing.T) {
	svc, store, _ := newService(t, map[string]string{"existing.txt": "Original content"})
	ctx := context.Background()

	res, err := svc.WriteFile(ctx, "new.txt", "New content", "")
	require.NoError(t, err)
	assert.Equal(t, &WriteResult{Message: "File created successfully", Path: "new.txt", Mode: ModeOverwrite, Size: 11}, res)

	res, err = svc.WriteFile(ctx, "existing.txt", " Appended", ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, "File updated successfully (append)", res.Message)
	raw, _ := store.Read("existing.txt")
	assert.Equal(t, "Original content Appended", string(raw))

	_, err = svc.WriteFile(ctx, "existing.txt", "Pre ", ModePrepend)
	require.NoError(t, err)
	raw, _ = store.Read("existing.txt")
	assert.Equal(t, "Pre Original content Appended", string(raw))

	res, err = svc.WriteFile(ctx, "fresh.txt", "x", ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, "File created successfully", res.Message)

	_, err = svc.WriteFile(ctx, "x.txt", "x", "sideways")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestFileEntries(t *testing.T) {
	svc, store, rec := newService(t, map[string]string{"dir/a.md": "a", "dir/b.txt": "b"})
	ctx := context.Background()

	require.NoError(t, svc.CreateFile(ctx, "c.txt", "c"))
	assert.ErrorIs(t, svc.CreateFile(ctx, "c.txt", "c"), apperr.ErrAlreadyExists)
	require.NoError(t, svc.CreateDirectory(ctx, "empty"))
	assert.ErrorIs(t, svc.CreateDirectory(ctx, "empty"), apperr.ErrAlreadyExists)

	require.NoError(t, svc.UpdateFile(ctx, "c.txt", "c2"))
	assert.ErrorIs(t, svc.UpdateFile(ctx, "nope.txt", "x"), apperr.ErrNotFound)

	content, err := svc.ReadFile(ctx, "c.txt")
	require.NoError(t, err)
	assert.Equal(t, "c2", content)
	_, err = svc.ReadFile(ctx, "dir")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	files, err := svc.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "c.txt", files[0].Path)
	assert.Equal(t, int64(2), *files[0].Size)

	kind, err := svc.DeleteEntry(ctx, "dir")
	require.NoError(t, err)
	assert.Equal(t, TypeDirectory, kind)
	assert.False(t, store.Exists("dir/a.md"))
	assert.Contains(t, rec.events, "deleted:dir/a.md")

	kind, err = svc.DeleteEntry(ctx, "c.txt")
	require.NoError(t, err)
	assert.Equal(t, TypeFile, kind)
	_, err = svc.DeleteEntry(ctx, "c.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListDirectory(t *testing.T) {
	svc, _, _ := newService(t, map[string]string{
		"a.md":       "a",
		"b.md":       "b",
		"sub/c.md":   "c",
		"sub/d/e.md": "e",
	})
	ctx := context.Background()

	top, err := svc.ListDirectory(ctx, "", false, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, top.TotalItems)
	assert.True(t, top.HasMore)
	assert.Equal(t, ".", top.Path)
	require.Len(t, top.Items, 2)
	assert.Equal(t, "a.md", top.Items[0].Path)
	assert.Equal(t, int64(1), *top.Items[0].Size)

	rest, err := svc.ListDirectory(ctx, "", false, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, "sub", rest.Items[0].Path)
	assert.Equal(t, TypeDirectory, rest.Items[0].Type)
	assert.Nil(t, rest.Items[0].Size)
	assert.False(t, rest.HasMore)

	deep, err := svc.ListDirectory(ctx, "sub", true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, deep.TotalItems)
	assert.Equal(t, DefaultDirectoryLimit, deep.Limit)

	_, err = svc.ListDirectory(ctx, "missing", false, 10, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListDirectory_OffsetPastEnd(t *testing.T) {
	svc, _, _ := newService(t, map[string]string{"a.md": "a"})
	ctx := context.Background()

	far, err := svc.ListDirectory(ctx, "", false, 50, math.MaxInt-10)
	require.NoError(t, err)
	assert.Empty(t, far.Items)
	assert.Equal(t, 1, far.TotalItems)
	assert.False(t, far.HasMore)

	wide, err := svc.ListDirectory(ctx, "", false, math.MaxInt, 0)
	require.NoError(t, err)
	assert.Len(t, wide.Items, 1)
	assert.False(t, wide.HasMore)
}

func TestDailyNote(t *testing.T) {
	fixed := time.Date(2024, 5, 21, 15, 0, 0, 0, time.UTC)
	svc, _, _ := newService(t, map[string]string{
		"Daily Notes/2024-05-21.md": "---\nmood: good\n---\ntoday",
		"2024/05/20.md":             "yesterday",
	}, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	n, err := svc.DailyNote(ctx, "today")
	require.NoError(t, err)
	assert.Equal(t, "Daily Notes/2024-05-21.md", n.Path)

	n, err = svc.DailyNote(ctx, "yesterday")
	require.NoError(t, err)
	assert.Equal(t, "2024/05/20.md", n.Path)

	_, err = svc.DailyNote(ctx, "tomorrow")
	var nf *DailyNoteNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "2024-05-22", nf.Date)
	assert.Equal(t, DailyNotePaths(fixed.AddDate(0, 0, 1)), nf.SearchedPaths)

	_, err = svc.DailyNote(ctx, "not-a-date")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRecentNotes(t *testing.T) {
	svc, store, _ := newService(t, map[string]string{"old.md": "old", "mid.md": "mid"})
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Write("new.md", []byte("new")))

	notes, err := svc.RecentNotes(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "new.md", notes[0].Path)
}
