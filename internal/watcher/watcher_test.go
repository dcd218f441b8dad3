package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
)

type collector struct {
	mu     sync.Mutex
	events []string
}

func (c *collector) add(kind sse.Kind, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, string(kind)+":"+path)
}

func (c *collector) has(want string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == want {
			return true
		}
	}
	return false
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, dir string) *collector {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := &collector{}
	go func() { _ = Watch(ctx, dir, logger, c.add) }()
	time.Sleep(100 * time.Millisecond)
	return c
}

func TestWatcher_CreateUpdateDelete(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir)

	p := filepath.Join(dir, "new.md")
	_ = os.WriteFile(p, []byte("# New"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("created:new.md") },
		"expected created:new.md")

	_ = os.WriteFile(p, []byte("# Changed"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("updated:new.md") },
		"expected updated:new.md")

	_ = os.Remove(p)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("deleted:new.md") },
		"expected deleted:new.md")
}

func TestWatcher_ExistingNoteIsUpdate(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("old"), 0o644)
	c := startWatcher(t, dir)

	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("new"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("updated:old.md") },
		"expected updated:old.md")
	if c.has("created:old.md") {
		t.Error("existing note reported as created")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir := t.TempDir()
	c := startWatcher(t, dir)

	sub := filepath.Join(dir, "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("created:subdir/deep.md") },
		"file in new subdir not reported")
}

func TestWatcher_IgnoresHiddenAndNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755)
	c := startWatcher(t, dir)

	_ = os.WriteFile(filepath.Join(dir, ".obsidian", "workspace.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "marker.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return c.has("created:marker.md") },
		"expected created:marker.md")

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e != "created:marker.md" && e != "updated:marker.md" {
			t.Errorf("unexpected event %q", e)
		}
	}
}
