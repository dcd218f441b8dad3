package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeNoteCreated, Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNotify_VaultChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(Created, "a.md")
	b.Notify(Deleted, "b.md")

	time.Sleep(50 * time.Millisecond)
	counts := map[string]int{}
loop:
	for {
		select {
		case msg := <-ch:
			typ := strings.TrimPrefix(strings.SplitN(string(msg), "\n", 2)[0], "event: ")
			counts[typ]++
		default:
			break loop
		}
	}

	if counts[TypeNoteCreated] != 1 || counts[TypeNoteDeleted] != 1 {
		t.Errorf("note events = %v", counts)
	}
	if counts[TypeVaultChanged] != 1 {
		t.Errorf("vault.changed events = %d, want 1 (throttled)", counts[TypeVaultChanged])
	}
}

func TestNotify_VaultChangedBatch(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(Updated, "first.md")
	b.Notify(Created, "new.md")
	b.Notify(Updated, "new.md")
	b.Notify(Created, "tmp.md")
	b.Notify(Deleted, "tmp.md")
	b.Notify(Deleted, "old.md")

	var changed []string
	deadline := time.After(2 * time.Second)
	for len(changed) < 2 {
		select {
		case msg := <-ch:
			if s := string(msg); strings.HasPrefix(s, "event: "+TypeVaultChanged+"\n") {
				changed = append(changed, s)
			}
		case <-deadline:
			t.Fatalf("vault.changed events = %q, want 2", changed)
		}
	}

	if !strings.Contains(changed[0], `{"updated":["first.md"]}`) {
		t.Errorf("leading batch = %q", changed[0])
	}
	if !strings.Contains(changed[1], `{"created":["new.md"],"deleted":["old.md"]}`) {
		t.Errorf("trailing batch = %q", changed[1])
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		kinds []Kind
		want  Kind
		gone  bool
	}{
		{"single", []Kind{Updated}, Updated, false},
		{"created then updated", []Kind{Created, Updated}, Created, false},
		{"created then deleted", []Kind{Created, Deleted}, "", true},
		{"deleted then created", []Kind{Deleted, Created}, Updated, false},
		{"updated then deleted", []Kind{Updated, Deleted}, Deleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := map[string]Kind{}
			for _, k := range tt.kinds {
				merge(pending, change{kind: k, path: "n.md"})
			}
			got, ok := pending["n.md"]
			if tt.gone {
				if ok {
					t.Errorf("pending = %v, want empty", pending)
				}
				return
			}
			if got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

// flushRecorder guards the body so the handler goroutine and the test can
// both touch it.
type flushRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (f *flushRecorder) Header() http.Header { return f.rec.Header() }
func (f *flushRecorder) WriteHeader(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rec.WriteHeader(code)
}
func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Write(p)
}
func (f *flushRecorder) Flush() {}
func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Notify(Updated, "x.md")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.body()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if got := w.rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeNoteUpdated, Data: map[string]string{"path": "x.md"}})
	b.Notify(Updated, "x.md")
}
