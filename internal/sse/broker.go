// Package sse streams vault change notifications to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Kind is a note change reported by the service layer or the watcher.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Event types sent on the wire.
const (
	TypeNoteCreated  = "note.created"
	TypeNoteUpdated  = "note.updated"
	TypeNoteDeleted  = "note.deleted"
	TypeVaultChanged = "vault.changed"
)

const defaultThrottle = 2 * time.Second

// Event is a single message sent to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type change struct {
	kind Kind
	path string
}

// VaultChange is the vault.changed payload: every note path touched since
// the previous vault.changed, grouped by the latest change per path.
type VaultChange struct {
	Created []string `json:"created,omitempty"`
	Updated []string `json:"updated,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

func batch(pending map[string]Kind) VaultChange {
	var vc VaultChange
	for p, k := range pending {
		switch k {
		case Created:
			vc.Created = append(vc.Created, p)
		case Updated:
			vc.Updated = append(vc.Updated, p)
		case Deleted:
			vc.Deleted = append(vc.Deleted, p)
		}
	}
	slices.Sort(vc.Created)
	slices.Sort(vc.Updated)
	slices.Sort(vc.Deleted)
	return vc
}

// merge folds a new change for a path into the pending one, so a note
// created and then edited in one window still reads as created, and one
// created and then deleted drops out.
func merge(pending map[string]Kind, c change) {
	prev, seen := pending[c.path]
	switch {
	case !seen:
		pending[c.path] = c.kind
	case prev == Created && c.kind == Updated:
	case prev == Created && c.kind == Deleted:
		delete(pending, c.path)
	case prev == Deleted && c.kind == Created:
		pending[c.path] = Updated
	default:
		pending[c.path] = c.kind
	}
}

// Broker fans events out to SSE clients.
//
// One goroutine owns the client set and the pending vault.changed batch;
// every public method talks to it over channels.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan change
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. vault.changed is emitted at most once per
// throttle interval: the first change of a quiet period goes out at once,
// later ones are batched and flushed when the interval ends.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan change, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func eventType(k Kind) (string, bool) {
	switch k {
	case Created:
		return TypeNoteCreated, true
	case Updated:
		return TypeNoteUpdated, true
	case Deleted:
		return TypeNoteDeleted, true
	}
	return "", false
}

func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	pending := make(map[string]Kind)
	var (
		lastVaultEvent time.Time
		flushTimer     *time.Timer
		flushC         <-chan time.Time
	)

	send := func(e Event) {
		msg, err := encode(e)
		if err != nil {
			slog.Warn("sse: encode event", slog.String("type", e.Type), slog.String("error", err.Error()))
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}

	flush := func(now time.Time) {
		lastVaultEvent = now
		if len(pending) == 0 {
			return
		}
		send(Event{Type: TypeVaultChanged, Data: batch(pending)})
		clear(pending)
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			send(e)

		case c := <-b.changeCh:
			typ, ok := eventType(c.kind)
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"path": c.path}})
			merge(pending, c)
			if flushC != nil {
				continue
			}
			now := time.Now()
			if wait := b.throttle - now.Sub(lastVaultEvent); wait > 0 {
				flushTimer = time.NewTimer(wait)
				flushC = flushTimer.C
				continue
			}
			flush(now)

		case now := <-flushC:
			flushTimer, flushC = nil, nil
			flush(now)

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// Notify reports a note change. It matches the notifier signature used by
// the note service and the file watcher.
func (b *Broker) Notify(kind Kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the client disconnects (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
