// Package sse pushes cache and content events to signed-in dashboards over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventRevalidated    = "cache.revalidated"
	EventContentChanged = "content.changed"
)

const (
	clientBuffer = 64
	historySize  = 32
)

// Event is one message broadcast to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Revalidation is the payload of EventRevalidated.
type Revalidation struct {
	Path    string `json:"path"`
	Removed int    `json:"removed"`
	Source  string `json:"source"`
	At      string `json:"at"`
}

type frame struct {
	id  uint64
	raw []byte
}

// Broker fans events out to dashboard streams. The most recent frames are
// kept so a reconnecting stream can resume from its Last-Event-ID.
type Broker struct {
	throttle  time.Duration
	keepAlive time.Duration
	now       func() time.Time

	mu          sync.Mutex
	subs        map[<-chan []byte]chan []byte
	history     []frame
	seq         uint64
	lastContent time.Time
	closed      bool
}

// NewBroker creates a broker. Content change events closer together than
// contentThrottle are collapsed into the first one.
func NewBroker(contentThrottle time.Duration) *Broker {
	if contentThrottle <= 0 {
		contentThrottle = 2 * time.Second
	}
	return &Broker{
		throttle:  contentThrottle,
		keepAlive: 25 * time.Second,
		now:       time.Now,
		subs:      make(map[<-chan []byte]chan []byte),
	}
}

// Subscribe registers a stream that receives only new events.
func (b *Broker) Subscribe() <-chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter registers a stream and first queues every retained frame
// with an id above lastID. lastID 0 replays nothing.
func (b *Broker) SubscribeAfter(lastID uint64) <-chan []byte {
	ch := make(chan []byte, clientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	if lastID > 0 {
		for _, f := range b.history {
			if f.id > lastID && len(ch) < cap(ch) {
				ch <- f.raw
			}
		}
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe removes a stream and closes its channel.
func (b *Broker) Unsubscribe(ch <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(c)
	}
}

// ClientCount returns the number of connected streams.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every stream. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for k, c := range b.subs {
		delete(b.subs, k)
		close(c)
	}
}

// Publish broadcasts event.
func (b *Broker) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.broadcastLocked(event)
	}
}

// PublishRevalidated announces that removed cached renders under path were
// dropped. source names the trigger ("api" or "watch").
func (b *Broker) PublishRevalidated(path string, removed int, source string) {
	b.Publish(Event{Type: EventRevalidated, Data: Revalidation{
		Path:    path,
		Removed: removed,
		Source:  source,
		At:      b.now().UTC().Format(time.RFC3339),
	}})
}

// PublishContentChanged announces a change in the document source. Bursts
// are throttled.
func (b *Broker) PublishContentChanged(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	now := b.now()
	if !b.lastContent.IsZero() && now.Sub(b.lastContent) < b.throttle {
		return
	}
	b.lastContent = now
	b.broadcastLocked(Event{Type: EventContentChanged, Data: map[string]string{"path": path}})
}

func (b *Broker) broadcastLocked(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	b.seq++
	f := frame{id: b.seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq, event.Type, payload))}

	b.history = append(b.history, f)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
	for _, c := range b.subs {
		select {
		case c <- f.raw:
		default:
			// full buffer: this stream misses the frame
		}
	}
}

// ServeHTTP streams events until the client goes away or the broker closes.
// A Last-Event-ID header resumes from the retained history.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(strings.TrimSpace(r.Header.Get("Last-Event-ID")), 10, 64)
	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
