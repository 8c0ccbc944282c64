// Package events fans API mutations out to live subscribers.
package events

import (
	"sync"
	"time"

	"github.com/tinoosan/mika/internal/metrics"
)

// Event describes one committed mutation of tracker state.
//
// Key is the identity of the changed record: a torrent id, user id or
// whitelist prefix. Data carries the record as written when there is one.
type Event struct {
	Type Type      `json:"type"`
	Key  string    `json:"key"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Type defines the set of mutations that are published.
type Type string

const (
	TorrentAdded     Type = "torrent.added"
	TorrentDeleted   Type = "torrent.deleted"
	UserAdded        Type = "user.added"
	UserUpdated      Type = "user.updated"
	WhitelistPut     Type = "whitelist.put"
	WhitelistDeleted Type = "whitelist.deleted"
)

// Publisher accepts events. Implementations must not block the caller.
type Publisher interface {
	Publish(e Event)
}

// Hub is an in-process Publisher with any number of subscribers. Slow
// subscribers lose events instead of stalling publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	buf  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buf: buffer}
}

func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
			metrics.EventSubscribers.Dec()
		})
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
