//////////////////////////////////////////////////////////////////////////////
//
// Broadcast status events from one publisher to multiple subscribers.
//
// Each subscriber has its own buffered channel. Once a subscriber's buffer
// is full, its oldest event is dropped for each new one, so a slow
// subscriber never holds up the stream.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package status

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/alohacast/internal/logging"
)

var log = logging.DefaultLogger.WithTag("status")

var errNotFound = errors.New("subscriber not found")

// Kind classifies an Event.
type Kind string

const (
	// Human-readable stream state, e.g. "Stream started".
	Notification Kind = "notification"

	// Bytes written to the network during the last window.
	Throughput Kind = "throughput"
)

type Event struct {
	Kind  Kind      `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Value uint64    `json:"value,omitempty"`
	Time  time.Time `json:"time"`
}

// Hub fans events out to subscribers and remembers the latest event of each
// kind.
type Hub struct {
	mu          sync.Mutex
	subscribers []chan Event
	latest      map[Kind]Event
	closed      bool
}

func NewHub() *Hub {
	return &Hub{latest: make(map[Kind]Event)}
}

// Subscribe to events, buffering up to n of them.
func (h *Hub) Subscribe(n int) <-chan Event {
	if n < 1 {
		panic("status: malformed buffer size")
	}

	ch := make(chan Event, n)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe by providing the channel returned by Subscribe. The channel
// is closed.
func (h *Hub) Unsubscribe(s <-chan Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, ch := range h.subscribers {
		if s == ch {
			// Order not preserved
			subs := h.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			h.subscribers = subs[:len(subs)-1]
			return nil
		}
	}
	return errNotFound
}

// Publish delivers e to every subscriber without blocking. A zero Time is
// set to the current time.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.latest[e.Kind] = e

	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
			// Subscriber backlogged. Drop oldest event, add newest.
			select {
			case <-ch:
			default:
			}
			ch <- e
			log.Debug("Subscriber backlogged, dropped oldest event")
		}
	}
}

// Subscribers returns the number of current subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Latest returns the most recent event of each kind.
func (h *Hub) Latest() map[Kind]Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := make(map[Kind]Event, len(h.latest))
	for k, e := range h.latest {
		m[k] = e
	}
	return m
}

// Close the hub. Subscriber channels are closed, though events already
// buffered can still be received. Later publishes are ignored.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	return nil
}
