//////////////////////////////////////////////////////////////////////////////
//
// Throughput sampler: turns per-write byte counts into one figure per
// elapsed one-second window.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package throughput

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lanikai/alohacast/internal/logging"
)

var log = logging.DefaultLogger.WithTag("throughput")

// Window is the minimum interval between two emissions.
const Window = 1000 * time.Millisecond

// A Listener receives the total recorded during each completed window.
//
// OnThroughputSample is called synchronously from Record, on the caller's
// goroutine, so it must return quickly. A panic in the listener is not
// recovered and propagates to the caller of Record.
type Listener interface {
	OnThroughputSample(value uint64)
}

// ListenerFunc adapts an ordinary function to the Listener interface.
type ListenerFunc func(value uint64)

func (f ListenerFunc) OnThroughputSample(value uint64) {
	f(value)
}

// Sampler accumulates recorded amounts and, on the first Record call at
// least one Window after the previous emission (or construction), hands the
// accumulated total to its Listener and starts a new window.
//
// The sampler has no timer of its own. If Record stops being called, the
// last partial window is never reported.
type Sampler struct {
	listener Listener
	clock    clock.Clock

	mu          sync.Mutex
	accumulated uint64
	windowStart time.Time
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock replaces the time source. The default is the system clock,
// whose readings carry a monotonic component.
func WithClock(c clock.Clock) Option {
	return func(s *Sampler) {
		s.clock = c
	}
}

func NewSampler(l Listener, opts ...Option) *Sampler {
	if l == nil {
		panic("throughput: nil listener")
	}
	s := &Sampler{
		listener: l,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.windowStart = s.clock.Now()
	return s
}

// Record adds amount to the current window. If the window has lasted at
// least one second, the listener is called with the window total before
// Record returns. Safe for concurrent use.
//
// The listener runs after the window is reset and outside the lock. With
// concurrent callers, a caller descheduled between the two for longer than
// a window may deliver its total after a later one. Callers that need
// strict ordering must serialize their Record calls.
func (s *Sampler) Record(amount uint64) {
	value, emit := s.add(amount)
	if emit {
		log.Trace(5, "window total: %d", value)
		s.listener.OnThroughputSample(value)
	}
}

// add updates the accumulator and window start as one unit. When a window
// closes, the state is reset before the listener runs.
func (s *Sampler) add(amount uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accumulated += amount

	now := s.clock.Now()
	// A clock that went backwards yields a negative duration, which never
	// closes the window.
	if now.Sub(s.windowStart) < Window {
		return 0, false
	}

	value := s.accumulated
	s.accumulated = 0
	s.windowStart = now
	return value, true
}

// Accumulated returns the total recorded in the current, still open window.
func (s *Sampler) Accumulated() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated
}
