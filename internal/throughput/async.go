package throughput

import (
	"sync"
)

// AsyncListener moves listener work off the goroutine that calls Record.
// Samples are queued on a bounded channel and delivered, in order, by a
// dedicated goroutine. When the queue is full the oldest queued sample is
// dropped.
//
// Use it only when the producer must not wait for the listener; the plain
// synchronous Listener contract keeps each sample tied to the write that
// produced it.
type AsyncListener struct {
	target Listener
	queue  chan uint64
	done   chan struct{}

	// Serializes enqueue and Close.
	mu     sync.Mutex
	closed bool

	dropped uint64
}

func NewAsyncListener(target Listener, capacity int) *AsyncListener {
	if capacity < 1 {
		panic("throughput: async listener capacity must be positive")
	}
	a := &AsyncListener{
		target: target,
		queue:  make(chan uint64, capacity),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncListener) run() {
	defer close(a.done)
	for value := range a.queue {
		a.target.OnThroughputSample(value)
	}
}

// OnThroughputSample enqueues value without blocking.
func (a *AsyncListener) OnThroughputSample(value uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	for {
		select {
		case a.queue <- value:
			return
		default:
		}

		// Queue full. Drop the oldest sample, unless the delivery goroutine
		// took it in the meantime.
		select {
		case old := <-a.queue:
			a.dropped++
			log.Warn("listener backlogged, dropped sample %d", old)
		default:
		}
	}
}

// Dropped returns how many samples were discarded because the queue was full.
func (a *AsyncListener) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close delivers the samples still queued and stops the delivery goroutine.
func (a *AsyncListener) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
	return nil
}
