package publish

import (
	"context"

	"github.com/nareix/joy4/av"
)

// Default number of packets buffered between the source and the network.
const defaultQueueSize = 60

// Share of the queue that must be occupied before the link counts as
// congested.
const congestionPercent = 20

type queued struct {
	pkt av.Packet
	err error
}

// sendQueue reads ahead from a packet source on its own goroutine. When the
// network falls behind, packets pile up here; once the queue is full the
// reader blocks until the sender catches up.
type sendQueue struct {
	packets chan queued
	stop    chan struct{}

	// First read error, returned by every later call to next. Only
	// touched by the sending goroutine.
	err error
}

func newSendQueue(src av.PacketReader, size int) *sendQueue {
	if size < 1 {
		size = defaultQueueSize
	}
	q := &sendQueue{
		packets: make(chan queued, size),
		stop:    make(chan struct{}),
	}
	go q.fill(src)
	return q
}

func (q *sendQueue) fill(src av.PacketReader) {
	for {
		pkt, err := src.ReadPacket()
		select {
		case q.packets <- queued{pkt, err}:
		case <-q.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// next returns the oldest queued packet, waiting for one if necessary.
func (q *sendQueue) next(ctx context.Context) (av.Packet, error) {
	if q.err != nil {
		return av.Packet{}, q.err
	}
	select {
	case item := <-q.packets:
		if item.err != nil {
			q.err = item.err
		}
		return item.pkt, item.err
	case <-ctx.Done():
		return av.Packet{}, ctx.Err()
	}
}

// len returns the number of packets waiting to be sent.
func (q *sendQueue) len() int {
	return len(q.packets)
}

func (q *sendQueue) size() int {
	return cap(q.packets)
}

func (q *sendQueue) congested() bool {
	return q.len()*100 >= q.size()*congestionPercent
}

// close stops the reader goroutine. A reader blocked inside the source's
// ReadPacket exits once the source is closed.
func (q *sendQueue) close() {
	close(q.stop)
}
