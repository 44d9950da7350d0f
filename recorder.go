package alohacast

import (
	"sync"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"
)

// recorder writes a copy of the outgoing packets to a local file. Recording
// begins at the first video key frame (or the first packet, for audio-only
// streams) and its timestamps start at zero. Safe for concurrent use; writes
// after close are ignored.
type recorder struct {
	muxer av.MuxCloser

	mu     sync.Mutex
	closed bool

	// Index of the first video stream, or -1.
	videoIdx int

	started bool
	base    time.Duration
}

func newRecorder(muxer av.MuxCloser, streams []av.CodecData) (*recorder, error) {
	if err := muxer.WriteHeader(streams); err != nil {
		muxer.Close()
		return nil, errors.Wrap(err, "write record header")
	}

	r := &recorder{muxer: muxer, videoIdx: -1}
	for i, codec := range streams {
		if codec.Type().IsVideo() {
			r.videoIdx = i
			break
		}
	}
	return r, nil
}

func (r *recorder) write(pkt av.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if !r.started {
		if r.videoIdx >= 0 && (int(pkt.Idx) != r.videoIdx || !pkt.IsKeyFrame) {
			return nil
		}
		r.started = true
		r.base = pkt.Time
	}

	pkt.Time -= r.base
	if pkt.Time < 0 {
		pkt.Time = 0
	}
	return r.muxer.WritePacket(pkt)
}

func (r *recorder) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.started {
		err = r.muxer.WriteTrailer()
	}
	if cerr := r.muxer.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "close recording")
}
