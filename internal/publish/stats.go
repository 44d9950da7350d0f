package publish

import (
	"sync/atomic"
)

// Stats counts packets per media type. Safe for concurrent use.
type Stats struct {
	sentVideo    uint64
	sentAudio    uint64
	droppedVideo uint64
	droppedAudio uint64
}

func (s *Stats) sent(video bool) {
	if video {
		atomic.AddUint64(&s.sentVideo, 1)
	} else {
		atomic.AddUint64(&s.sentAudio, 1)
	}
}

// Dropped packets are those read from the source but never written: video
// before the first key frame of a connection, packets of unknown streams,
// and the packet whose write failed.
func (s *Stats) dropped(video bool) {
	if video {
		atomic.AddUint64(&s.droppedVideo, 1)
	} else {
		atomic.AddUint64(&s.droppedAudio, 1)
	}
}

func (s *Stats) SentVideoFrames() uint64    { return atomic.LoadUint64(&s.sentVideo) }
func (s *Stats) SentAudioFrames() uint64    { return atomic.LoadUint64(&s.sentAudio) }
func (s *Stats) DroppedVideoFrames() uint64 { return atomic.LoadUint64(&s.droppedVideo) }
func (s *Stats) DroppedAudioFrames() uint64 { return atomic.LoadUint64(&s.droppedAudio) }

func (s *Stats) ResetSentVideoFrames()    { atomic.StoreUint64(&s.sentVideo, 0) }
func (s *Stats) ResetSentAudioFrames()    { atomic.StoreUint64(&s.sentAudio, 0) }
func (s *Stats) ResetDroppedVideoFrames() { atomic.StoreUint64(&s.droppedVideo, 0) }
func (s *Stats) ResetDroppedAudioFrames() { atomic.StoreUint64(&s.droppedAudio, 0) }
