package media

import (
	"io"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/av/pktque"
	xerrors "golang.org/x/xerrors"
)

// Source is a stream of pre-encoded media packets.
type Source interface {
	av.Demuxer

	// Free up any resources associated with the source
	Close() error
}

type Options struct {
	// Deliver packets no faster than their timestamps, as a live encoder
	// would. Without this, packets are read as fast as the container allows.
	Realtime bool

	// Start over at the end of the file. Timestamps keep increasing across
	// iterations.
	Loop bool
}

// Gap inserted between the last packet of one loop iteration and the first
// packet of the next.
const loopGap = 50 * time.Millisecond

// Open a file or pull URL as a Source.
func Open(path string, opts Options) (Source, error) {
	log.Info("Opening %s", path)

	var src Source
	d, err := openDemuxer(path)
	if err != nil {
		return nil, err
	}
	src = d

	streams, err := src.Streams()
	if err != nil {
		src.Close()
		return nil, xerrors.Errorf("read streams of %s: %w", path, err)
	}
	for i, codec := range streams {
		if vc, ok := codec.(av.VideoCodecData); ok {
			log.Info("Stream %d: %v %dx%d", i, codec.Type(), vc.Width(), vc.Height())
		} else {
			log.Info("Stream %d: %v", i, codec.Type())
		}
	}

	if opts.Loop {
		src = &loopSource{
			open:    func() (av.DemuxCloser, error) { return openDemuxer(path) },
			cur:     d,
			streams: streams,
		}
	}

	if opts.Realtime {
		src = &pacedSource{
			FilterDemuxer: &pktque.FilterDemuxer{Demuxer: src, Filter: &pktque.Walltime{}},
			closer:        src,
		}
	}

	return src, nil
}

// pacedSource sleeps until each packet's presentation time.
type pacedSource struct {
	*pktque.FilterDemuxer
	closer io.Closer
}

func (s *pacedSource) Close() error {
	return s.closer.Close()
}

// loopSource reopens its file at EOF.
type loopSource struct {
	open    func() (av.DemuxCloser, error)
	cur     av.DemuxCloser
	streams []av.CodecData

	// Added to every packet time of the current iteration.
	offset time.Duration

	// Time of the latest packet returned.
	last time.Duration

	// Whether the current iteration has produced a packet yet.
	produced bool
}

func (s *loopSource) Streams() ([]av.CodecData, error) {
	return s.streams, nil
}

func (s *loopSource) ReadPacket() (av.Packet, error) {
	if s.cur == nil {
		return av.Packet{}, io.ErrClosedPipe
	}
	for {
		pkt, err := s.cur.ReadPacket()
		if err == io.EOF {
			if !s.produced {
				return pkt, errEmptySource
			}
			log.Debug("End of source, looping")
			if err := s.restart(); err != nil {
				return av.Packet{}, err
			}
			continue
		} else if err != nil {
			return pkt, err
		}

		pkt.Time += s.offset
		s.last = pkt.Time
		s.produced = true
		return pkt, nil
	}
}

func (s *loopSource) restart() error {
	s.cur.Close()
	next, err := s.open()
	if err != nil {
		s.cur = nil
		return xerrors.Errorf("reopen for loop: %w", err)
	}
	s.cur = next
	s.offset = s.last + loopGap
	s.produced = false
	return nil
}

func (s *loopSource) Close() error {
	if s.cur == nil {
		return nil
	}
	return s.cur.Close()
}
