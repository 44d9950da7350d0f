package media

import (
	"io"
	"testing"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "golang.org/x/xerrors"
)

// fakeDemuxer replays a fixed list of packets.
type fakeDemuxer struct {
	packets []av.Packet
	closed  bool
}

func (d *fakeDemuxer) Streams() ([]av.CodecData, error) { return nil, nil }

func (d *fakeDemuxer) ReadPacket() (av.Packet, error) {
	if len(d.packets) == 0 {
		return av.Packet{}, io.EOF
	}
	pkt := d.packets[0]
	d.packets = d.packets[1:]
	return pkt, nil
}

func (d *fakeDemuxer) Close() error {
	d.closed = true
	return nil
}

func packetsAt(times ...time.Duration) []av.Packet {
	var pkts []av.Packet
	for _, t := range times {
		pkts = append(pkts, av.Packet{Time: t, Data: []byte{0}})
	}
	return pkts
}

func TestLoopSourceKeepsTimeIncreasing(t *testing.T) {
	var opened []*fakeDemuxer
	open := func() (av.DemuxCloser, error) {
		d := &fakeDemuxer{packets: packetsAt(0, 40*time.Millisecond)}
		opened = append(opened, d)
		return d, nil
	}
	first, _ := open()
	src := &loopSource{open: open, cur: first}

	var times []time.Duration
	for i := 0; i < 6; i++ {
		pkt, err := src.ReadPacket()
		require.NoError(t, err)
		times = append(times, pkt.Time)
	}

	ms := time.Millisecond
	assert.Equal(t, []time.Duration{0, 40 * ms, 90 * ms, 130 * ms, 180 * ms, 220 * ms}, times)
	require.Len(t, opened, 3)
	assert.True(t, opened[0].closed)
	assert.True(t, opened[1].closed)
	assert.False(t, opened[2].closed)

	require.NoError(t, src.Close())
	assert.True(t, opened[2].closed)
}

func TestLoopSourceEmptyFile(t *testing.T) {
	open := func() (av.DemuxCloser, error) { return &fakeDemuxer{}, nil }
	first, _ := open()
	src := &loopSource{open: open, cur: first}

	_, err := src.ReadPacket()
	assert.Equal(t, errEmptySource, err)
}

func TestLoopSourceReopenFailure(t *testing.T) {
	calls := 0
	open := func() (av.DemuxCloser, error) {
		calls++
		if calls > 1 {
			return nil, io.ErrUnexpectedEOF
		}
		return &fakeDemuxer{packets: packetsAt(0)}, nil
	}
	first, _ := open()
	src := &loopSource{open: open, cur: first}

	_, err := src.ReadPacket()
	require.NoError(t, err)
	_, err = src.ReadPacket()
	assert.True(t, xerrors.Is(err, io.ErrUnexpectedEOF))

	_, err = src.ReadPacket()
	assert.Equal(t, io.ErrClosedPipe, err)
	assert.NoError(t, src.Close())
}

func TestCheckPath(t *testing.T) {
	for _, p := range []string{"clip.mp4", "/tmp/CLIP.FLV", "out.ts", "rtsp://camera.local/stream", "rtmp://host/app/key"} {
		assert.NoError(t, checkPath(p, false), p)
	}

	for _, p := range []string{"clip.mkv", "noext", "http://host/clip.mp4"} {
		err := checkPath(p, false)
		assert.True(t, xerrors.Is(err, ErrUnsupported), p)
	}

	assert.NoError(t, checkPath("record.flv", true))
	assert.True(t, xerrors.Is(checkPath("rtmp://host/app/key", true), ErrUnsupported))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("clip.avi", Options{})
	assert.True(t, xerrors.Is(err, ErrUnsupported))

	_, err = Create("clip.avi")
	assert.True(t, xerrors.Is(err, ErrUnsupported))
}

func TestSupportedContainers(t *testing.T) {
	assert.Equal(t, []string{".flv", ".mp4", ".ts"}, SupportedContainers())
}
