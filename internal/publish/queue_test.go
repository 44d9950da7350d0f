package publish

import (
	"context"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSource hands out packets as the test feeds them.
type gatedSource struct {
	packets chan av.Packet
}

func newGatedSource() *gatedSource {
	return &gatedSource{packets: make(chan av.Packet)}
}

func (s *gatedSource) Streams() ([]av.CodecData, error) { return testStreams(), nil }

func (s *gatedSource) ReadPacket() (av.Packet, error) {
	pkt, ok := <-s.packets
	if !ok {
		return av.Packet{}, io.EOF
	}
	return pkt, nil
}

func waitForQueued(t *testing.T, queued func() int, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for queued() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d queued packets, have %d", n, queued())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSendQueueCongestion(t *testing.T) {
	src := newGatedSource()
	q := newSendQueue(src, 10)
	defer q.close()
	assert.Equal(t, 10, q.size())

	src.packets <- av.Packet{Idx: 0, IsKeyFrame: true}
	waitForQueued(t, q.len, 1)
	assert.False(t, q.congested())

	src.packets <- av.Packet{Idx: 1}
	waitForQueued(t, q.len, 2)
	assert.True(t, q.congested())

	pkt, err := q.next(context.Background())
	require.NoError(t, err)
	assert.True(t, pkt.IsKeyFrame)
	assert.Equal(t, 1, q.len())
	assert.False(t, q.congested())
}

func TestSendQueueDefaultSize(t *testing.T) {
	q := newSendQueue(newGatedSource(), 0)
	defer q.close()
	assert.Equal(t, defaultQueueSize, q.size())
}

func TestSendQueueEndOfSource(t *testing.T) {
	src := newGatedSource()
	q := newSendQueue(src, 4)
	defer q.close()

	src.packets <- av.Packet{Idx: 1}
	close(src.packets)

	_, err := q.next(context.Background())
	require.NoError(t, err)
	_, err = q.next(context.Background())
	assert.Equal(t, io.EOF, err)
	_, err = q.next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestSendQueueNextCancelled(t *testing.T) {
	q := newSendQueue(newGatedSource(), 4)
	defer q.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.next(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestPublisherReportsCongestion(t *testing.T) {
	release := make(chan struct{})
	p := &Publisher{
		QueueSize: 5,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			<-release
			return nil, syscall.ECONNREFUSED
		},
	}
	assert.False(t, p.HasCongestion())
	assert.Zero(t, p.Queued())

	src := newGatedSource()
	result := make(chan error, 1)
	go func() {
		result <- p.Publish(context.Background(), "rtmp://host/app/key", src, NopEvents{})
	}()

	// The network is stuck while the source keeps producing.
	for i := 0; i < 3; i++ {
		src.packets <- av.Packet{Idx: 1}
	}
	waitForQueued(t, p.Queued, 3)
	assert.True(t, p.HasCongestion())

	close(release)
	assert.Error(t, <-result)
	assert.False(t, p.HasCongestion())
	assert.Zero(t, p.Queued())
}
