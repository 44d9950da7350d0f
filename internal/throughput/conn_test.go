package throughput

import (
	"io"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnRecordsWrittenBytes(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	mock := clock.NewMock()
	r := &recorder{}
	conn := NewConn(client, NewSampler(r, WithClock(mock)))

	received := make(chan int64)
	go func() {
		n, _ := io.Copy(ioutil.Discard, server)
		received <- n
	}()

	for _, size := range []int{10, 200, 3000} {
		n, err := conn.Write(make([]byte, size))
		require.NoError(t, err)
		require.Equal(t, size, n)
	}
	assert.EqualValues(t, 3210, conn.Sampler().Accumulated())

	mock.Add(time.Second)
	_, err := conn.Write([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3211}, r.Values())

	require.NoError(t, conn.Close())
	assert.EqualValues(t, 3211, <-received)
}

func TestConnFailedWriteRecordsNothing(t *testing.T) {
	client, server := net.Pipe()
	server.Close()

	conn := NewConn(client, NewSampler(&recorder{}))
	_, err := conn.Write([]byte("lost"))
	assert.Error(t, err)
	assert.Zero(t, conn.Sampler().Accumulated())
}

func TestConnReadsAreNotCounted(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewConn(client, NewSampler(&recorder{}))
	go server.Write([]byte("hello"))

	buf := make([]byte, 5)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	assert.Zero(t, conn.Sampler().Accumulated())
}
