package throughput

import (
	"net"
)

// Conn is a net.Conn that records every byte accepted by the underlying
// connection's Write in a Sampler. Reads are passed through uncounted.
type Conn struct {
	net.Conn

	sampler *Sampler
}

func NewConn(c net.Conn, s *Sampler) *Conn {
	return &Conn{Conn: c, sampler: s}
}

// Write records n even when err is non-nil, since a short write still put n
// bytes on the wire.
func (c *Conn) Write(p []byte) (n int, err error) {
	n, err = c.Conn.Write(p)
	if n > 0 || err == nil {
		c.sampler.Record(uint64(n))
	}
	return n, err
}

// Sampler returns the sampler that this connection reports to.
func (c *Conn) Sampler() *Sampler {
	return c.sampler
}
