//////////////////////////////////////////////////////////////////////////////
//
// Publisher pushes a packet source to an RTMP server, measuring how many
// bytes reach the socket.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package publish

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/format/rtmp"
	"github.com/pkg/errors"

	"github.com/lanikai/alohacast/internal/logging"
	"github.com/lanikai/alohacast/internal/throughput"
)

var log = logging.DefaultLogger.WithTag("publish")

const defaultDialTimeout = 10 * time.Second

// DialFunc opens the transport connection to an endpoint address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Publisher struct {
	stats Stats

	// Timeout for TCP connect and TLS handshake. Zero means 10 seconds.
	DialTimeout time.Duration

	// Number of reconnection attempts after a failure. Zero disables retry.
	Retries int

	// Wait between a failure and the next attempt.
	RetryDelay time.Duration

	// If set, retries go to this URL instead of the original one.
	BackupURL string

	// Time source for retry delays and throughput windows. Defaults to the
	// system clock.
	Clock clock.Clock

	// Transport dialer. Defaults to a net.Dialer with DialTimeout.
	Dial DialFunc

	// Packets read ahead of the network. Zero means 60.
	QueueSize int

	mu    sync.Mutex
	queue *sendQueue
}

// Stats returns the packet counters, accumulated over all sessions of this
// publisher until reset.
func (p *Publisher) Stats() *Stats {
	return &p.stats
}

// HasCongestion reports whether the network is falling behind the source,
// i.e. at least a fifth of the send queue is occupied. False when nothing
// is being published.
func (p *Publisher) HasCongestion() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue != nil && p.queue.congested()
}

// Queued returns the number of packets waiting to be sent.
func (p *Publisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		return 0
	}
	return p.queue.len()
}

func (p *Publisher) setQueue(q *sendQueue) {
	p.mu.Lock()
	p.queue = q
	p.mu.Unlock()
}

func (p *Publisher) clock() clock.Clock {
	if p.Clock == nil {
		return clock.New()
	}
	return p.Clock
}

func (p *Publisher) dialTimeout() time.Duration {
	if p.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return p.DialTimeout
}

// Publish streams src to rawURL until src is exhausted, ctx is cancelled, or
// all attempts fail. Each attempt opens a new connection with its own
// throughput sampler reporting to events.OnNewBitrate. Packets are read
// ahead of the network into a queue that survives reconnections.
//
// Returns nil on a clean end of stream or cancellation.
func (p *Publisher) Publish(ctx context.Context, rawURL string, src av.Demuxer, events Events) error {
	streams, err := src.Streams()
	if err != nil {
		return &SourceError{errors.Wrap(err, "read streams")}
	}

	queue := newSendQueue(src, p.QueueSize)
	p.setQueue(queue)
	defer func() {
		p.setQueue(nil)
		queue.close()
	}()

	target := rawURL
	for attempt := 0; ; attempt++ {
		err := p.publishOnce(ctx, target, streams, queue, events)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			events.OnDisconnect()
			return nil
		}

		log.Warn("Publish to %s failed: %v", target, err)
		events.OnConnectionFailed(err.Error())
		if attempt >= p.Retries || !ShouldRetry(err) {
			return err
		}

		if p.BackupURL != "" {
			target = p.BackupURL
		}
		log.Info("Retrying in %v (%d of %d)", p.RetryDelay, attempt+1, p.Retries)
		if p.RetryDelay > 0 {
			select {
			case <-p.clock().After(p.RetryDelay):
			case <-ctx.Done():
				events.OnDisconnect()
				return nil
			}
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context, rawURL string, streams []av.CodecData, queue *sendQueue, events Events) error {
	events.OnConnectionStarted(rawURL)

	ep, err := ParseEndpoint(rawURL)
	if err != nil {
		return err
	}

	sampler := throughput.NewSampler(
		throughput.ListenerFunc(events.OnNewBitrate),
		throughput.WithClock(p.clock()),
	)
	conn, err := p.connect(ctx, ep, sampler)
	if err != nil {
		return err
	}

	rc := rtmp.NewConn(conn)
	rc.URL = ep.URL

	// Unblock socket writes when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rc.Close()
		case <-done:
		}
	}()

	// Handshake, connect and publish commands all happen here.
	if err := rc.WriteHeader(streams); err != nil {
		rc.Close()
		return errors.Wrap(err, "rtmp publish")
	}
	log.Info("Publishing %s/%s to %s", ep.App, ep.Stream, ep.Address)
	events.OnConnectionSuccess()

	err = p.copyPackets(ctx, flushingWriter{rc}, queue, streams)
	if err == io.EOF {
		err = rc.WriteTrailer()
		rc.Close()
		if err != nil {
			return errors.Wrap(err, "rtmp trailer")
		}
		events.OnDisconnect()
		return nil
	}
	rc.Close()
	return err
}

// connect dials the endpoint and returns a connection whose writes are
// recorded by sampler. For rtmps the sampler counts TLS records, i.e. what
// actually goes on the wire.
func (p *Publisher) connect(ctx context.Context, ep *Endpoint, sampler *throughput.Sampler) (net.Conn, error) {
	dial := p.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: p.dialTimeout()}
		dial = d.DialContext
	}

	raw, err := dial(ctx, "tcp", ep.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", ep.Address)
	}
	var conn net.Conn = throughput.NewConn(raw, sampler)

	if ep.TLS {
		tc := tls.Client(conn, &tls.Config{ServerName: ep.URL.Hostname()})
		tc.SetDeadline(time.Now().Add(p.dialTimeout()))
		if err := tc.Handshake(); err != nil {
			raw.Close()
			return nil, errors.Wrap(err, "tls handshake")
		}
		tc.SetDeadline(time.Time{})
		conn = tc
	}
	return conn, nil
}

// flushingWriter puts every packet on the wire as soon as it is written.
// joy4 buffers packet writes and only flushes them in WriteTrailer, which
// would hold back live media and report throughput in bursts.
type flushingWriter struct {
	*rtmp.Conn
}

func (w flushingWriter) WritePacket(pkt av.Packet) error {
	if err := w.Conn.WritePacket(pkt); err != nil {
		return err
	}
	return w.Conn.WriteTrailer()
}

// copyPackets writes queued packets to dst until an error. Video starts at
// the first key frame so that a fresh connection is decodable.
func (p *Publisher) copyPackets(ctx context.Context, dst av.PacketWriter, queue *sendQueue, streams []av.CodecData) error {
	waitKeyFrame := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt, err := queue.next(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return err
			}
			return &SourceError{errors.Wrap(err, "read packet")}
		}

		if int(pkt.Idx) < 0 || int(pkt.Idx) >= len(streams) {
			log.Debug("Dropping packet of unknown stream %d", pkt.Idx)
			p.stats.dropped(false)
			continue
		}
		video := streams[pkt.Idx].Type().IsVideo()

		if video && waitKeyFrame {
			if !pkt.IsKeyFrame {
				p.stats.dropped(true)
				continue
			}
			waitKeyFrame = false
		}

		if err := dst.WritePacket(pkt); err != nil {
			p.stats.dropped(video)
			return errors.Wrap(err, "write packet")
		}
		p.stats.sent(video)
	}
}
