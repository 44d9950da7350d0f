//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for Service
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohacast

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lanikai/alohacast/internal/publish"
	"github.com/lanikai/alohacast/internal/status"
	"github.com/lanikai/alohacast/internal/throughput"
)

type Config struct {
	// Pace packets at their presentation times
	Realtime bool

	// Restart the input at end of file
	Loop bool

	// Connection timeout, including TLS handshake
	DialTimeout time.Duration

	// Reconnection attempts after a failure, and the wait before each
	Retries    int
	RetryDelay time.Duration

	// Where retries publish to, if not the original endpoint
	BackupURL string

	// Packets read ahead of the network. A queue at least a fifth full
	// counts as congestion. Zero means 60.
	QueueSize int

	// Receives stream state messages. Defaults to logging them.
	Notifier Notifier

	// Receives every throughput sample, synchronously, on the goroutine
	// writing to the network. Wrap slow listeners in a
	// throughput.AsyncListener.
	Throughput throughput.Listener

	// If set, notifications and throughput samples are also published here
	Status *status.Hub

	// Time source for throughput windows and retry delays
	Clock clock.Clock

	// Transport dialer, e.g. to go through a proxy
	Dial publish.DialFunc
}
