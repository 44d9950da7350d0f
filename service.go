//////////////////////////////////////////////////////////////////////////////
//
// Service streams a prepared input to an RTMP endpoint in the background,
// optionally recording it, and reports connection state and throughput.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohacast

import (
	"context"
	"sync"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"

	"github.com/lanikai/alohacast/internal/logging"
	"github.com/lanikai/alohacast/internal/media"
	"github.com/lanikai/alohacast/internal/publish"
	"github.com/lanikai/alohacast/internal/status"
)

var log = logging.DefaultLogger.WithTag("alohacast")

// Service owns one streaming session at a time. Methods are safe for
// concurrent use.
type Service struct {
	cfg       Config
	publisher *publish.Publisher

	mu       sync.Mutex
	source   media.Source
	streams  []av.CodecData
	recorder *recorder

	// Set while a stream is running.
	cancel context.CancelFunc
	done   chan struct{}

	// Result of the last stream.
	err error
}

func NewService(cfg Config) *Service {
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{}
	}
	return &Service{
		cfg: cfg,
		publisher: &publish.Publisher{
			DialTimeout: cfg.DialTimeout,
			Retries:     cfg.Retries,
			RetryDelay:  cfg.RetryDelay,
			BackupURL:   cfg.BackupURL,
			Clock:       cfg.Clock,
			Dial:        cfg.Dial,
			QueueSize:   cfg.QueueSize,
		},
	}
}

// Prepare opens the input for the next stream. Any previously prepared
// input that was not streamed is closed.
func (s *Service) Prepare(input string) error {
	src, err := media.Open(input, media.Options{
		Realtime: s.cfg.Realtime,
		Loop:     s.cfg.Loop,
	})
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	if err := s.setSource(src); err != nil {
		src.Close()
		return err
	}
	return nil
}

func (s *Service) setSource(src media.Source) error {
	streams, err := src.Streams()
	if err != nil {
		return errors.Wrap(err, "prepare")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStreaming
	}
	if s.source != nil {
		s.source.Close()
	}
	s.source = src
	s.streams = streams
	return nil
}

// StartStream publishes the prepared input to endpoint in the background.
// The input is consumed; call Prepare again before the next stream.
func (s *Service) StartStream(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStreaming
	}
	if s.source == nil {
		return errNotPrepared
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.err = nil

	src := s.source
	s.source = nil
	go s.run(ctx, endpoint, src, s.done)
	return nil
}

func (s *Service) run(ctx context.Context, endpoint string, src media.Source, done chan struct{}) {
	err := s.publisher.Publish(ctx, endpoint, &teeSource{src, s}, events{s})
	src.Close()

	s.mu.Lock()
	s.err = err
	s.cancel = nil
	s.mu.Unlock()
	close(done)
}

// StopStream ends the current stream, if any, and waits for it to finish.
func (s *Service) StopStream() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the current stream, if any, ends, and returns its error.
func (s *Service) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Service) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// StartRecord saves the outgoing stream to path, starting at the next key
// frame. The container is chosen by the file extension. Requires a
// prepared or running stream.
func (s *Service) StartRecord(path string) error {
	if err := s.startRecord(path); err != nil {
		return err
	}
	s.notify(textRecordStarted)
	return nil
}

func (s *Service) startRecord(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder != nil {
		return errAlreadyRecording
	}
	// An input that was streamed to the end has nothing left to record.
	if s.source == nil && s.cancel == nil {
		return errNotPrepared
	}

	muxer, err := media.Create(path)
	if err != nil {
		return errors.Wrap(err, "start record")
	}
	r, err := newRecorder(muxer, s.streams)
	if err != nil {
		return err
	}
	s.recorder = r
	return nil
}

func (s *Service) StopRecord() error {
	s.mu.Lock()
	r := s.recorder
	s.recorder = nil
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	err := r.close()
	s.notify(textRecordStopped)
	return err
}

func (s *Service) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder != nil
}

// record passes a packet to the recorder, if recording. A write failure
// stops the recording but not the stream. The write happens outside s.mu so
// that a slow disk does not block the service's other methods.
func (s *Service) record(pkt av.Packet) {
	s.mu.Lock()
	r := s.recorder
	s.mu.Unlock()
	if r == nil {
		return
	}

	err := r.write(pkt)
	if err == nil {
		return
	}

	s.mu.Lock()
	current := s.recorder == r
	if current {
		s.recorder = nil
	}
	s.mu.Unlock()

	// Otherwise StopRecord got there first.
	if current {
		log.Error("Recording failed: %v", err)
		r.close()
		s.notify(textRecordStopped)
	}
}

// HasCongestion reports whether the network is falling behind the input,
// so that an upstream encoder may lower its bitrate.
func (s *Service) HasCongestion() bool {
	return s.publisher.HasCongestion()
}

// Stats returns packet counters across all streams of this service.
func (s *Service) Stats() *publish.Stats {
	return s.publisher.Stats()
}

// Close stops recording and streaming and releases the prepared input.
func (s *Service) Close() error {
	err := s.StopRecord()
	s.StopStream()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}
	return err
}

func (s *Service) notify(text string) {
	s.cfg.Notifier.Notify(text)
	if s.cfg.Status != nil {
		s.cfg.Status.Publish(status.Event{Kind: status.Notification, Text: text})
	}
}

// teeSource hands every packet read by the publisher to the recorder.
type teeSource struct {
	av.Demuxer
	s *Service
}

func (t *teeSource) ReadPacket() (av.Packet, error) {
	pkt, err := t.Demuxer.ReadPacket()
	if err == nil {
		t.s.record(pkt)
	}
	return pkt, err
}

// events turns publisher events into notifications and throughput reports.
type events struct {
	s *Service
}

func (e events) OnConnectionStarted(url string) {
	log.Info("Connecting to %s", url)
	e.s.notify(textConnectionStarted)
}

func (e events) OnConnectionSuccess() {
	e.s.notify(textStarted)
}

func (e events) OnConnectionFailed(reason string) {
	log.Error("Connection failed: %s", reason)
	e.s.notify(textConnectionFailed)
}

func (e events) OnNewBitrate(bitrate uint64) {
	log.Debug("Sent %d bytes in the last window", bitrate)
	if e.s.cfg.Throughput != nil {
		e.s.cfg.Throughput.OnThroughputSample(bitrate)
	}
	if e.s.cfg.Status != nil {
		e.s.cfg.Status.Publish(status.Event{Kind: status.Throughput, Value: bitrate})
	}
}

func (e events) OnDisconnect() {
	e.s.notify(textStopped)
}
