package audit

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// DefaultFlushInterval bounds how long an idle consumer waits before
// flushing anyway.
const DefaultFlushInterval = 500 * time.Millisecond

// queueCapacity sizes the buffered channel producers enqueue onto. A large
// buffered channel is the practical idiomatic-Go way to give producers an
// effectively unbounded, non-blocking queue under expected burst sizes,
// while a channel send happening-before the corresponding receive gives the
// notify/wait handshake for free.
const queueCapacity = 1 << 16

// DroppedWriteCounter is satisfied by internal/metrics' Prometheus counter;
// kept as an interface here so internal/audit never imports internal/metrics
// directly.
type DroppedWriteCounter interface {
	Inc()
}

type noopCounter struct{}

func (noopCounter) Inc() {}

// FileSink is a single-consumer background writer: producers enqueue events
// from any number of goroutines (one per book, in practice), and one
// dedicated consumer goroutine drains batches, serializes each event per
// the wire line format, and flushes after each batch.
type FileSink struct {
	events   chan Event
	file     *os.File
	w        *bufio.Writer
	flushInt time.Duration
	dropped  DroppedWriteCounter
	t        *tomb.Tomb
}

// NewFileSink opens path for append and starts the background consumer.
// Failure to open the file is fatal at construction: the process refuses to
// start rather than run with a broken audit trail.
func NewFileSink(path string, flushInterval time.Duration, dropped DroppedWriteCounter) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("unable to open audit log, refusing to start")
		return nil, err
	}

	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if dropped == nil {
		dropped = noopCounter{}
	}

	s := &FileSink{
		events:   make(chan Event, queueCapacity),
		file:     f,
		w:        bufio.NewWriter(f),
		flushInt: flushInterval,
		dropped:  dropped,
	}

	t, _ := tomb.WithContext(context.Background())
	s.t = t
	t.Go(s.run)

	return s, nil
}

// Enqueue publishes e for the consumer to pick up. Never blocks under normal
// operation (the channel is sized far beyond any realistic burst); if the
// consumer has fallen behind enough to fill the channel, the event is
// dropped and counted rather than stalling the book's matching goroutine.
func (s *FileSink) Enqueue(e Event) {
	select {
	case s.events <- e:
	default:
		s.dropped.Inc()
		log.Warn().Msg("audit queue full, dropping event")
	}
}

// Close signals the consumer to drain remaining events, flush, and close
// the file, then waits for it to finish. Shutdown is cooperative.
func (s *FileSink) Close() error {
	s.t.Kill(nil)
	return s.t.Wait()
}

func (s *FileSink) run() error {
	ticker := time.NewTicker(s.flushInt)
	defer ticker.Stop()
	defer s.file.Close()

	for {
		select {
		case <-s.t.Dying():
			s.drainAndFlush()
			return nil
		case e := <-s.events:
			s.write(e)
			s.drainPending()
			s.flush()
		case <-ticker.C:
			s.flush()
		}
	}
}

// drainPending opportunistically writes whatever else is already queued
// without waiting, so a burst is written as one batch before the flush.
func (s *FileSink) drainPending() {
	for {
		select {
		case e := <-s.events:
			s.write(e)
		default:
			return
		}
	}
}

func (s *FileSink) drainAndFlush() {
	for {
		select {
		case e := <-s.events:
			s.write(e)
		default:
			s.flush()
			return
		}
	}
}

func (s *FileSink) write(e Event) {
	if _, err := s.w.Write(Marshal(e)); err != nil {
		s.dropped.Inc()
		log.Error().Err(err).Msg("audit write failed")
	}
}

func (s *FileSink) flush() {
	if err := s.w.Flush(); err != nil {
		log.Error().Err(err).Msg("audit flush failed")
	}
}
