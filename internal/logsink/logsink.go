package logsink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Sink appends one JSON document per line to a file. Writes are queued
// on a channel so the hot path never blocks on disk; Close drains the
// queue before returning. A Sink built from an empty path discards
// everything.
type Sink struct {
	ch     chan json.RawMessage
	done   chan struct{}
	closed sync.Once
	log    zerolog.Logger
}

const queueDepth = 256

// Open creates (or appends to) the file at path. An empty path yields a
// nop sink, so callers never need to branch on whether logging is on.
func Open(path string, log zerolog.Logger) (*Sink, error) {
	s := &Sink{
		ch:   make(chan json.RawMessage, queueDepth),
		done: make(chan struct{}),
		log:  log.With().Str("component", "logsink").Logger(),
	}
	if path == "" {
		go s.drainDiscard()
		return s, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	go s.drain(f)
	return s, nil
}

// Write marshals v and queues the line. Marshal failures are logged and
// dropped; a record that cannot serialize is not worth crashing a run.
func (s *Sink) Write(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal log record")
		return
	}
	s.ch <- raw
}

// Close stops accepting writes and blocks until every queued line is on
// disk.
func (s *Sink) Close() {
	s.closed.Do(func() { close(s.ch) })
	<-s.done
}

func (s *Sink) drain(f *os.File) {
	defer close(s.done)
	defer f.Close()
	for raw := range s.ch {
		if _, err := f.Write(append(raw, '\n')); err != nil {
			s.log.Error().Err(err).Msg("append log line")
		}
	}
	if err := f.Sync(); err != nil {
		s.log.Error().Err(err).Msg("sync log file")
	}
}

func (s *Sink) drainDiscard() {
	defer close(s.done)
	for range s.ch {
	}
}
