package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncSink fans lines out to several writers from one goroutine so callers
// never block on slow disks unless the queue is full.
type asyncSink struct {
	lines chan []byte
	flush chan chan error
	done  chan struct{}

	// gate orders Write against Close so nothing is sent on a closed queue.
	gate   sync.RWMutex
	closed bool

	mu      sync.Mutex
	outs    []*bufio.Writer
	lastErr error
}

func newAsyncSink(writers []io.Writer, queue int) *asyncSink {
	s := &asyncSink{
		lines: make(chan []byte, queue),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(w, 32*1024))
		}
	}
	go s.run()
	return s
}

func (s *asyncSink) run() {
	defer close(s.done)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.setErr(s.flushAll())
				return
			}
			s.setErr(s.write(line))
		case ack := <-s.flush:
			ack <- s.flushAll()
		}
	}
}

// errSinkClosed is returned by Write after Close.
var errSinkClosed = errors.New("logger: sink closed")

// Write queues a copy of line. Lines written after Close are dropped.
func (s *asyncSink) Write(line []byte) error {
	if err := s.err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.closed {
		return errSinkClosed
	}
	s.lines <- append([]byte(nil), line...)
	return nil
}

// Flush blocks until every queued line reached the writers.
func (s *asyncSink) Flush() error {
	select {
	case <-s.done:
		return s.err()
	default:
	}
	ack := make(chan error, 1)
	select {
	case s.flush <- ack:
		return <-ack
	case <-s.done:
		return s.err()
	}
}

// Close drains the queue and stops the writer goroutine.
func (s *asyncSink) Close() error {
	s.gate.Lock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	s.gate.Unlock()
	<-s.done
	return s.err()
}

func (s *asyncSink) write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.outs {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *asyncSink) flushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, w := range s.outs {
		errs = append(errs, w.Flush())
	}
	return errors.Join(errs...)
}

func (s *asyncSink) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *asyncSink) setErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.lastErr == nil {
		s.lastErr = err
	}
	s.mu.Unlock()
}
