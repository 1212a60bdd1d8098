// ABOUTME: Primary console sink over the process stdin/stdout.
// ABOUTME: A reader goroutine feeds a buffered channel so Available can poll.

package console

import (
	"io"
	"os"
	"sync"
)

// stdioBufSize bounds how much typed-ahead input is held.
const stdioBufSize = 256

// StdioSink is the primary console on a host build: input from stdin,
// output straight to stdout. Writes may block on the terminal; that is the
// primary sink's contract.
type StdioSink struct {
	in   chan byte
	r    io.Reader
	w    io.Writer
	once sync.Once
}

// NewStdioSink returns a sink over the process stdin/stdout.
func NewStdioSink() *StdioSink {
	return &StdioSink{
		in: make(chan byte, stdioBufSize),
		r:  os.Stdin,
		w:  os.Stdout,
	}
}

// Name implements Sink.
func (s *StdioSink) Name() string { return "USB" }

// Start launches the stdin reader. Safe to call more than once.
func (s *StdioSink) Start() error {
	s.once.Do(func() {
		go s.readLoop()
	})
	return nil
}

// Stop is a no-op: the primary sink lives as long as the process.
func (s *StdioSink) Stop() {}

func (s *StdioSink) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := s.r.Read(buf)
		for i := 0; i < n; i++ {
			s.in <- buf[i]
		}
		if err != nil {
			close(s.in)
			return
		}
	}
}

// Available implements Sink.
func (s *StdioSink) Available() int { return len(s.in) }

// ReadByte implements Sink.
func (s *StdioSink) ReadByte() (byte, bool) {
	select {
	case b, ok := <-s.in:
		return b, ok
	default:
		return 0, false
	}
}

// WriteAvailable implements Sink. The primary sink always accepts.
func (s *StdioSink) WriteAvailable() int { return 1 << 20 }

// Write implements Sink, blocking on the terminal if it must.
func (s *StdioSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}
