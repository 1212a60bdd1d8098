// ABOUTME: Secondary console sink served over a TCP listener, the host-build
// ABOUTME: stand-in for an auxiliary serial port. One client at a time.

package console

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// tcpOutBufSize bounds queued output per TCP sink; overflow is dropped.
const tcpOutBufSize = 4096

// tcpInBufSize bounds buffered input from the TCP client.
const tcpInBufSize = 256

// TCPSink exposes the console on a TCP address, for attaching a second
// terminal the way a hardware build would attach Serial1/Serial2. Output is
// best-effort: when the client reads too slowly, bytes are dropped.
type TCPSink struct {
	name string
	addr string

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	in       chan byte
	out      chan byte
	done     chan struct{}
	logger   *slog.Logger
}

// NewTCPSink returns a sink named name that will listen on addr once
// started.
func NewTCPSink(name, addr string) *TCPSink {
	return &TCPSink{
		name:   name,
		addr:   addr,
		logger: slog.Default().With("component", "console", "sink", name),
	}
}

// Name implements Sink.
func (s *TCPSink) Name() string { return s.name }

// Start listens on the configured address and begins accepting clients.
func (s *TCPSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = l
	s.in = make(chan byte, tcpInBufSize)
	s.out = make(chan byte, tcpOutBufSize)
	s.done = make(chan struct{})
	go s.acceptLoop(l, s.done)
	s.logger.Info("console sink listening", "addr", s.addr)
	return nil
}

// Stop closes the listener and any connected client.
func (s *TCPSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return
	}
	close(s.done)
	s.listener.Close()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.listener = nil
}

func (s *TCPSink) acceptLoop(l net.Listener, done chan struct{}) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-done:
			default:
				s.logger.Warn("accept failed", "error", err)
			}
			return
		}
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close() // newest client wins
		}
		s.conn = conn
		s.mu.Unlock()
		go s.readLoop(conn)
		go s.writeLoop(conn, done)
	}
}

func (s *TCPSink) readLoop(conn net.Conn) {
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case s.in <- buf[i]:
			default: // input buffer full, drop
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *TCPSink) writeLoop(conn net.Conn, done chan struct{}) {
	buf := make([]byte, 0, 64)
	for {
		select {
		case <-done:
			return
		case b := <-s.out:
			buf = append(buf[:0], b)
		drain:
			for len(buf) < cap(buf) {
				select {
				case b := <-s.out:
					buf = append(buf, b)
				default:
					break drain
				}
			}
			if _, err := conn.Write(buf); err != nil {
				return
			}
		}
	}
}

// Available implements Sink.
func (s *TCPSink) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return len(s.in)
}

// ReadByte implements Sink.
func (s *TCPSink) ReadByte() (byte, bool) {
	s.mu.Lock()
	in := s.in
	s.mu.Unlock()
	if in == nil {
		return 0, false
	}
	select {
	case b := <-in:
		return b, true
	default:
		return 0, false
	}
}

// WriteAvailable implements Sink.
func (s *TCPSink) WriteAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.conn == nil {
		return 0
	}
	return cap(s.out) - len(s.out)
}

// Write implements Sink, queueing what fits and dropping the rest.
func (s *TCPSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	if out == nil {
		return len(p), nil
	}
	for _, b := range p {
		select {
		case out <- b:
		default: // outbound buffer full, drop
		}
	}
	return len(p), nil
}
