// ABOUTME: In-memory sink for tests: scripted input, captured output.
// ABOUTME: Used by console and shell tests; not compiled into the binary path.

package console

import "bytes"

// MockSink is a scriptable in-memory Sink for tests.
type MockSink struct {
	SinkName string
	Input    []byte
	Output   bytes.Buffer
	// WriteRoom limits best-effort writes; negative means unlimited.
	WriteRoom int
	Started   bool
	Stopped   bool
}

// NewMockSink returns a MockSink with unlimited write room.
func NewMockSink(name string) *MockSink {
	return &MockSink{SinkName: name, WriteRoom: -1}
}

// Feed appends bytes to the pending input.
func (s *MockSink) Feed(in string) {
	s.Input = append(s.Input, in...)
}

// Name implements Sink.
func (s *MockSink) Name() string { return s.SinkName }

// Start implements Sink.
func (s *MockSink) Start() error {
	s.Started = true
	return nil
}

// Stop implements Sink.
func (s *MockSink) Stop() { s.Stopped = true }

// Available implements Sink.
func (s *MockSink) Available() int { return len(s.Input) }

// ReadByte implements Sink.
func (s *MockSink) ReadByte() (byte, bool) {
	if len(s.Input) == 0 {
		return 0, false
	}
	b := s.Input[0]
	s.Input = s.Input[1:]
	return b, true
}

// WriteAvailable implements Sink.
func (s *MockSink) WriteAvailable() int {
	if s.WriteRoom < 0 {
		return 1 << 20
	}
	return s.WriteRoom
}

// Write implements Sink.
func (s *MockSink) Write(p []byte) (int, error) {
	if s.WriteRoom >= 0 {
		if len(p) > s.WriteRoom {
			p = p[:s.WriteRoom]
		}
		s.WriteRoom -= len(p)
	}
	s.Output.Write(p)
	return len(p), nil
}
