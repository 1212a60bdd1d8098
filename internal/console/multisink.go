// ABOUTME: MultiSink console: prioritized input and best-effort fan-out output.
// ABOUTME: Port 0 is the primary sink, always enabled and never droppable.

package console

import (
	"errors"
	"fmt"
)

// NumPorts is the fixed number of console ports.
const NumPorts = 3

// ErrPrimaryPort is returned when trying to disable port 0.
var ErrPrimaryPort = errors.New("primary console port cannot be disabled")

// ErrNoSuchPort is returned for out-of-range or unconfigured port numbers.
var ErrNoSuchPort = errors.New("no such console port")

// Sink is one console endpoint: a stream of operator input bytes and a
// destination for console output.
type Sink interface {
	// Name identifies the sink in the serial command listings.
	Name() string
	// Start brings the sink up. Called when the port is enabled.
	Start() error
	// Stop tears the sink down and releases its resources.
	Stop()
	// Available returns how many input bytes can be read without blocking.
	Available() int
	// ReadByte returns the next input byte; ok is false when none is ready.
	ReadByte() (b byte, ok bool)
	// WriteAvailable returns how many output bytes the sink can currently
	// accept without blocking.
	WriteAvailable() int
	// Write queues p for output. Callers keep p within WriteAvailable for
	// best-effort sinks; the primary sink may block instead.
	Write(p []byte) (int, error)
}

type port struct {
	sink    Sink
	enabled bool
}

// MultiSink multiplexes up to NumPorts console sinks. It implements
// io.Writer for console output; reads take the first enabled sink with
// pending input, in port order.
type MultiSink struct {
	ports   [NumPorts]port
	pending int16 // one-byte peek buffer, -1 when empty
}

// NewMultiSink returns a MultiSink with the given primary sink enabled on
// port 0. Secondary sinks may be nil for unconfigured ports.
func NewMultiSink(primary Sink, secondaries ...Sink) *MultiSink {
	m := &MultiSink{pending: -1}
	m.ports[0] = port{sink: primary, enabled: true}
	for i, s := range secondaries {
		if i+1 >= NumPorts {
			break
		}
		m.ports[i+1].sink = s
	}
	return m
}

// EnablePort enables and starts the sink on port n.
func (m *MultiSink) EnablePort(n int) error {
	if n < 0 || n >= NumPorts || m.ports[n].sink == nil {
		return ErrNoSuchPort
	}
	if m.ports[n].enabled {
		return nil
	}
	if err := m.ports[n].sink.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", m.ports[n].sink.Name(), err)
	}
	m.ports[n].enabled = true
	return nil
}

// DisablePort stops and disables the sink on port n. Port 0 is refused.
func (m *MultiSink) DisablePort(n int) error {
	if n == 0 {
		return ErrPrimaryPort
	}
	if n < 0 || n >= NumPorts || m.ports[n].sink == nil {
		return ErrNoSuchPort
	}
	if m.ports[n].enabled {
		m.ports[n].sink.Stop()
		m.ports[n].enabled = false
	}
	return nil
}

// IsEnabled reports whether port n is enabled.
func (m *MultiSink) IsEnabled(n int) bool {
	return n >= 0 && n < NumPorts && m.ports[n].enabled
}

// IsConfigured reports whether port n has a sink at all.
func (m *MultiSink) IsConfigured(n int) bool {
	return n >= 0 && n < NumPorts && m.ports[n].sink != nil
}

// PortName returns the display name of port n.
func (m *MultiSink) PortName(n int) string {
	if !m.IsConfigured(n) {
		return "unconfigured"
	}
	return m.ports[n].sink.Name()
}

// Available returns the input byte count of the first enabled port with
// pending input, plus any peeked byte.
func (m *MultiSink) Available() int {
	extra := 0
	if m.pending >= 0 {
		extra = 1
	}
	for i := range m.ports {
		if m.ports[i].enabled {
			if n := m.ports[i].sink.Available(); n > 0 {
				return n + extra
			}
		}
	}
	return extra
}

// ReadByte returns the next input byte by port priority.
func (m *MultiSink) ReadByte() (byte, bool) {
	if m.pending >= 0 {
		b := byte(m.pending)
		m.pending = -1
		return b, true
	}
	for i := range m.ports {
		if m.ports[i].enabled && m.ports[i].sink.Available() > 0 {
			if b, ok := m.ports[i].sink.ReadByte(); ok {
				return b, true
			}
		}
	}
	return 0, false
}

// PeekByte returns the next input byte without consuming it.
func (m *MultiSink) PeekByte() (byte, bool) {
	if m.pending >= 0 {
		return byte(m.pending), true
	}
	b, ok := m.ReadByte()
	if ok {
		m.pending = int16(b)
	}
	return b, ok
}

// Write sends p to every enabled sink. The primary sink takes everything;
// secondary sinks take what fits in their outbound buffer and the rest is
// dropped for that sink.
func (m *MultiSink) Write(p []byte) (int, error) {
	if _, err := m.ports[0].sink.Write(p); err != nil {
		return 0, err
	}
	for i := 1; i < NumPorts; i++ {
		if !m.ports[i].enabled {
			continue
		}
		n := m.ports[i].sink.WriteAvailable()
		if n > len(p) {
			n = len(p)
		}
		if n > 0 {
			m.ports[i].sink.Write(p[:n]) // best-effort, drop on full buffer
		}
	}
	return len(p), nil
}

// Print writes s to every enabled sink.
func (m *MultiSink) Print(s string) {
	m.Write([]byte(s))
}

// Printf formats and writes to every enabled sink.
func (m *MultiSink) Printf(format string, args ...any) {
	m.Print(fmt.Sprintf(format, args...))
}

// Println writes s followed by a newline.
func (m *MultiSink) Println(s string) {
	m.Print(s + "\n")
}
