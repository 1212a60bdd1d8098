// ABOUTME: Tests for the MultiSink console multiplexer.
// ABOUTME: Covers priority reads, best-effort fan-out, port enable/disable rules.

package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_FansOutToEnabledSinks(t *testing.T) {
	primary := NewMockSink("USB")
	aux := NewMockSink("Serial1")
	m := NewMultiSink(primary, aux)

	m.Print("hello")
	assert.Equal(t, "hello", primary.Output.String())
	assert.Empty(t, aux.Output.String(), "disabled sinks receive nothing")

	require.NoError(t, m.EnablePort(1))
	m.Print(" world")
	assert.Equal(t, "hello world", primary.Output.String())
	assert.Equal(t, " world", aux.Output.String())
}

func TestWrite_SecondaryBestEffort(t *testing.T) {
	primary := NewMockSink("USB")
	aux := NewMockSink("Serial1")
	aux.WriteRoom = 3
	m := NewMultiSink(primary, aux)
	require.NoError(t, m.EnablePort(1))

	m.Print("abcdef")
	assert.Equal(t, "abcdef", primary.Output.String(), "primary always takes everything")
	assert.Equal(t, "abc", aux.Output.String(), "overflow silently dropped")
}

func TestRead_PriorityBySinkOrder(t *testing.T) {
	primary := NewMockSink("USB")
	aux := NewMockSink("Serial1")
	m := NewMultiSink(primary, aux)
	require.NoError(t, m.EnablePort(1))

	aux.Feed("z")
	b, ok := m.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte('z'), b)

	primary.Feed("a")
	aux.Feed("b")
	b, ok = m.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte('a'), b, "earlier port wins")

	b, ok = m.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte('b'), b)

	_, ok = m.ReadByte()
	assert.False(t, ok)
}

func TestRead_DisabledSinkIgnored(t *testing.T) {
	primary := NewMockSink("USB")
	aux := NewMockSink("Serial1")
	m := NewMultiSink(primary, aux)

	aux.Feed("x")
	assert.Equal(t, 0, m.Available())
	_, ok := m.ReadByte()
	assert.False(t, ok)
}

func TestPeekByte(t *testing.T) {
	primary := NewMockSink("USB")
	m := NewMultiSink(primary)
	primary.Feed("ab")

	b, ok := m.PeekByte()
	require.True(t, ok)
	assert.Equal(t, byte('a'), b)
	assert.Equal(t, 2, m.Available(), "peek must not consume")

	b, ok = m.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte('a'), b)
	b, ok = m.ReadByte()
	require.True(t, ok)
	assert.Equal(t, byte('b'), b)
}

func TestEnableDisablePorts(t *testing.T) {
	primary := NewMockSink("USB")
	aux := NewMockSink("Serial1")
	m := NewMultiSink(primary, aux)

	assert.True(t, m.IsEnabled(0))
	assert.False(t, m.IsEnabled(1))

	require.NoError(t, m.EnablePort(1))
	assert.True(t, m.IsEnabled(1))
	assert.True(t, aux.Started)

	require.NoError(t, m.DisablePort(1))
	assert.False(t, m.IsEnabled(1))
	assert.True(t, aux.Stopped)

	assert.ErrorIs(t, m.DisablePort(0), ErrPrimaryPort)
	assert.ErrorIs(t, m.EnablePort(2), ErrNoSuchPort, "unconfigured port")
	assert.ErrorIs(t, m.EnablePort(7), ErrNoSuchPort)
	assert.Equal(t, "USB", m.PortName(0))
	assert.Equal(t, "unconfigured", m.PortName(2))
}
