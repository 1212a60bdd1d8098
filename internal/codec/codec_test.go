// ABOUTME: Tests for the fixed-width record codec and hex key helpers.
// ABOUTME: Covers round-trips, byte order, padding, EOF vs short-read, key validation.

package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint8(0x7f)
	w.Int8(-3)
	w.Bool(true)
	w.Uint32(0xdeadbeef)
	w.Int32(-42)
	w.Float32(2.5)
	w.Float64(-123.456)
	w.PaddedString("hello", 8)
	require.NoError(t, w.Err())

	r := NewReader(&buf)
	assert.Equal(t, uint8(0x7f), r.Uint8())
	assert.Equal(t, int8(-3), r.Int8())
	assert.True(t, r.Bool())
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, int32(-42), r.Int32())
	assert.Equal(t, float32(2.5), r.Float32())
	assert.Equal(t, -123.456, r.Float64())
	assert.Equal(t, "hello", r.PaddedString(8))
	require.NoError(t, r.Err())
}

func TestWriter_LittleEndian(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint32(0x01020304)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf.Bytes())
}

func TestPaddedString_Truncates(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.PaddedString("abcdefgh", 4)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte("abcd"), buf.Bytes())

	// A full field with no NUL terminator reads back whole.
	r := NewReader(&buf)
	assert.Equal(t, "abcd", r.PaddedString(4))
	require.NoError(t, r.Err())
}

func TestReader_CleanEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	r.Begin()
	r.Uint32()
	assert.Equal(t, io.EOF, r.Err())
	assert.True(t, r.AtEOF())
}

func TestReader_ShortRecord(t *testing.T) {
	// Two bytes where a record needs five: the first field succeeds, the
	// second fails mid-record.
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02}))
	r.Begin()
	r.Uint8()
	r.Uint32()
	assert.Equal(t, ErrShortRead, r.Err())
	assert.False(t, r.AtEOF())
}

func TestReader_BeginResetsRecordBoundary(t *testing.T) {
	// One full single-byte record, then EOF at the next record boundary.
	r := NewReader(bytes.NewReader([]byte{0xaa}))
	r.Begin()
	assert.Equal(t, uint8(0xaa), r.Uint8())
	require.NoError(t, r.Err())
	r.Begin()
	r.Uint8()
	assert.True(t, r.AtEOF())
}

func TestDecodeKey_RoundTrip(t *testing.T) {
	cases := []string{
		"00000000000000000000000000000000",
		"8b2a9f0d1c3e5a7b9d0f2e4c6a8b0d1f",
		strings.Repeat("a1", 32),
	}
	for _, in := range cases {
		raw, err := DecodeKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, len(in)/2, len(raw))
		assert.Equal(t, strings.ToLower(in), EncodeHex(raw))
	}
}

func TestDecodeKey_UppercaseRoundTrip(t *testing.T) {
	in := "A1B2C3D4E5F6A7B8C9D0E1F2A3B4C5D6"
	raw, err := DecodeKey(in)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(in), EncodeHex(raw))
}

func TestDecodeKey_Rejects(t *testing.T) {
	cases := []string{
		"",
		"abcd",                                // wrong length
		strings.Repeat("0", 33),               // odd, wrong length
		strings.Repeat("0", 31) + "g",         // bad alphabet
		strings.Repeat("0", 63) + "!",         // bad alphabet, 64 chars
		strings.Repeat("0", 48),               // between the two valid sizes
	}
	for _, in := range cases {
		_, err := DecodeKey(in)
		assert.Error(t, err, in)
	}
}

func TestIsHexChar(t *testing.T) {
	for _, c := range []byte("0123456789abcdefABCDEF") {
		assert.True(t, IsHexChar(c), string(c))
	}
	for _, c := range []byte("g!/:@Gz ") {
		assert.False(t, IsHexChar(c), string(c))
	}
}
