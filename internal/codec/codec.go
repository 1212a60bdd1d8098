// ABOUTME: Field-by-field encoder/decoder for fixed-width binary records.
// ABOUTME: Writer and Reader carry a sticky error so call sites stay linear.

package codec

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrShortRead is returned by Reader.Err when a record could not be read in
// full. A short read at the very first field of a record is reported as
// io.EOF instead, so callers can distinguish "no more records" from a
// truncated record mid-stream.
var ErrShortRead = errors.New("short read")

// Writer encodes fixed-width fields to an underlying stream. The first write
// error sticks; subsequent calls are no-ops. Multi-byte integers and floats
// are little-endian.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer encoding to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, or nil.
func (w *Writer) Err() error { return w.err }

// Bytes writes b as-is.
func (w *Writer) Bytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// PaddedString writes s into a fixed field of the given width, NUL-padded.
// Strings longer than the field are truncated; the field is not guaranteed
// to be NUL-terminated in that case.
func (w *Writer) PaddedString(s string, width int) {
	field := make([]byte, width)
	copy(field, s)
	w.Bytes(field)
}

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) {
	w.Bytes([]byte{v})
}

// Int8 writes a single signed byte.
func (w *Writer) Int8(v int8) {
	w.Uint8(uint8(v))
}

// Bool writes 1 for true, 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Uint32 writes a little-endian 32-bit integer.
func (w *Writer) Uint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Bytes(buf[:])
}

// Int32 writes a little-endian signed 32-bit integer.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

// Float32 writes a little-endian IEEE-754 single.
func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// Float64 writes a little-endian IEEE-754 double.
func (w *Writer) Float64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Bytes(buf[:])
}

// Reader decodes fixed-width fields from an underlying stream. The first
// read error sticks. If the stream ends before the first field of a record,
// Err reports io.EOF; a partial record reports ErrShortRead.
type Reader struct {
	r       io.Reader
	err     error
	started bool
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// AtEOF reports whether the reader stopped at a clean end of stream.
func (r *Reader) AtEOF() bool { return r.err == io.EOF }

// Begin marks the start of a new record, so a clean EOF can be told apart
// from a truncated record.
func (r *Reader) Begin() {
	r.started = false
}

// Bytes reads exactly len(b) bytes into b.
func (r *Reader) Bytes(b []byte) {
	if r.err != nil {
		return
	}
	_, err := io.ReadFull(r.r, b)
	switch {
	case err == nil:
		r.started = true
	case err == io.EOF && !r.started:
		r.err = io.EOF
	default:
		r.err = ErrShortRead
	}
}

// PaddedString reads a fixed-width NUL-padded field and returns the string
// up to the first NUL. A field of exactly width non-NUL bytes is taken
// whole; the field is treated as a buffer, never trusted to be terminated.
func (r *Reader) PaddedString(width int) string {
	field := make([]byte, width)
	r.Bytes(field)
	if r.err != nil {
		return ""
	}
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	var buf [1]byte
	r.Bytes(buf[:])
	return buf[0]
}

// Int8 reads a single signed byte.
func (r *Reader) Int8() int8 {
	return int8(r.Uint8())
}

// Bool reads a byte and reports whether it is non-zero.
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Uint32 reads a little-endian 32-bit integer.
func (r *Reader) Uint32() uint32 {
	var buf [4]byte
	r.Bytes(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Int32 reads a little-endian signed 32-bit integer.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Float32 reads a little-endian IEEE-754 single.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// Float64 reads a little-endian IEEE-754 double.
func (r *Reader) Float64() float64 {
	var buf [8]byte
	r.Bytes(buf[:])
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
}
