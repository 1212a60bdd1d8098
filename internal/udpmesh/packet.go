// ABOUTME: Wire format: packet header and the per-type payload codecs.
// ABOUTME: Everything is little-endian fixed-field encoding over UDP datagrams.

package udpmesh

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/meshwork-dev/meshterm/internal/codec"
	"github.com/meshwork-dev/meshterm/internal/contact"
)

const (
	wireMagic   = 0x4D
	wireVersion = 1

	ptypeAdvert  = 1
	ptypeText    = 2
	ptypeChannel = 3
	ptypeAck     = 4

	// flagDirect marks a packet routed point to point rather than flooded.
	flagDirect = 0x01

	// maxHops bounds flood re-broadcasts.
	maxHops = 8

	maxNameLen = 255
	maxTextLen = 4096
)

// ErrBadPacket covers any malformed or unverifiable datagram.
var ErrBadPacket = errors.New("udpmesh: bad packet")

// header precedes every datagram payload.
type header struct {
	Type  uint8
	ID    uuid.UUID
	Hops  uint8
	Flags uint8
}

func (h *header) direct() bool { return h.Flags&flagDirect != 0 }

func encodeHeader(w *codec.Writer, h *header) {
	w.Uint8(wireMagic)
	w.Uint8(wireVersion)
	w.Uint8(h.Type)
	w.Bytes(h.ID[:])
	w.Uint8(h.Hops)
	w.Uint8(h.Flags)
}

func decodeHeader(r *codec.Reader) (*header, error) {
	r.Begin()
	var h header
	magic := r.Uint8()
	version := r.Uint8()
	h.Type = r.Uint8()
	r.Bytes(h.ID[:])
	h.Hops = r.Uint8()
	h.Flags = r.Uint8()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrBadPacket)
	}
	if magic != wireMagic || version != wireVersion {
		return nil, fmt.Errorf("%w: magic %#x version %d", ErrBadPacket, magic, version)
	}
	return &h, nil
}

// advertPayload is a self advertisement: identity, position, epoch, and a
// signature binding them. The same bytes double as the business card body.
type advertPayload struct {
	PubKey    [contact.PubKeySize]byte
	Type      uint8
	Timestamp uint32
	Lat, Lon  float64
	Name      string
	Sig       [ed25519.SignatureSize]byte
}

func (a *advertPayload) signedBytes() []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Bytes(a.PubKey[:])
	w.Uint8(a.Type)
	w.Uint32(a.Timestamp)
	w.Float64(a.Lat)
	w.Float64(a.Lon)
	w.PaddedString(a.Name, maxNameLen+1)
	return buf.Bytes()
}

func encodeAdvert(a *advertPayload) []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Bytes(a.PubKey[:])
	w.Uint8(a.Type)
	w.Uint32(a.Timestamp)
	w.Float64(a.Lat)
	w.Float64(a.Lon)
	w.Uint8(uint8(len(a.Name)))
	w.Bytes([]byte(a.Name))
	w.Bytes(a.Sig[:])
	return buf.Bytes()
}

func decodeAdvert(p []byte) (*advertPayload, error) {
	r := codec.NewReader(bytes.NewReader(p))
	r.Begin()
	var a advertPayload
	r.Bytes(a.PubKey[:])
	a.Type = r.Uint8()
	a.Timestamp = r.Uint32()
	a.Lat = r.Float64()
	a.Lon = r.Float64()
	nameLen := int(r.Uint8())
	name := make([]byte, nameLen)
	r.Bytes(name)
	a.Name = string(name)
	r.Bytes(a.Sig[:])
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated advert", ErrBadPacket)
	}
	if !ed25519.Verify(a.PubKey[:], a.signedBytes(), a.Sig[:]) {
		return nil, fmt.Errorf("%w: advert signature", ErrBadPacket)
	}
	return &a, nil
}

// textPayload is a direct text message, signed by the sender.
type textPayload struct {
	Dest      [contact.PubKeySize]byte
	Src       [contact.PubKeySize]byte
	Timestamp uint32
	Text      string
	Sig       [ed25519.SignatureSize]byte
}

func (t *textPayload) signedBytes() []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Bytes(t.Dest[:])
	w.Bytes(t.Src[:])
	w.Uint32(t.Timestamp)
	w.Bytes([]byte(t.Text))
	return buf.Bytes()
}

func encodeText(t *textPayload) []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Bytes(t.Dest[:])
	w.Bytes(t.Src[:])
	w.Uint32(t.Timestamp)
	w.Uint32(uint32(len(t.Text)))
	w.Bytes([]byte(t.Text))
	w.Bytes(t.Sig[:])
	return buf.Bytes()
}

func decodeText(p []byte) (*textPayload, error) {
	r := codec.NewReader(bytes.NewReader(p))
	r.Begin()
	var t textPayload
	r.Bytes(t.Dest[:])
	r.Bytes(t.Src[:])
	t.Timestamp = r.Uint32()
	textLen := int(r.Uint32())
	if textLen > maxTextLen {
		return nil, fmt.Errorf("%w: text length %d", ErrBadPacket, textLen)
	}
	text := make([]byte, textLen)
	r.Bytes(text)
	t.Text = string(text)
	r.Bytes(t.Sig[:])
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated text", ErrBadPacket)
	}
	if !ed25519.Verify(t.Src[:], t.signedBytes(), t.Sig[:]) {
		return nil, fmt.Errorf("%w: text signature", ErrBadPacket)
	}
	return &t, nil
}

// ackCRC is the correlation value both ends compute independently: the
// sender predicts it when transmitting, the recipient echoes it back.
func ackCRC(src [contact.PubKeySize]byte, timestamp uint32, text string) uint32 {
	var ts [4]byte
	binary.LittleEndian.PutUint32(ts[:], timestamp)
	crc := crc32.NewIEEE()
	crc.Write(src[:])
	crc.Write(ts[:])
	crc.Write([]byte(text))
	return crc.Sum32()
}

func encodeAck(crc uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], crc)
	return buf[:]
}

func decodeAck(p []byte) (uint32, error) {
	if len(p) < 4 {
		return 0, fmt.Errorf("%w: truncated ack", ErrBadPacket)
	}
	return binary.LittleEndian.Uint32(p), nil
}

// channelPayload is a sealed group datagram. The channel is identified by
// trial decryption, never named on the wire.
type channelPayload struct {
	Nonce      [nonceSize]byte
	Ciphertext []byte
}

func encodeChannel(c *channelPayload) []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Bytes(c.Nonce[:])
	w.Uint32(uint32(len(c.Ciphertext)))
	w.Bytes(c.Ciphertext)
	return buf.Bytes()
}

func decodeChannel(p []byte) (*channelPayload, error) {
	r := codec.NewReader(bytes.NewReader(p))
	r.Begin()
	var c channelPayload
	r.Bytes(c.Nonce[:])
	ctLen := int(r.Uint32())
	if ctLen > maxTextLen+64 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrBadPacket, ctLen)
	}
	c.Ciphertext = make([]byte, ctLen)
	r.Bytes(c.Ciphertext)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated channel datagram", ErrBadPacket)
	}
	return &c, nil
}
