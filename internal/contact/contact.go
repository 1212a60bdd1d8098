// ABOUTME: Contact record type, advert type tags, and path buffer constants.
// ABOUTME: Mirrors the fixed on-disk layout shared with other node firmware.

package contact

import (
	"time"
)

const (
	// PubKeySize is the fixed identity public key size.
	PubKeySize = 32

	// NameFieldLen is the fixed on-disk name field width. Names are at
	// most NameFieldLen-1 bytes but the field is not guaranteed to be
	// NUL-terminated; readers truncate defensively.
	NameFieldLen = 32

	// MaxPathLen is the fixed outbound path buffer size.
	MaxPathLen = 64

	// RecordSize is the exact on-disk size of one contact record.
	RecordSize = PubKeySize + NameFieldLen + 1 + 1 + 1 + 4 + 1 + 4 + MaxPathLen

	// DefaultCapacity bounds the store when no capacity is configured.
	DefaultCapacity = 100
)

// Type tags the kind of node a contact advertised itself as.
type Type uint8

// Advert type tags, shared with the wire protocol.
const (
	TypeNone     Type = 0
	TypeChat     Type = 1
	TypeRepeater Type = 2
	TypeRoom     Type = 3
)

// String returns the display name for a contact type.
func (t Type) String() string {
	switch t {
	case TypeChat:
		return "Chat"
	case TypeRepeater:
		return "Repeater"
	case TypeRoom:
		return "Room"
	}
	return "??"
}

// Contact is one known peer. OutPathLen of -1 means no direct path is
// known and sends fall back to flood routing.
type Contact struct {
	PubKey     [PubKeySize]byte
	Name       string
	Type       Type
	Flags      uint8
	OutPathLen int8
	LastAdvert uint32 // epoch seconds of the most recent advert
	OutPath    [MaxPathLen]byte
}

// HasPath reports whether a direct outbound path is known.
func (c *Contact) HasPath() bool {
	return c.OutPathLen >= 0
}

// ResetPath forgets the outbound path so the next send floods.
func (c *Contact) ResetPath() {
	c.OutPathLen = -1
	c.OutPath = [MaxPathLen]byte{}
}

// LastAdvertAge returns how long ago the contact last adverted, given the
// current epoch time. A future-dated advert, from a sender whose clock runs
// ahead, yields a negative age.
func (c *Contact) LastAdvertAge(now uint32) time.Duration {
	return time.Duration(int64(now)-int64(c.LastAdvert)) * time.Second
}
