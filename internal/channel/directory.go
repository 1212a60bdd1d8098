// ABOUTME: Channel directory reconciling persisted slots with the dense runtime list.
// ABOUTME: Handles slot add/update/remove, key derivation, and name resolution.

package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meshwork-dev/meshterm/internal/codec"
)

const (
	// MaxChannels is the size of the runtime list: the built-in Public
	// channel plus MaxChannels-1 user slots.
	MaxChannels = 4

	// MaxNameLen is the longest channel name accepted, in bytes.
	MaxNameLen = 31

	// BuiltinName is the name of the always-present channel at index 0.
	BuiltinName = "Public"

	// builtinAlias also resolves to the built-in channel.
	builtinAlias = "pub"

	// builtinPSK is the well-known pre-shared key of the Public channel.
	builtinPSK = "izOH6cXN6mrJ5e26oRXNcg=="
)

// ErrDirectoryFull is returned by AddOrUpdate when every user slot is active.
var ErrDirectoryFull = errors.New("channel directory full")

// ErrNameTooLong is returned when a channel name exceeds MaxNameLen bytes.
var ErrNameTooLong = errors.New("channel name too long")

// ErrReservedName is returned when a channel name collides with the built-in
// channel.
var ErrReservedName = errors.New("channel name is reserved")

// Slot is one persisted channel position. Active marks occupancy; an
// inactive slot is free for reuse. KeyHex is empty for hashtag channels,
// whose key is derived from the name instead.
type Slot struct {
	Name   string
	KeyHex string
	Muted  bool
	Active bool
}

// Slots is the persisted user-channel array, one short of MaxChannels
// because index 0 of the runtime list is the built-in channel.
type Slots [MaxChannels - 1]Slot

// RuntimeChannel is one entry of the dense boot-derived channel list.
type RuntimeChannel struct {
	Name      string
	Key       []byte // raw symmetric key, 16 or 32 bytes
	PSK       string // Key in the on-air base64 encoding
	SlotIndex int    // persisted slot backing this entry, -1 for built-in
}

// Directory derives and serves the runtime channel list for a set of
// persisted slots. The runtime list is rebuilt only by Rebuild; slot
// mutations take effect on the next rebuild (in practice, next boot).
type Directory struct {
	slots        *Slots
	runtime      []*RuntimeChannel
	builtinMuted bool
	logger       *slog.Logger
}

// NewDirectory returns a Directory over the given persisted slots. The
// runtime list is empty until Rebuild is called.
func NewDirectory(slots *Slots) *Directory {
	return &Directory{
		slots:  slots,
		logger: slog.Default().With("component", "channels"),
	}
}

// AddOrUpdate stores key material for a channel name. An existing active
// slot with the same name (case-insensitive) has its key replaced in place;
// otherwise the first inactive slot is claimed. Hashtag names carry no key.
// The runtime list is not touched.
func (d *Directory) AddOrUpdate(name, keyHex string) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if strings.EqualFold(name, BuiltinName) || strings.EqualFold(name, builtinAlias) {
		return ErrReservedName
	}
	if !strings.HasPrefix(name, "#") {
		if _, err := codec.DecodeKey(keyHex); err != nil {
			return fmt.Errorf("channel key: %w", err)
		}
	} else {
		keyHex = "" // hashtag channels derive their key from the name
	}

	for i := range d.slots {
		s := &d.slots[i]
		if s.Active && strings.EqualFold(s.Name, name) {
			s.KeyHex = keyHex
			return nil
		}
	}
	for i := range d.slots {
		s := &d.slots[i]
		if !s.Active {
			*s = Slot{Name: name, KeyHex: keyHex, Active: true}
			return nil
		}
	}
	return ErrDirectoryFull
}

// Remove deactivates the active slot matching name (case-insensitive) and
// reports whether one was found. The built-in channel cannot be removed.
// The runtime list is not touched.
func (d *Directory) Remove(name string) bool {
	if strings.EqualFold(name, BuiltinName) {
		return false
	}
	for i := range d.slots {
		s := &d.slots[i]
		if s.Active && strings.EqualFold(s.Name, name) {
			s.Active = false
			return true
		}
	}
	return false
}

// Rebuild derives the dense runtime list from the current slots: the
// built-in channel first, then every active slot in slot order whose key
// derives cleanly. A slot with invalid key material is skipped and logged,
// not an error.
func (d *Directory) Rebuild() error {
	key, err := DecodePSK(builtinPSK)
	if err != nil {
		return fmt.Errorf("built-in channel key: %w", err)
	}
	runtime := make([]*RuntimeChannel, 0, MaxChannels)
	runtime = append(runtime, &RuntimeChannel{
		Name:      BuiltinName,
		Key:       key,
		PSK:       builtinPSK,
		SlotIndex: -1,
	})

	for i := range d.slots {
		s := &d.slots[i]
		if !s.Active || len(runtime) >= MaxChannels {
			continue
		}
		rc := deriveSlot(i, s)
		if rc == nil {
			d.logger.Warn("skipping channel with underivable key", "name", s.Name, "slot", i)
			continue
		}
		runtime = append(runtime, rc)
	}
	d.runtime = runtime
	return nil
}

// deriveSlot derives the runtime entry for one slot, or nil if its key
// material is missing or invalid.
func deriveSlot(index int, s *Slot) *RuntimeChannel {
	if strings.HasPrefix(s.Name, "#") {
		key := DeriveHashtagKey(s.Name)
		return &RuntimeChannel{Name: s.Name, Key: key, PSK: EncodePSK(key), SlotIndex: index}
	}
	if s.KeyHex == "" {
		return nil
	}
	key, err := codec.DecodeKey(s.KeyHex)
	if err != nil {
		return nil
	}
	return &RuntimeChannel{Name: s.Name, Key: key, PSK: EncodePSK(key), SlotIndex: index}
}

// Resolve returns the current runtime index for a channel name, or -1.
// Matching is case-insensitive; "Public" and "pub" hit the built-in channel
// first. With duplicate persisted names the earliest slot wins.
func (d *Directory) Resolve(name string) int {
	if strings.EqualFold(name, BuiltinName) || strings.EqualFold(name, builtinAlias) {
		return 0
	}
	for i, rc := range d.runtime {
		if i == 0 {
			continue
		}
		if strings.EqualFold(rc.Name, name) {
			return i
		}
	}
	return -1
}

// NameOf returns the name at a runtime index, or "" when out of range.
func (d *Directory) NameOf(idx int) string {
	if idx < 0 || idx >= len(d.runtime) {
		return ""
	}
	return d.runtime[idx].Name
}

// Runtime returns the runtime entry at idx, or nil when out of range.
func (d *Directory) Runtime(idx int) *RuntimeChannel {
	if idx < 0 || idx >= len(d.runtime) {
		return nil
	}
	return d.runtime[idx]
}

// NumRuntime returns the number of live runtime channels.
func (d *Directory) NumRuntime() int {
	return len(d.runtime)
}

// Names returns the built-in name followed by every active slot name, for
// listing and autocompletion. Unkeyed active slots are included: they exist
// even when absent from the runtime list.
func (d *Directory) Names() []string {
	names := []string{BuiltinName}
	for i := range d.slots {
		if d.slots[i].Active {
			names = append(names, d.slots[i].Name)
		}
	}
	return names
}

// SetMuted sets the mute flag for a runtime index and reports whether the
// index was valid. Slot-backed channels persist the flag in their slot; the
// built-in channel's mute is runtime-only.
func (d *Directory) SetMuted(idx int, muted bool) bool {
	rc := d.Runtime(idx)
	if rc == nil {
		return false
	}
	if rc.SlotIndex < 0 {
		d.builtinMuted = muted
	} else {
		d.slots[rc.SlotIndex].Muted = muted
	}
	return true
}

// IsMuted reports the mute flag for a runtime index.
func (d *Directory) IsMuted(idx int) bool {
	rc := d.Runtime(idx)
	if rc == nil {
		return false
	}
	if rc.SlotIndex < 0 {
		return d.builtinMuted
	}
	return d.slots[rc.SlotIndex].Muted
}

// Slot returns the persisted slot at index i, for listings.
func (d *Directory) Slot(i int) *Slot {
	if i < 0 || i >= len(d.slots) {
		return nil
	}
	return &d.slots[i]
}
