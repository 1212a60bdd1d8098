// ABOUTME: Capacity-bounded contact store with replace-on-save binary persistence.
// ABOUTME: Loads fixed 141-byte records until EOF or capacity, saves all in insertion order.

package contact

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/meshwork-dev/meshterm/internal/codec"
)

// Store is the bounded set of known contacts. Insertion order is stable
// within a run; it is also the save order.
type Store struct {
	contacts []*Contact
	capacity int
	logger   *slog.Logger
}

// NewStore returns an empty store bounded to capacity contacts. A
// non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		logger:   slog.Default().With("component", "contacts"),
	}
}

// Len returns the number of contacts held.
func (s *Store) Len() int { return len(s.contacts) }

// Capacity returns the maximum number of contacts the store accepts.
func (s *Store) Capacity() int { return s.capacity }

// Add inserts a contact, or updates the existing record with the same
// public key. Returns false when the store is full and the contact is new.
func (s *Store) Add(c *Contact) bool {
	if existing := s.Lookup(c.PubKey); existing != nil {
		*existing = *c
		return true
	}
	if len(s.contacts) >= s.capacity {
		return false
	}
	stored := *c
	s.contacts = append(s.contacts, &stored)
	return true
}

// Lookup returns the contact with the given public key, or nil.
func (s *Store) Lookup(pubKey [PubKeySize]byte) *Contact {
	for _, c := range s.contacts {
		if c.PubKey == pubKey {
			return c
		}
	}
	return nil
}

// ResolveByPrefix returns a contact whose name starts with the given text,
// case-insensitively. With several matches the earliest inserted wins;
// callers that need disambiguation use autocompletion instead.
func (s *Store) ResolveByPrefix(text string) *Contact {
	if text == "" {
		return nil
	}
	for _, c := range s.contacts {
		if hasPrefixFold(c.Name, text) {
			return c
		}
	}
	return nil
}

// MatchPrefix returns the names of every contact matching a
// case-insensitive prefix, in insertion order. An empty prefix matches all
// named contacts.
func (s *Store) MatchPrefix(prefix string) []string {
	var names []string
	for _, c := range s.contacts {
		if c.Name != "" && hasPrefixFold(c.Name, prefix) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Visit calls fn for every contact in insertion order.
func (s *Store) Visit(fn func(*Contact)) {
	for _, c := range s.contacts {
		fn(c)
	}
}

// Recent returns up to n contacts ordered by most recent advert first.
// n <= 0 returns all.
func (s *Store) Recent(n int) []*Contact {
	out := make([]*Contact, len(s.contacts))
	copy(out, s.contacts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAdvert > out[j].LastAdvert
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Load reads fixed-size records from r until a short read or capacity, and
// returns how many contacts were loaded. A truncated trailing record is
// discarded silently; neither condition is an error.
func (s *Store) Load(r io.Reader) int {
	cr := codec.NewReader(r)
	count := 0
	for {
		cr.Begin()
		c, ok := readRecord(cr)
		if !ok {
			if !cr.AtEOF() {
				s.logger.Warn("contacts file ends mid-record, discarding tail")
			}
			break
		}
		if !s.Add(c) {
			s.logger.Warn("contact store full, ignoring remaining records", "capacity", s.capacity)
			break
		}
		count++
	}
	return count
}

// Save writes every contact to w in insertion order. The destination is
// expected to be freshly truncated; a write failure aborts the remaining
// records but whatever was written stays written.
func (s *Store) Save(w io.Writer) error {
	cw := codec.NewWriter(w)
	for _, c := range s.contacts {
		writeRecord(cw, c)
		if err := cw.Err(); err != nil {
			return fmt.Errorf("writing contact %q: %w", c.Name, err)
		}
	}
	return nil
}

// readRecord decodes one record. ok is false when the stream ended (cleanly
// or mid-record).
func readRecord(r *codec.Reader) (*Contact, bool) {
	var c Contact
	r.Bytes(c.PubKey[:])
	c.Name = r.PaddedString(NameFieldLen)
	c.Type = Type(r.Uint8())
	c.Flags = r.Uint8()
	r.Uint8()  // reserved
	r.Uint32() // reserved
	c.OutPathLen = r.Int8()
	c.LastAdvert = r.Uint32()
	r.Bytes(c.OutPath[:])
	if r.Err() != nil {
		return nil, false
	}
	return &c, true
}

// writeRecord encodes one record; reserved fields are always zero.
func writeRecord(w *codec.Writer, c *Contact) {
	w.Bytes(c.PubKey[:])
	w.PaddedString(c.Name, NameFieldLen)
	w.Uint8(uint8(c.Type))
	w.Uint8(c.Flags)
	w.Uint8(0)  // reserved
	w.Uint32(0) // reserved
	w.Int8(c.OutPathLen)
	w.Uint32(c.LastAdvert)
	w.Bytes(c.OutPath[:])
}

// hasPrefixFold reports whether s begins with prefix, ASCII case-folded.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
