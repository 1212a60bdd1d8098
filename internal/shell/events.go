// ABOUTME: Receive-side event handling: messages, adverts, paths, ACKs.
// ABOUTME: Implements mesh.Events; callbacks serialize against shell ticks.

package shell

import (
	"time"

	"github.com/meshwork-dev/meshterm/internal/codec"
	"github.com/meshwork-dev/meshterm/internal/contact"
	"github.com/meshwork-dev/meshterm/internal/mesh"
	"github.com/meshwork-dev/meshterm/internal/text"
)

// clockSyncText is the special message body that adjusts the clock to the
// sender's timestamp.
const clockSyncText = "clock sync"

// OnAdvert updates the contact store from an advert, announces it unless
// adverts are muted, and persists the store.
func (s *Shell) OnAdvert(a mesh.AdvertInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.contacts.Lookup(a.PubKey)
	pathEstablished := false
	if c == nil {
		nc := contact.Contact{
			PubKey:     a.PubKey,
			Name:       a.Name,
			Type:       a.Type,
			OutPathLen: -1,
			LastAdvert: a.Timestamp,
		}
		if !s.contacts.Add(&nc) {
			s.logger.Warn("contact store full, dropping advert", "name", a.Name)
			return
		}
		c = s.contacts.Lookup(a.PubKey)
	} else {
		c.Name = a.Name
		c.Type = a.Type
		c.LastAdvert = a.Timestamp
	}
	if a.ZeroHop && c.OutPathLen != 0 {
		c.OutPathLen = 0
		pathEstablished = true
	}

	if !s.prefs.MuteAdverts {
		s.console.Print("\r\n")
		s.console.Printf("ADVERT from -> %s | type: %s | public key: %s\n",
			c.Name, c.Type, codec.EncodeHex(c.PubKey[:]))
		s.redrawPrompt()
	}
	if pathEstablished {
		s.console.Print("\r\n")
		s.console.Printf("PATH to: %s, path_len=%d\n", c.Name, c.OutPathLen)
		s.redrawPrompt()
	}
	s.saveContacts()
}

// OnMessage prints a direct text message from a known contact and handles
// the clock sync text. Messages from unknown senders are dropped.
func (s *Shell) OnMessage(m mesh.TextMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.contacts.Lookup(m.From)
	if from == nil {
		s.logger.Debug("message from unknown sender", "pubkey", codec.EncodeHex(m.From[:]))
		return
	}
	route := "FLOOD"
	if m.Direct {
		route = "DIRECT"
	}
	s.console.Print("\r\n")
	s.console.Printf("(%s) MSG -> from %s | : %s\n", route, from.Name, text.RemoveDiacritics(m.Text))
	s.redrawPrompt()

	if m.Text == clockSyncText {
		s.setClock(m.SenderTimestamp + 1)
	}
}

// OnChannelMessage prints a group message unless its channel is muted.
func (s *Shell) OnChannelMessage(m mesh.ChannelMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir.IsMuted(m.ChannelIndex) {
		return
	}
	name := s.dir.NameOf(m.ChannelIndex)
	if name == "" {
		name = "UNKNOWN"
	}
	s.console.Print("\r\n")
	if m.Direct {
		s.console.Printf("[%s] DIRECT | %s\n", name, text.RemoveDiacritics(m.Text))
	} else {
		s.console.Printf("[%s] FLOOD (hops %d) | %s\n", name, m.Hops, text.RemoveDiacritics(m.Text))
	}
	s.redrawPrompt()
}

// OnAck reports the round trip when the CRC matches the outstanding send.
// The same ACK can arrive more than once; only the first one counts.
func (s *Shell) OnAck(crc uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expectedAckCRC == 0 || crc != s.expectedAckCRC {
		return false
	}
	s.console.Print("\r\n")
	s.console.Printf("   Got ACK! (round trip: %d millis)\n", time.Since(s.lastSentAt).Milliseconds())
	s.redrawPrompt()
	s.expectedAckCRC = 0
	return true
}

// OnSendTimeout reports that a sent message saw no ACK in time.
func (s *Shell) OnSendTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.console.Println("   ERROR: timed out, no ACK.")
}
