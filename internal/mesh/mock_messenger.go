// ABOUTME: Mock Messenger implementation for testing
// ABOUTME: Records sends in memory so shell tests run without a transport

package mesh

import (
	"time"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/contact"
)

// SentText records one SendText call.
type SentText struct {
	To        *contact.Contact
	Timestamp uint32
	Text      string
}

// SentChannelText records one SendChannelText call.
type SentChannelText struct {
	Channel   *channel.RuntimeChannel
	NodeName  string
	Text      string
	Timestamp uint32
}

// MockMessenger is an in-memory Messenger implementation for testing.
type MockMessenger struct {
	Texts        []SentText
	ChannelTexts []SentChannelText
	ZeroHopSent  int
	FloodSent    int
	Imported     [][]byte

	// AdvertErr, SendErr and ImportErr, when set, are returned by the
	// corresponding methods.
	AdvertErr error
	SendErr   error
	ImportErr error

	// NextResult shapes the TextSend returned by SendText.
	NextResult TextSend
}

// NewMockMessenger creates a new MockMessenger whose sends succeed flood-routed.
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		NextResult: TextSend{Result: SentFlood, AckCRC: 0xCAFE, Timeout: 8 * time.Second},
	}
}

func (m *MockMessenger) CreateSelfAdvert(name string, lat, lon float64) ([]byte, error) {
	if m.AdvertErr != nil {
		return nil, m.AdvertErr
	}
	return []byte("advert:" + name), nil
}

func (m *MockMessenger) SendAdvertZeroHop(pkt []byte) error {
	if m.AdvertErr != nil {
		return m.AdvertErr
	}
	m.ZeroHopSent++
	return nil
}

func (m *MockMessenger) SendAdvertFlood(pkt []byte, delay time.Duration) error {
	if m.AdvertErr != nil {
		return m.AdvertErr
	}
	m.FloodSent++
	return nil
}

func (m *MockMessenger) SendText(to *contact.Contact, timestamp uint32, text string) (*TextSend, error) {
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.Texts = append(m.Texts, SentText{To: to, Timestamp: timestamp, Text: text})
	r := m.NextResult
	if to.HasPath() {
		r.Result = SentDirect
	}
	return &r, nil
}

func (m *MockMessenger) SendChannelText(ch *channel.RuntimeChannel, nodeName, text string, timestamp uint32) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.ChannelTexts = append(m.ChannelTexts, SentChannelText{
		Channel: ch, NodeName: nodeName, Text: text, Timestamp: timestamp,
	})
	return nil
}

func (m *MockMessenger) ImportContact(card []byte) error {
	if m.ImportErr != nil {
		return m.ImportErr
	}
	m.Imported = append(m.Imported, append([]byte(nil), card...))
	return nil
}
