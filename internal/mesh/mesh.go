// ABOUTME: Messenger and Events interfaces plus send-result types.
// ABOUTME: The transport owns framing and routing; the shell owns presentation.

package mesh

import (
	"time"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/contact"
)

// SendResult reports how a direct text message went out.
type SendResult int

const (
	// SendFailed means the message could not be transmitted.
	SendFailed SendResult = iota
	// SentFlood means the message went out flood-routed.
	SentFlood
	// SentDirect means the message followed a known direct path.
	SentDirect
)

// TextSend is the outcome of a direct text send: which route was used, the
// CRC the recipient's ACK will carry, and how long to wait for it.
type TextSend struct {
	Result  SendResult
	AckCRC  uint32
	Timeout time.Duration
}

// Messenger is the messaging collaborator the shell drives. All methods are
// called from the shell tick; implementations deliver Events callbacks
// strictly between ticks, never while a handler runs.
type Messenger interface {
	// CreateSelfAdvert builds this node's advertisement packet bytes.
	CreateSelfAdvert(name string, lat, lon float64) ([]byte, error)
	// SendAdvertZeroHop transmits an advert to direct neighbors only.
	SendAdvertZeroHop(pkt []byte) error
	// SendAdvertFlood transmits an advert flood-routed after a delay.
	SendAdvertFlood(pkt []byte, delay time.Duration) error
	// SendText sends text to a contact, direct when a path is known,
	// flooding otherwise.
	SendText(to *contact.Contact, timestamp uint32, text string) (*TextSend, error)
	// SendChannelText sends "<nodeName>: <text>" on a group channel.
	SendChannelText(ch *channel.RuntimeChannel, nodeName, text string, timestamp uint32) error
	// ImportContact ingests an advert packet received out of band (a
	// business card). The bytes are opaque to the shell.
	ImportContact(card []byte) error
}

// AdvertInfo is a received contact advertisement. The consumer owns the
// contact store; the transport never touches it directly.
type AdvertInfo struct {
	PubKey    [contact.PubKeySize]byte
	Name      string
	Type      contact.Type
	Timestamp uint32
	Lat, Lon  float64
	// ZeroHop is set when the advert was heard straight from the
	// neighbor, which establishes a direct path to it.
	ZeroHop bool
}

// TextMessage is a received direct text message, already verified to be
// addressed to this node.
type TextMessage struct {
	From            [contact.PubKeySize]byte
	Direct          bool
	Hops            int
	SenderTimestamp uint32
	Text            string
}

// ChannelMessage is a received group message that opened with one of the
// runtime channel keys.
type ChannelMessage struct {
	ChannelIndex int
	Direct       bool
	Hops         int
	Timestamp    uint32
	Text         string
}

// Events are the receive-side callbacks the transport fires between shell
// ticks. Implementations serialize against their own command handling; the
// transport holds no lock while calling them.
type Events interface {
	// OnAdvert delivers a received (or imported) contact advert.
	OnAdvert(a AdvertInfo)
	// OnMessage delivers direct text addressed to this node.
	OnMessage(m TextMessage)
	// OnChannelMessage delivers group text for a runtime channel index.
	OnChannelMessage(m ChannelMessage)
	// OnAck delivers an ACK CRC; returning true cancels the send timeout.
	OnAck(crc uint32) bool
	// OnSendTimeout fires when a sent message saw no ACK in time.
	OnSendTimeout()
}
