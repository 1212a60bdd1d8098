// ABOUTME: UDP broadcast transport implementing mesh.Messenger.
// ABOUTME: Handles flood dedupe, ACK timers, and receive-side dispatch.

package udpmesh

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/codec"
	"github.com/meshwork-dev/meshterm/internal/contact"
	"github.com/meshwork-dev/meshterm/internal/dedupe"
	"github.com/meshwork-dev/meshterm/internal/identity"
	"github.com/meshwork-dev/meshterm/internal/mesh"
)

// Send timeout model: a base window plus a per-byte airtime stand-in,
// multiplied up for flood routes and per hop for direct routes.
const (
	defaultAckTimeoutBase = 500 * time.Millisecond
	floodTimeoutFactor    = 16
	directPerHopFactor    = 6
	directPerHopExtra     = 250 * time.Millisecond
	nominalByteAirtime    = time.Millisecond

	defaultDedupeWindow = 5 * time.Minute
	dedupeCacheSize     = 4096

	headerSize = 2 + 1 + 16 + 1 + 1
)

// ErrNotStarted is returned when sending before Start.
var ErrNotStarted = errors.New("udpmesh: transport not started")

// Config holds the transport addresses and tunables. Zero durations take
// the defaults.
type Config struct {
	ListenAddr    string
	BroadcastAddr string

	AckTimeoutBase time.Duration
	DedupeWindow   time.Duration
}

// Transport is a mesh.Messenger over UDP broadcast.
type Transport struct {
	cfg    Config
	id     *identity.LocalIdentity
	dir    *channel.Directory
	clock  mesh.Clock
	events mesh.Events
	seen   *dedupe.Cache
	logger *slog.Logger

	ackBase time.Duration

	// sendFn broadcasts one encoded datagram; replaced in tests.
	sendFn func([]byte) error

	conn  *net.UDPConn
	baddr *net.UDPAddr

	mu      sync.Mutex
	pending map[uint32]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// New returns an unstarted transport. SetEvents must be called before
// Start; the directory's runtime list must not change afterwards.
func New(cfg Config, id *identity.LocalIdentity, dir *channel.Directory, clock mesh.Clock) *Transport {
	if cfg.AckTimeoutBase <= 0 {
		cfg.AckTimeoutBase = defaultAckTimeoutBase
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = defaultDedupeWindow
	}
	t := &Transport{
		cfg:     cfg,
		id:      id,
		dir:     dir,
		clock:   clock,
		seen:    dedupe.New(cfg.DedupeWindow, dedupeCacheSize),
		logger:  slog.Default().With("component", "udpmesh"),
		ackBase: cfg.AckTimeoutBase,
		pending: make(map[uint32]*time.Timer),
		done:    make(chan struct{}),
	}
	t.sendFn = func([]byte) error { return ErrNotStarted }
	return t
}

// SetEvents wires the receive-side callbacks.
func (t *Transport) SetEvents(ev mesh.Events) { t.events = ev }

// Start binds the listen socket and begins receiving.
func (t *Transport) Start() error {
	laddr, err := net.ResolveUDPAddr("udp", t.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolving listen addr: %w", err)
	}
	baddr, err := net.ResolveUDPAddr("udp", t.cfg.BroadcastAddr)
	if err != nil {
		return fmt.Errorf("resolving broadcast addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("binding mesh socket: %w", err)
	}
	t.conn = conn
	t.baddr = baddr
	t.sendFn = func(p []byte) error {
		_, err := t.conn.WriteToUDP(p, t.baddr)
		return err
	}

	t.wg.Add(1)
	go t.readLoop()
	t.logger.Info("mesh transport up", "listen", t.cfg.ListenAddr, "broadcast", t.cfg.BroadcastAddr)
	return nil
}

// Stop tears down the socket, pending timers, and the dedupe cache.
func (t *Transport) Stop() {
	close(t.done)
	if t.conn != nil {
		t.conn.Close()
	}
	t.wg.Wait()

	t.mu.Lock()
	for crc, timer := range t.pending {
		timer.Stop()
		delete(t.pending, crc)
	}
	t.mu.Unlock()
	t.seen.Close()
}

// CreateSelfAdvert builds this node's signed advertisement bytes.
func (t *Transport) CreateSelfAdvert(name string, lat, lon float64) ([]byte, error) {
	a := &advertPayload{
		PubKey:    t.id.PubKey,
		Type:      uint8(contact.TypeChat),
		Timestamp: t.clock.Now(),
		Lat:       lat,
		Lon:       lon,
		Name:      name,
	}
	copy(a.Sig[:], t.id.Sign(a.signedBytes()))
	return encodeAdvert(a), nil
}

// SendAdvertZeroHop broadcasts an advert to direct neighbors only.
func (t *Transport) SendAdvertZeroHop(pkt []byte) error {
	return t.broadcast(ptypeAdvert, pkt, 0, flagDirect)
}

// SendAdvertFlood broadcasts an advert flood-routed after a delay.
func (t *Transport) SendAdvertFlood(pkt []byte, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		select {
		case <-t.done:
			return
		default:
		}
		if err := t.broadcast(ptypeAdvert, pkt, 0, 0); err != nil {
			t.logger.Error("flood advert send", "error", err)
		}
	})
	return nil
}

// SendText sends signed direct text, flood-routed unless a path is known,
// and arms the ACK timeout timer.
func (t *Transport) SendText(to *contact.Contact, timestamp uint32, text string) (*mesh.TextSend, error) {
	tp := &textPayload{
		Dest:      to.PubKey,
		Src:       t.id.PubKey,
		Timestamp: timestamp,
		Text:      text,
	}
	copy(tp.Sig[:], t.id.Sign(tp.signedBytes()))
	payload := encodeText(tp)

	res := &mesh.TextSend{AckCRC: ackCRC(tp.Src, timestamp, text)}
	var flags uint8
	if to.HasPath() {
		flags = flagDirect
		res.Result = mesh.SentDirect
		res.Timeout = t.directTimeout(len(payload), int(to.OutPathLen))
	} else {
		res.Result = mesh.SentFlood
		res.Timeout = t.floodTimeout(len(payload))
	}

	if err := t.broadcast(ptypeText, payload, 0, flags); err != nil {
		return &mesh.TextSend{Result: mesh.SendFailed}, err
	}
	t.armAckTimer(res.AckCRC, res.Timeout)
	return res, nil
}

// SendChannelText seals "<nodeName>: <text>" with the channel key and
// floods it.
func (t *Transport) SendChannelText(ch *channel.RuntimeChannel, nodeName, text string, timestamp uint32) error {
	body := fmt.Sprintf("%s: %s", nodeName, text)
	cp, err := sealChannelText(ch.Key, timestamp, body)
	if err != nil {
		return err
	}
	return t.broadcast(ptypeChannel, encodeChannel(cp), 0, 0)
}

// ImportContact ingests a business card body: the same signed advert bytes
// that go on the air.
func (t *Transport) ImportContact(card []byte) error {
	a, err := decodeAdvert(card)
	if err != nil {
		return err
	}
	t.dispatchAdvert(a, false)
	return nil
}

// broadcast frames a payload with a fresh packet ID and sends it. Our own
// ID is marked seen so the looped-back datagram is dropped.
func (t *Transport) broadcast(ptype uint8, payload []byte, hops, flags uint8) error {
	h := &header{Type: ptype, ID: uuid.New(), Hops: hops, Flags: flags}
	t.seen.Mark(h.ID)
	return t.sendFn(frame(h, payload))
}

func frame(h *header, payload []byte) []byte {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	encodeHeader(w, h)
	w.Bytes(payload)
	return buf.Bytes()
}

// reflood re-broadcasts a flood packet with its original ID and a bumped
// hop count. Receivers that already saw the ID drop it.
func (t *Transport) reflood(h *header, payload []byte) {
	if h.direct() || h.Hops+1 >= maxHops {
		return
	}
	fwd := *h
	fwd.Hops++
	if err := t.sendFn(frame(&fwd, payload)); err != nil {
		t.logger.Debug("reflood send", "error", err)
	}
}

func (t *Transport) armAckTimer(crc uint32, timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.pending[crc]; ok {
		prev.Stop()
	}
	t.pending[crc] = time.AfterFunc(timeout, func() {
		t.mu.Lock()
		_, ok := t.pending[crc]
		delete(t.pending, crc)
		t.mu.Unlock()
		if ok {
			t.events.OnSendTimeout()
		}
	})
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 65536)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.logger.Error("mesh socket read", "error", err)
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		t.handleDatagram(pkt)
	}
}

// handleDatagram parses, deduplicates, and dispatches one received packet.
func (t *Transport) handleDatagram(p []byte) {
	if len(p) < headerSize {
		return
	}
	r := codec.NewReader(bytes.NewReader(p[:headerSize]))
	h, err := decodeHeader(r)
	if err != nil {
		t.logger.Debug("dropping datagram", "error", err)
		return
	}
	if t.seen.CheckAndMark(h.ID) {
		return
	}
	payload := p[headerSize:]

	switch h.Type {
	case ptypeAdvert:
		t.handleAdvert(h, payload)
	case ptypeText:
		t.handleText(h, payload)
	case ptypeChannel:
		t.handleChannel(h, payload)
	case ptypeAck:
		t.handleAck(h, payload)
	default:
		t.logger.Debug("dropping datagram", "type", h.Type)
	}
}

func (t *Transport) handleAdvert(h *header, payload []byte) {
	a, err := decodeAdvert(payload)
	if err != nil {
		t.logger.Debug("dropping advert", "error", err)
		return
	}
	if a.PubKey == t.id.PubKey {
		return
	}
	t.dispatchAdvert(a, h.Hops == 0)
	t.reflood(h, payload)
}

func (t *Transport) dispatchAdvert(a *advertPayload, zeroHop bool) {
	t.events.OnAdvert(mesh.AdvertInfo{
		PubKey:    a.PubKey,
		Name:      a.Name,
		Type:      contact.Type(a.Type),
		Timestamp: a.Timestamp,
		Lat:       a.Lat,
		Lon:       a.Lon,
		ZeroHop:   zeroHop,
	})
}

func (t *Transport) handleText(h *header, payload []byte) {
	tp, err := decodeText(payload)
	if err != nil {
		t.logger.Debug("dropping text", "error", err)
		return
	}
	if tp.Dest != t.id.PubKey {
		t.reflood(h, payload)
		return
	}
	t.events.OnMessage(mesh.TextMessage{
		From:            tp.Src,
		Direct:          h.direct(),
		Hops:            int(h.Hops),
		SenderTimestamp: tp.Timestamp,
		Text:            tp.Text,
	})
	ack := encodeAck(ackCRC(tp.Src, tp.Timestamp, tp.Text))
	if err := t.broadcast(ptypeAck, ack, 0, flagDirect); err != nil {
		t.logger.Error("ack send", "error", err)
	}
}

func (t *Transport) handleChannel(h *header, payload []byte) {
	cp, err := decodeChannel(payload)
	if err != nil {
		t.logger.Debug("dropping channel datagram", "error", err)
		return
	}
	for idx := 0; idx < t.dir.NumRuntime(); idx++ {
		rc := t.dir.Runtime(idx)
		ts, body, ok := openChannelText(rc.Key, cp)
		if !ok {
			continue
		}
		t.events.OnChannelMessage(mesh.ChannelMessage{
			ChannelIndex: idx,
			Direct:       h.direct(),
			Hops:         int(h.Hops),
			Timestamp:    ts,
			Text:         body,
		})
		break
	}
	// relayed even when no local key opens it
	t.reflood(h, payload)
}

func (t *Transport) handleAck(h *header, payload []byte) {
	crc, err := decodeAck(payload)
	if err != nil {
		return
	}
	if t.events.OnAck(crc) {
		t.mu.Lock()
		if timer, ok := t.pending[crc]; ok {
			timer.Stop()
			delete(t.pending, crc)
		}
		t.mu.Unlock()
		return
	}
	t.reflood(h, payload)
}

func (t *Transport) floodTimeout(payloadLen int) time.Duration {
	return t.ackBase + floodTimeoutFactor*airtime(payloadLen)
}

func (t *Transport) directTimeout(payloadLen, pathLen int) time.Duration {
	perHop := airtime(payloadLen)*directPerHopFactor + directPerHopExtra
	return t.ackBase + perHop*time.Duration(pathLen+1)
}

// airtime is a stand-in for radio airtime, scaled by payload size.
func airtime(n int) time.Duration {
	return time.Duration(n) * nominalByteAirtime
}
