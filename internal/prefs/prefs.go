// ABOUTME: NodePrefs record with compiled-in defaults and binary load/save.
// ABOUTME: One fixed-size record, rewritten whole after every mutating command.

package prefs

import (
	"fmt"
	"io"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/codec"
)

const (
	// NameFieldLen is the fixed width of the node name field.
	NameFieldLen = 32

	// NumSinks is the number of console sinks whose enabled state is
	// persisted (sink 0 is the primary and always enabled).
	NumSinks = 3

	// NoChannel marks that no channel is selected for the ch command.
	NoChannel = -1
)

// Default radio and node settings, applied when no preferences file exists.
const (
	DefaultAirtimeFactor = 2.0
	DefaultNodeName      = "NONAME"
	DefaultFreq          = 915.0
	DefaultBandwidth     = 250
	DefaultSpreadFactor  = 10
	DefaultCodingRate    = 5
	DefaultTxPower       = 20
)

// NodePrefs is the persisted node configuration. One instance exists per
// node; mutating command handlers change it and save it synchronously.
type NodePrefs struct {
	AirtimeFactor float32
	NodeName      string
	NodeLat       float64
	NodeLon       float64
	Freq          float32
	TxPower       uint8
	SF            uint8
	CR            uint8
	BW            float32
	MuteAdverts   bool
	Channels      channel.Slots
	// SelectedChannel is the runtime channel index the ch command sends
	// to: NoChannel for none, 0 for the built-in channel.
	SelectedChannel int32
	SinkEnabled     [NumSinks]bool
}

// Default returns the compiled-in preferences.
func Default() *NodePrefs {
	p := &NodePrefs{
		AirtimeFactor:   DefaultAirtimeFactor,
		NodeName:        DefaultNodeName,
		Freq:            DefaultFreq,
		TxPower:         DefaultTxPower,
		SF:              DefaultSpreadFactor,
		CR:              DefaultCodingRate,
		BW:              DefaultBandwidth,
		SelectedChannel: 0,
	}
	p.SinkEnabled[0] = true
	return p
}

// Read decodes one preferences record from r. Any read failure, including
// a missing or short file, yields the defaults; the fallback is silent.
func Read(r io.Reader) *NodePrefs {
	cr := codec.NewReader(r)
	cr.Begin()
	var p NodePrefs
	p.AirtimeFactor = cr.Float32()
	p.NodeName = cr.PaddedString(NameFieldLen)
	p.NodeLat = cr.Float64()
	p.NodeLon = cr.Float64()
	p.Freq = cr.Float32()
	p.TxPower = cr.Uint8()
	p.SF = cr.Uint8()
	p.CR = cr.Uint8()
	p.BW = cr.Float32()
	p.MuteAdverts = cr.Bool()
	for i := range p.Channels {
		s := &p.Channels[i]
		s.Name = cr.PaddedString(channel.MaxNameLen + 1)
		s.KeyHex = cr.PaddedString(64)
		s.Muted = cr.Bool()
		s.Active = cr.Bool()
	}
	p.SelectedChannel = cr.Int32()
	for i := range p.SinkEnabled {
		p.SinkEnabled[i] = cr.Bool()
	}
	if cr.Err() != nil {
		return Default()
	}
	p.SinkEnabled[0] = true // the primary sink can never be disabled
	return &p
}

// Write encodes the whole record to w.
func (p *NodePrefs) Write(w io.Writer) error {
	cw := codec.NewWriter(w)
	cw.Float32(p.AirtimeFactor)
	cw.PaddedString(p.NodeName, NameFieldLen)
	cw.Float64(p.NodeLat)
	cw.Float64(p.NodeLon)
	cw.Float32(p.Freq)
	cw.Uint8(p.TxPower)
	cw.Uint8(p.SF)
	cw.Uint8(p.CR)
	cw.Float32(p.BW)
	cw.Bool(p.MuteAdverts)
	for i := range p.Channels {
		s := &p.Channels[i]
		cw.PaddedString(s.Name, channel.MaxNameLen+1)
		cw.PaddedString(s.KeyHex, 64)
		cw.Bool(s.Muted)
		cw.Bool(s.Active)
	}
	cw.Int32(p.SelectedChannel)
	for i := range p.SinkEnabled {
		cw.Bool(p.SinkEnabled[i])
	}
	if err := cw.Err(); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
