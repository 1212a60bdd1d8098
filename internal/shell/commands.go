// ABOUTME: Command handlers for the interactive console.
// ABOUTME: Output strings and error wording are part of the operator contract.

package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/codec"
	"github.com/meshwork-dev/meshterm/internal/console"
	"github.com/meshwork-dev/meshterm/internal/mesh"
	"github.com/meshwork-dev/meshterm/internal/prefs"
)

// cardPrefix is the business card envelope scheme.
const cardPrefix = "meshcore://"

func (s *Shell) cmdSend(text string) {
	if s.currRecipient == nil {
		s.console.Println("   ERROR: no recipient selected (use 'to' cmd).")
		return
	}
	res, err := s.messenger.SendText(s.currRecipient, s.clock.Now(), text)
	if err != nil || res.Result == mesh.SendFailed {
		s.console.Println("   ERROR: unable to send.")
		return
	}
	s.lastSentAt = time.Now()
	s.expectedAckCRC = res.AckCRC
	route := "DIRECT"
	if res.Result == mesh.SentFlood {
		route = "FLOOD"
	}
	s.console.Printf("   (message sent - %s)\n", route)
}

func (s *Shell) cmdChannelSend(text string) {
	if s.prefs.SelectedChannel < 0 {
		s.console.Println("   ERROR: No channel selected (use 'chsel <name>')")
		return
	}
	ch := s.dir.Runtime(int(s.prefs.SelectedChannel))
	if ch == nil {
		s.console.Println("   ERROR: Selected channel not initialized!")
		return
	}
	if err := s.messenger.SendChannelText(ch, s.prefs.NodeName, text, s.clock.Now()); err != nil {
		s.console.Println("   ERROR: unable to send")
		return
	}
	s.console.Printf("   Sent to [%s]\n", ch.Name)
}

func (s *Shell) cmdChannelSelect(name string) {
	idx := s.dir.Resolve(name)
	if idx < 0 {
		s.console.Println("   ERROR: Channel not found")
		return
	}
	s.prefs.SelectedChannel = int32(idx)
	s.savePrefs()
	s.console.Printf("   Channel '%s' selected\n", s.dir.NameOf(idx))
}

func (s *Shell) cmdList(arg string) {
	n := 0
	if strings.HasPrefix(arg, " ") {
		n, _ = strconv.Atoi(strings.TrimSpace(arg))
	}
	now := s.clock.Now()
	for _, c := range s.contacts.Recent(n) {
		s.console.Printf("   %s - %s\n", c.Name, relativeTime(c.LastAdvertAge(now)))
	}
}

func (s *Shell) cmdClock(string) {
	dt := time.Unix(int64(s.clock.Now()), 0).UTC()
	s.console.Printf("%02d:%02d - %d/%d/%d UTC\n",
		dt.Hour(), dt.Minute(), dt.Day(), int(dt.Month()), dt.Year())
}

func (s *Shell) cmdSetTime(arg string) {
	secs, _ := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	s.setClock(uint32(secs))
}

// setClock moves the clock forward to timestamp, reporting the outcome.
func (s *Shell) setClock(timestamp uint32) {
	if err := s.clock.Set(timestamp); err != nil {
		s.console.Println("   (ERR: clock cannot go backwards)")
		return
	}
	s.console.Println("   (OK - clock set!)")
}

func (s *Shell) cmdSelectRecipient(prefix string) {
	c := s.contacts.ResolveByPrefix(prefix)
	if c == nil {
		s.console.Println("   Error: Name prefix not found.")
		return
	}
	s.currRecipient = c
	s.console.Printf("   Recipient %s now selected.\n", c.Name)
}

func (s *Shell) cmdShowRecipient(string) {
	if s.currRecipient == nil {
		s.console.Println("   Err: no recipient selected")
		return
	}
	s.console.Printf("   Current: %s\n", s.currRecipient.Name)
}

func (s *Shell) cmdAdvert(string) {
	pkt, err := s.messenger.CreateSelfAdvert(s.prefs.NodeName, s.prefs.NodeLat, s.prefs.NodeLon)
	if err == nil {
		err = s.messenger.SendAdvertZeroHop(pkt)
	}
	if err != nil {
		s.console.Println("   ERR: unable to send")
		return
	}
	s.console.Println("   (advert sent, zero hop).")
}

func (s *Shell) cmdResetPath(string) {
	if s.currRecipient == nil {
		return
	}
	s.currRecipient.ResetPath()
	s.saveContacts()
	s.console.Println("   Done.")
}

func (s *Shell) cmdCard(string) {
	s.console.Printf("Hello %s\n", s.prefs.NodeName)
	pkt, err := s.messenger.CreateSelfAdvert(s.prefs.NodeName, s.prefs.NodeLat, s.prefs.NodeLon)
	if err != nil {
		s.console.Println("  Error")
		return
	}
	s.console.Println("Your MeshCore biz card:")
	s.console.Println(cardPrefix + codec.EncodeHex(pkt))
	s.console.Println("")
}

func (s *Shell) cmdImport(arg string) {
	card := strings.TrimLeft(arg, " ")
	if !strings.HasPrefix(card, cardPrefix) {
		s.console.Println("   error: invalid format")
		return
	}
	card = card[len(cardPrefix):]
	// strip trailing junk after the last hex character
	end := len(card)
	for end > 0 && !codec.IsHexChar(card[end-1]) {
		end--
	}
	card = card[:end]
	raw, err := codec.DecodeHex(card)
	if err != nil || len(raw) == 0 {
		s.console.Println("   error: invalid format")
		return
	}
	if err := s.messenger.ImportContact(raw); err != nil {
		s.console.Println("   error: invalid format")
	}
}

func (s *Shell) cmdSetChannel(params string) {
	fields := strings.Fields(params)

	if len(fields) >= 1 && strings.HasPrefix(fields[0], "#") {
		name := truncate(fields[0], channel.MaxNameLen)
		if err := s.dir.AddOrUpdate(name, ""); err != nil {
			s.console.Println("   ERROR: Channel limit reached")
			return
		}
		s.savePrefs()
		s.console.Printf("   Channel '%s' added (hashtag) - reboot to activate\n", name)
		return
	}

	if len(fields) >= 2 {
		name := truncate(fields[0], channel.MaxNameLen)
		hexKey := fields[1]
		if len(hexKey) != 32 && len(hexKey) != 64 {
			s.console.Println("   ERROR: Key must be 32 (128-bit) or 64 (256-bit) hex characters")
			return
		}
		for i := 0; i < len(hexKey); i++ {
			if !codec.IsHexChar(hexKey[i]) {
				s.console.Println("   ERROR: Invalid hex key")
				return
			}
		}
		switch err := s.dir.AddOrUpdate(name, hexKey); {
		case err == nil:
			s.savePrefs()
			s.console.Printf("   Channel '%s' added (%d-bit) - reboot to activate\n", name, len(hexKey)*4)
		case errors.Is(err, channel.ErrDirectoryFull):
			s.console.Println("   ERROR: Channel limit reached")
		default:
			s.console.Printf("   ERROR: %v\n", err)
		}
		return
	}

	s.console.Println("   Usage: set ch <name> <hex_key>  (32 or 64 hex chars)")
	s.console.Println("          set ch #<name>           (hashtag channel)")
}

func (s *Shell) cmdSet(config string) {
	switch {
	case strings.HasPrefix(config, "af "):
		v, _ := strconv.ParseFloat(strings.TrimSpace(config[3:]), 32)
		s.prefs.AirtimeFactor = float32(v)
		s.savePrefs()
		s.console.Println("  OK")
	case strings.HasPrefix(config, "name "):
		s.prefs.NodeName = truncate(config[5:], prefs.NameFieldLen-1)
		s.savePrefs()
		s.console.Println("  OK")
	case strings.HasPrefix(config, "lat "):
		s.prefs.NodeLat, _ = strconv.ParseFloat(strings.TrimSpace(config[4:]), 64)
		s.savePrefs()
		s.console.Println("  OK")
	case strings.HasPrefix(config, "lon "):
		s.prefs.NodeLon, _ = strconv.ParseFloat(strings.TrimSpace(config[4:]), 64)
		s.savePrefs()
		s.console.Println("  OK")
	case strings.HasPrefix(config, "tx "):
		v, _ := strconv.Atoi(strings.TrimSpace(config[3:]))
		s.prefs.TxPower = uint8(v)
		s.savePrefs()
		s.console.Println("  OK - reboot to apply")
	case strings.HasPrefix(config, "freq "):
		v, _ := strconv.ParseFloat(strings.TrimSpace(config[5:]), 32)
		s.prefs.Freq = float32(v)
		s.savePrefs()
		s.console.Println("  OK - reboot to apply")
	case strings.HasPrefix(config, "sf "):
		v, _ := strconv.Atoi(strings.TrimSpace(config[3:]))
		s.prefs.SF = uint8(v)
		s.savePrefs()
		s.console.Println("  OK - reboot to apply")
	case strings.HasPrefix(config, "cr "):
		v, _ := strconv.Atoi(strings.TrimSpace(config[3:]))
		s.prefs.CR = uint8(v)
		s.savePrefs()
		s.console.Println("  OK - reboot to apply")
	case strings.HasPrefix(config, "bw "):
		v, _ := strconv.ParseFloat(strings.TrimSpace(config[3:]), 32)
		s.prefs.BW = float32(v)
		s.savePrefs()
		s.console.Println("  OK - reboot to apply")
	default:
		s.console.Printf("  ERROR: unknown config: %s\n", config)
	}
}

func (s *Shell) cmdGet(arg string) {
	if arg != "" && !strings.HasPrefix(arg, " ") {
		return
	}
	param := strings.TrimSpace(arg)
	showAll := param == ""

	if showAll || param == "name" {
		s.console.Printf("  name: %s\n", s.prefs.NodeName)
	}
	if showAll || param == "lat" {
		s.console.Printf("  lat:  %.6f\n", s.prefs.NodeLat)
	}
	if showAll || param == "lon" {
		s.console.Printf("  lon:  %.6f\n", s.prefs.NodeLon)
	}
	if showAll || param == "freq" {
		s.console.Printf("  freq: %.3f MHz\n", s.prefs.Freq)
	}
	if showAll || param == "tx" {
		s.console.Printf("  tx:   %d dBm\n", s.prefs.TxPower)
	}
	if showAll || param == "sf" {
		s.console.Printf("  sf:   %d\n", s.prefs.SF)
	}
	if showAll || param == "cr" {
		s.console.Printf("  cr:   %d\n", s.prefs.CR)
	}
	if showAll || param == "bw" {
		s.console.Printf("  bw:   %.1f kHz\n", s.prefs.BW)
	}
	if showAll || param == "af" {
		s.console.Printf("  af:   %.2f\n", s.prefs.AirtimeFactor)
	}
	if showAll || param == "ch" {
		s.printChannels()
	}
}

// printChannels lists the built-in channel plus every active slot. The
// index shown is the live runtime index; a slot added since the last reboot
// has none yet.
func (s *Shell) printChannels() {
	s.console.Println("  Channels:")
	s.console.Printf("    [0] %s%s%s\r\n", channel.BuiltinName,
		marker(s.prefs.SelectedChannel == 0), mutedTag(s.dir.IsMuted(0)))
	for i := 0; i < channel.MaxChannels-1; i++ {
		slot := s.dir.Slot(i)
		if slot == nil || !slot.Active {
			continue
		}
		idx := s.dir.Resolve(slot.Name)
		label := "-"
		if idx > 0 {
			label = strconv.Itoa(idx)
		}
		s.console.Printf("    [%s] %s%s%s\r\n", label, slot.Name,
			marker(idx > 0 && int32(idx) == s.prefs.SelectedChannel), mutedTag(slot.Muted))
	}
}

func marker(selected bool) string {
	if selected {
		return " *"
	}
	return ""
}

func mutedTag(muted bool) string {
	if muted {
		return " (muted)"
	}
	return ""
}

func (s *Shell) cmdDelChannel(name string) {
	if strings.EqualFold(name, channel.BuiltinName) {
		s.console.Println("   ERROR: Cannot delete Public channel")
		return
	}
	selectedName := s.dir.NameOf(int(s.prefs.SelectedChannel))
	if !s.dir.Remove(name) {
		s.console.Println("   ERROR: Channel not found")
		return
	}
	// deleting the selected channel falls back to Public
	if selectedName != "" && strings.EqualFold(selectedName, name) {
		s.prefs.SelectedChannel = 0
	}
	s.savePrefs()
	s.console.Printf("   Channel '%s' removed - reboot to apply\n", name)
}

func (s *Shell) cmdVersion(string) {
	s.console.Println(s.version)
}

func (s *Shell) cmdMuteChannel(name string) {
	s.setChannelMute(name, true)
}

func (s *Shell) cmdUnmuteChannel(name string) {
	s.setChannelMute(name, false)
}

func (s *Shell) setChannelMute(name string, muted bool) {
	idx := s.dir.Resolve(name)
	if idx < 0 {
		s.console.Println("   ERROR: Channel not found")
		return
	}
	s.dir.SetMuted(idx, muted)
	s.savePrefs()
	verb := "muted"
	if !muted {
		verb = "unmuted"
	}
	s.console.Printf("   Channel '%s' %s\n", s.dir.NameOf(idx), verb)
}

func (s *Shell) cmdMute(arg string) {
	s.setAdvertMute(arg, true)
}

func (s *Shell) cmdUnmute(arg string) {
	s.setAdvertMute(arg, false)
}

func (s *Shell) setAdvertMute(arg string, muted bool) {
	if arg != "" && !strings.HasPrefix(arg, " ") {
		return
	}
	target := strings.TrimSpace(arg)
	if target == "" {
		target = "advert"
	}
	if target != "advert" {
		verb := "mute"
		if !muted {
			verb = "unmute"
		}
		s.console.Printf("   ERROR: unknown %s type (try: advert, or 'ch <name>')\n", verb)
		return
	}
	s.prefs.MuteAdverts = muted
	s.savePrefs()
	if muted {
		s.console.Println("   ADVERT messages muted")
	} else {
		s.console.Println("   ADVERT messages unmuted")
	}
}

func (s *Shell) cmdReboot(string) {
	s.console.Println("Rebooting...")
	s.savePrefs()
	s.saveContacts()
	if s.reboot != nil {
		s.reboot()
	}
}

func (s *Shell) cmdSerial(subcmd string) {
	switch {
	case strings.HasPrefix(subcmd, "list"):
		s.console.Println("Available serial ports:")
		for i := 0; i < console.NumPorts; i++ {
			state := "disabled"
			if s.console.IsEnabled(i) {
				state = "ENABLED"
			}
			s.console.Printf("   %d: %s - %s\n", i, s.console.PortName(i), state)
		}
		s.console.Println("Note: Port 0 (USB) cannot be disabled")
	case strings.HasPrefix(subcmd, "enable "):
		port, _ := strconv.Atoi(strings.TrimSpace(subcmd[7:]))
		if port < 0 || port >= console.NumPorts {
			s.console.Println("   ERROR: Invalid port number (0-2)")
			return
		}
		if err := s.console.EnablePort(port); err != nil {
			s.console.Printf("   ERROR: %v\n", err)
			return
		}
		s.prefs.SinkEnabled[port] = true
		s.savePrefs()
		s.console.Printf("Enabled %s\n", s.console.PortName(port))
	case strings.HasPrefix(subcmd, "disable "):
		port, _ := strconv.Atoi(strings.TrimSpace(subcmd[8:]))
		if port == 0 {
			s.console.Println("   ERROR: Cannot disable USB serial (port 0)")
			return
		}
		if port < 1 || port >= console.NumPorts {
			s.console.Println("   ERROR: Invalid port number (1-2)")
			return
		}
		if err := s.console.DisablePort(port); err != nil {
			s.console.Printf("   ERROR: %v\n", err)
			return
		}
		s.prefs.SinkEnabled[port] = false
		s.savePrefs()
		s.console.Printf("Disabled %s\n", s.console.PortName(port))
	default:
		s.console.Println("   Usage: serial list|enable <N>|disable <N>")
	}
}

func (s *Shell) cmdHelp(string) {
	s.console.Println("Commands (page 1/2):")
	s.console.Println("   set {name|lat|lon|freq|tx|sf|cr|bw|af} {value}")
	s.console.Println("   set ch <name> <hex_key>  - add channel (32/64 hex chars)")
	s.console.Println("   set ch #<name>           - add hashtag channel")
	s.console.Println("   get [{name|lat|lon|freq|tx|sf|cr|bw|af|ch}]")
	s.console.Println("   del ch <name>            - delete channel")
	s.console.Println("   card                     - show your biz card")
	s.console.Println("   import {biz card}        - import contact from biz card")
	s.console.Println("   clock                    - show current time")
	s.console.Println("   time <epoch-seconds>     - set current time")
	s.console.Println("   list {n}                 - list recent contacts")
	s.console.Print("-- Press SPACE for more, any other key to continue -- ")

	for s.console.Available() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	c, _ := s.console.ReadByte()
	s.console.Println("")

	if c == ' ' {
		s.console.Println("Commands (page 2/2):")
		s.console.Println("   to <recipient name>      - select recipient by name")
		s.console.Println("   send <text>              - send to selected recipient")
		s.console.Println("   chsel <name>             - select channel")
		s.console.Println("   ch <text>                - send to selected channel")
		s.console.Println("   mute|unmute ch <name>    - mute/unmute channel")
		s.console.Println("   mute|unmute [advert]     - mute/unmute adverts")
		s.console.Println("   serial list              - list serial ports")
		s.console.Println("   serial enable|disable <N> - enable/disable serial port")
		s.console.Println("   advert                   - send advert")
		s.console.Println("   reset path               - reset route path")
		s.console.Println("   reboot                   - reboot device")
		s.console.Println("")
		s.console.Println("Keyboard shortcuts:")
		s.console.Println("   TAB - autocomplete contact or channel names")
		s.console.Println("   ESC - clear current input line")
	}
}

// relativeTime renders a last-advert age in the list output. A negative
// age means the advert is future-dated.
func relativeTime(age time.Duration) string {
	secs := int64(age / time.Second)
	if secs < 0 {
		return "in " + spanText(-secs)
	}
	return spanText(secs) + " ago"
}

func spanText(secs int64) string {
	switch {
	case secs < 60:
		return fmt.Sprintf("%d secs", secs)
	case secs < 3600:
		return fmt.Sprintf("%d mins", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours", secs/3600)
	default:
		return fmt.Sprintf("%d days", secs/86400)
	}
}

// truncate clips s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
