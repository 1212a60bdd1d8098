// ABOUTME: Shell state, the line editor tick, and the command dispatch table.
// ABOUTME: Input bytes accumulate in a fixed buffer until CR/LF submits them.

package shell

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/console"
	"github.com/meshwork-dev/meshterm/internal/contact"
	"github.com/meshwork-dev/meshterm/internal/mesh"
	"github.com/meshwork-dev/meshterm/internal/prefs"
)

// MaxCommandLen is the fixed command buffer size. A line that fills the
// buffer is discarded with an error rather than truncated.
const MaxCommandLen = 512

const prompt = "\r> "

// Persister writes the mutable node state back to storage. Mutating command
// handlers persist synchronously before reporting success.
type Persister interface {
	SavePrefs(*prefs.NodePrefs) error
	SaveContacts(*contact.Store) error
}

// Options collects the collaborators a Shell drives.
type Options struct {
	Console   *console.MultiSink
	Prefs     *prefs.NodePrefs
	Contacts  *contact.Store
	Directory *channel.Directory
	Messenger mesh.Messenger
	Clock     mesh.Clock
	Persist   Persister
	Version   string
	// Reboot is invoked by the reboot command after state is flushed.
	Reboot func()
}

// Shell is the interactive command console for one node.
type Shell struct {
	mu sync.Mutex

	console   *console.MultiSink
	prefs     *prefs.NodePrefs
	contacts  *contact.Store
	dir       *channel.Directory
	messenger mesh.Messenger
	clock     mesh.Clock
	persist   Persister
	version   string
	reboot    func()
	logger    *slog.Logger

	buf    [MaxCommandLen]byte
	length int

	currRecipient  *contact.Contact
	expectedAckCRC uint32
	lastSentAt     time.Time
}

// New returns a Shell over the given collaborators.
func New(opts Options) *Shell {
	return &Shell{
		console:   opts.Console,
		prefs:     opts.Prefs,
		contacts:  opts.Contacts,
		dir:       opts.Directory,
		messenger: opts.Messenger,
		clock:     opts.Clock,
		persist:   opts.Persist,
		version:   opts.Version,
		reboot:    opts.Reboot,
		logger:    slog.Default().With("component", "shell"),
	}
}

// Prompt prints a fresh input prompt.
func (s *Shell) Prompt() {
	s.console.Print(prompt)
}

// Tick drains pending console input, running at most one submitted command
// per line. It returns once no input is immediately available.
func (s *Shell) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.console.Available() > 0 && s.length < MaxCommandLen-1 {
		c, ok := s.console.ReadByte()
		if !ok {
			break
		}
		switch {
		case c == '\r' || c == '\n':
			if s.length > 0 {
				line := string(s.buf[:s.length])
				s.console.Println("")
				s.dispatch(line)
				s.console.Print(prompt)
				s.length = 0
			}
		case c == '\t':
			s.autocomplete()
		case c == 27: // ESC clears the line
			s.console.Print("\r")
			s.console.Print(strings.Repeat(" ", s.length+2))
			s.length = 0
			s.console.Print(prompt)
		case c == 8 || c == 127: // backspace / delete
			if s.length > 0 {
				s.length--
				s.console.Print("\b \b")
			}
		default:
			s.buf[s.length] = c
			s.length++
			s.console.Write([]byte{c})
		}
	}

	if s.length >= MaxCommandLen-1 {
		s.console.Println("")
		s.console.Println("   ERROR: command too long")
		s.length = 0
	}
}

// binding maps one command prefix to its handler. Exact bindings require
// the whole line to equal the prefix.
type binding struct {
	prefix string
	exact  bool
	run    func(s *Shell, arg string)
}

// commands is matched top to bottom, so a longer prefix must come before
// any prefix it extends ("set ch " before "set ").
var commands = []binding{
	{prefix: "send ", run: (*Shell).cmdSend},
	{prefix: "ch ", run: (*Shell).cmdChannelSend},
	{prefix: "chsel ", run: (*Shell).cmdChannelSelect},
	{prefix: "list", run: (*Shell).cmdList},
	{prefix: "clock", exact: true, run: (*Shell).cmdClock},
	{prefix: "time ", run: (*Shell).cmdSetTime},
	{prefix: "to ", run: (*Shell).cmdSelectRecipient},
	{prefix: "to", exact: true, run: (*Shell).cmdShowRecipient},
	{prefix: "advert", exact: true, run: (*Shell).cmdAdvert},
	{prefix: "reset path", exact: true, run: (*Shell).cmdResetPath},
	{prefix: "card", run: (*Shell).cmdCard},
	{prefix: "import ", run: (*Shell).cmdImport},
	{prefix: "set ch ", run: (*Shell).cmdSetChannel},
	{prefix: "set ", run: (*Shell).cmdSet},
	{prefix: "get", run: (*Shell).cmdGet},
	{prefix: "del ch ", run: (*Shell).cmdDelChannel},
	{prefix: "ver", run: (*Shell).cmdVersion},
	{prefix: "mute ch ", run: (*Shell).cmdMuteChannel},
	{prefix: "unmute ch ", run: (*Shell).cmdUnmuteChannel},
	{prefix: "mute", run: (*Shell).cmdMute},
	{prefix: "unmute", run: (*Shell).cmdUnmute},
	{prefix: "reboot", run: (*Shell).cmdReboot},
	{prefix: "serial ", run: (*Shell).cmdSerial},
	{prefix: "help", run: (*Shell).cmdHelp},
}

// dispatch routes one submitted line to its handler. Unknown commands are
// reported on the console, never fatal.
func (s *Shell) dispatch(line string) {
	line = strings.TrimLeft(line, " ")
	for _, b := range commands {
		if b.exact {
			if line == b.prefix {
				b.run(s, "")
				return
			}
			continue
		}
		if strings.HasPrefix(line, b.prefix) {
			b.run(s, line[len(b.prefix):])
			return
		}
	}
	s.console.Printf("   ERROR: unknown command: %s\n", line)
}

// savePrefs persists the preferences record; failures are logged, the
// command result already printed stands.
func (s *Shell) savePrefs() {
	if err := s.persist.SavePrefs(s.prefs); err != nil {
		s.logger.Error("saving preferences", "error", err)
	}
}

func (s *Shell) saveContacts() {
	if err := s.persist.SaveContacts(s.contacts); err != nil {
		s.logger.Error("saving contacts", "error", err)
	}
}

func (s *Shell) redrawPrompt() {
	s.console.Print(prompt)
	s.console.Print(string(s.buf[:s.length]))
}
