// ABOUTME: Tab completion for contact and channel name arguments.
// ABOUTME: One match completes in place, several list, none rings the bell.

package shell

import (
	"strings"
)

// completionContexts maps a leading command token to the name source used
// for completing its argument.
var completionContexts = []struct {
	prefix   string
	channels bool // false completes contact names
}{
	{prefix: "to "},
	{prefix: "chsel ", channels: true},
	{prefix: "mute ch ", channels: true},
	{prefix: "unmute ch ", channels: true},
	{prefix: "del ch ", channels: true},
}

func (s *Shell) autocomplete() {
	line := string(s.buf[:s.length])

	for _, ctx := range completionContexts {
		if !strings.HasPrefix(line, ctx.prefix) {
			continue
		}
		partial := line[len(ctx.prefix):]
		var matches []string
		if ctx.channels {
			matches = s.channelMatches(partial)
		} else {
			matches = s.contacts.MatchPrefix(partial)
		}
		s.applyCompletion(len(ctx.prefix), matches)
		return
	}
}

// channelMatches returns the known channel names, built-in first, matching
// a case-insensitive prefix. An empty prefix matches all.
func (s *Shell) channelMatches(prefix string) []string {
	var matches []string
	for _, name := range s.dir.Names() {
		if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			matches = append(matches, name)
		}
	}
	return matches
}

func (s *Shell) applyCompletion(offset int, matches []string) {
	switch len(matches) {
	case 0:
		s.console.Print("\a")
	case 1:
		n := copy(s.buf[offset:MaxCommandLen-1], matches[0])
		s.length = offset + n
		s.console.Print(prompt)
		s.console.Print(string(s.buf[:s.length]))
	default:
		s.console.Println("")
		s.console.Println("Matches:")
		for _, m := range matches {
			s.console.Println("   " + m)
		}
		s.redrawPrompt()
	}
}
