// Package roster tracks the live state of the channels the agent is in:
// which it has joined, who is present and who holds operator status.
// It is updated only from the agent's event loop and is not safe for
// concurrent use.
package roster

import (
	"sort"
	"strings"

	"github.com/rcliao/logbot/internal/model"
)

type member struct {
	nick string
	op   bool
}

type channel struct {
	name    string
	members map[string]*member
}

// Roster is the agent's view of joined channels.
type Roster struct {
	channels map[string]*channel
}

// New returns an empty Roster.
func New() *Roster {
	return &Roster{channels: map[string]*channel{}}
}

// Joined records that the agent is now in name.
func (r *Roster) Joined(name string) {
	key := model.Fold(name)
	if _, ok := r.channels[key]; ok {
		return
	}
	r.channels[key] = &channel{name: name, members: map[string]*member{}}
}

// Left forgets name entirely.
func (r *Roster) Left(name string) {
	delete(r.channels, model.Fold(name))
}

// Reset forgets every channel, e.g. after a disconnect.
func (r *Roster) Reset() {
	r.channels = map[string]*channel{}
}

// InChannel reports whether the agent is in name.
func (r *Roster) InChannel(name string) bool {
	_, ok := r.channels[model.Fold(name)]
	return ok
}

// Channels returns the joined channels in name order.
func (r *Roster) Channels() []string {
	out := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.name)
	}
	sort.Strings(out)
	return out
}

// AddMember records nick as present in name. Unknown channels are
// ignored.
func (r *Roster) AddMember(name, nick string) {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return
	}
	key := model.Fold(nick)
	if m, ok := ch.members[key]; ok {
		m.nick = nick
		return
	}
	ch.members[key] = &member{nick: nick}
}

// RemoveMember records that nick left name.
func (r *Roster) RemoveMember(name, nick string) {
	if ch, ok := r.channels[model.Fold(name)]; ok {
		delete(ch.members, model.Fold(nick))
	}
}

// ApplyNames adds NAMES reply entries such as "@alice" or "+bob" to
// name. Both single and multi-prefix forms are accepted.
func (r *Roster) ApplyNames(name string, entries []string) {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return
	}
	for _, entry := range entries {
		nick := strings.TrimLeft(entry, "~&@%+")
		if nick == "" {
			continue
		}
		prefixes := entry[:len(entry)-len(nick)]
		ch.members[model.Fold(nick)] = &member{
			nick: nick,
			op:   strings.ContainsAny(prefixes, "~&@"),
		}
	}
}

// SetOp grants or revokes operator status for nick in name.
func (r *Roster) SetOp(name, nick string, op bool) {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return
	}
	if m, ok := ch.members[model.Fold(nick)]; ok {
		m.op = op
	}
}

// ApplyModes applies a MODE change ("+o-v", "alice", "bob") to name.
// Only operator grants and revocations are tracked; arguments of other
// parameterised modes are skipped.
func (r *Roster) ApplyModes(name string, modes []string) {
	if len(modes) == 0 {
		return
	}
	args := modes[1:]
	adding := true
	for _, c := range modes[0] {
		switch c {
		case '+':
			adding = true
		case '-':
			adding = false
		case 'o', 'q', 'a':
			if len(args) == 0 {
				return
			}
			r.SetOp(name, args[0], adding)
			args = args[1:]
		case 'v', 'h', 'b', 'e', 'I', 'k':
			if len(args) > 0 {
				args = args[1:]
			}
		case 'l':
			if adding && len(args) > 0 {
				args = args[1:]
			}
		}
	}
}

// HasMember reports whether nick is in name.
func (r *Roster) HasMember(name, nick string) bool {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return false
	}
	_, ok = ch.members[model.Fold(nick)]
	return ok
}

// IsOp reports whether nick holds operator status in name.
func (r *Roster) IsOp(name, nick string) bool {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return false
	}
	m, ok := ch.members[model.Fold(nick)]
	return ok && m.op
}

// OpCount returns the number of operators in name.
func (r *Roster) OpCount(name string) int {
	ch, ok := r.channels[model.Fold(name)]
	if !ok {
		return 0
	}
	n := 0
	for _, m := range ch.members {
		if m.op {
			n++
		}
	}
	return n
}

// Shared returns the joined channels nick is in, in name order.
func (r *Roster) Shared(nick string) []string {
	key := model.Fold(nick)
	var out []string
	for _, ch := range r.channels {
		if _, ok := ch.members[key]; ok {
			out = append(out, ch.name)
		}
	}
	sort.Strings(out)
	return out
}

// Quit removes nick from every channel and returns the channels it was
// in.
func (r *Roster) Quit(nick string) []string {
	channels := r.Shared(nick)
	key := model.Fold(nick)
	for _, ch := range r.channels {
		delete(ch.members, key)
	}
	return channels
}

// Rename moves oldNick to newNick everywhere, keeping operator status,
// and returns the channels affected.
func (r *Roster) Rename(oldNick, newNick string) []string {
	channels := r.Shared(oldNick)
	oldKey, newKey := model.Fold(oldNick), model.Fold(newNick)
	for _, ch := range r.channels {
		m, ok := ch.members[oldKey]
		if !ok {
			continue
		}
		delete(ch.members, oldKey)
		m.nick = newNick
		ch.members[newKey] = m
	}
	return channels
}
