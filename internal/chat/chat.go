// Package chat defines what the agent consumes from and asks of the
// chat transport: a closed set of parsed inbound events and an
// outbound capability. Connection and wire handling live in the
// transport adapter.
package chat

import "strings"

// Kind tags an inbound Event.
type Kind int

const (
	// Welcome: registration finished, the agent may join channels.
	Welcome Kind = iota + 1
	Join
	Part
	Quit
	Kick
	Nick
	// Message is a PRIVMSG to a channel or to the agent.
	Message
	// Action is a CTCP ACTION to a channel or to the agent.
	Action
	Invite
	// Names carries one batch of a channel's member list.
	Names
	// Mode carries a channel mode change.
	Mode
	// NickInUse: the nick the agent asked for is taken.
	NickInUse
)

var kindNames = map[Kind]string{
	Welcome:   "welcome",
	Join:      "join",
	Part:      "part",
	Quit:      "quit",
	Kick:      "kick",
	Nick:      "nick",
	Message:   "message",
	Action:    "action",
	Invite:    "invite",
	Names:     "names",
	Mode:      "mode",
	NickInUse: "nick-in-use",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one parsed inbound occurrence. Which fields are set depends
// on Kind:
//
//	Join, Part        Nick, Channel, Text (part reason)
//	Quit              Nick, Text
//	Kick              Nick (kicker), Channel, Target (kicked), Text
//	Nick              Nick, NewNick
//	Message, Action   Nick, Target (channel or agent nick), Text
//	Invite            Nick, Target (invited nick), Channel
//	Names             Channel, Names (entries with mode prefixes)
//	Mode              Nick, Channel, Modes (mode string then arguments)
//	NickInUse         NewNick (the rejected nick)
type Event struct {
	Kind    Kind
	Nick    string
	Channel string
	Target  string
	Text    string
	NewNick string
	Names   []string
	Modes   []string
}

// Sender is the outbound message capability.
type Sender interface {
	Send(target, text string) error
}

// Transport is everything the agent asks of the connection.
type Transport interface {
	Sender
	Join(channel string) error
	Mode(channel string, args ...string) error
	SetNick(nick string) error
	CurrentNick() string
	Quit(reason string) error
}

// IsChannel reports whether name is a channel rather than a nick.
func IsChannel(name string) bool {
	return name != "" && strings.ContainsRune("#&+!", rune(name[0]))
}
