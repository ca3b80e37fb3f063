package ircconn

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/rcliao/logbot/internal/chat"
)

const ctcpDelim = "\x01"

// translate maps one IRC line to a chat event. Lines the agent has no
// use for, and malformed ones, report false.
func translate(m ircmsg.Message) (chat.Event, bool) {
	nick := m.Nick()
	p := m.Params
	param := func(i int) string {
		if i < len(p) {
			return p[i]
		}
		return ""
	}

	switch m.Command {
	case "JOIN":
		if len(p) < 1 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Join, Nick: nick, Channel: p[0]}, true
	case "PART":
		if len(p) < 1 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Part, Nick: nick, Channel: p[0], Text: param(1)}, true
	case "QUIT":
		return chat.Event{Kind: chat.Quit, Nick: nick, Text: param(0)}, true
	case "KICK":
		if len(p) < 2 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Kick, Nick: nick, Channel: p[0], Target: p[1], Text: param(2)}, true
	case "NICK":
		if len(p) < 1 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Nick, Nick: nick, NewNick: p[0]}, true
	case "PRIVMSG":
		if len(p) < 2 {
			return chat.Event{}, false
		}
		return translatePrivmsg(nick, p[0], p[1])
	case "INVITE":
		if len(p) < 2 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Invite, Nick: nick, Target: p[0], Channel: p[1]}, true
	case "MODE":
		if len(p) < 2 || !chat.IsChannel(p[0]) {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Mode, Nick: nick, Channel: p[0], Modes: p[1:]}, true
	case "353":
		// <me> <symbol> <channel> :<names>
		if len(p) < 3 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.Names, Channel: p[len(p)-2], Names: strings.Fields(p[len(p)-1])}, true
	case "433":
		// <me> <nick> :Nickname is already in use
		if len(p) < 2 {
			return chat.Event{}, false
		}
		return chat.Event{Kind: chat.NickInUse, NewNick: p[1]}, true
	}
	return chat.Event{}, false
}

// translatePrivmsg separates CTCP ACTION from plain text. Other CTCP
// requests are dropped.
func translatePrivmsg(nick, target, text string) (chat.Event, bool) {
	if !strings.HasPrefix(text, ctcpDelim) {
		return chat.Event{Kind: chat.Message, Nick: nick, Target: target, Text: text}, true
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, ctcpDelim), ctcpDelim)
	verb, rest, _ := strings.Cut(body, " ")
	if !strings.EqualFold(verb, "ACTION") {
		return chat.Event{}, false
	}
	return chat.Event{Kind: chat.Action, Nick: nick, Target: target, Text: rest}, true
}
