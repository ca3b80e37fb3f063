package ircconn

import (
	"reflect"
	"testing"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/rcliao/logbot/internal/chat"
)

func parse(t *testing.T, line string) ircmsg.Message {
	t.Helper()
	m, err := ircmsg.ParseLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return m
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		line string
		want chat.Event
	}{
		{":alice!a@host JOIN #test", chat.Event{Kind: chat.Join, Nick: "alice", Channel: "#test"}},
		{":alice!a@host PART #test :see you", chat.Event{Kind: chat.Part, Nick: "alice", Channel: "#test", Text: "see you"}},
		{":alice!a@host PART #test", chat.Event{Kind: chat.Part, Nick: "alice", Channel: "#test"}},
		{":alice!a@host QUIT :Ping timeout", chat.Event{Kind: chat.Quit, Nick: "alice", Text: "Ping timeout"}},
		{":op!o@host KICK #test bob :spam", chat.Event{Kind: chat.Kick, Nick: "op", Channel: "#test", Target: "bob", Text: "spam"}},
		{":alice!a@host NICK alice_", chat.Event{Kind: chat.Nick, Nick: "alice", NewNick: "alice_"}},
		{":alice!a@host PRIVMSG #test :hello there", chat.Event{Kind: chat.Message, Nick: "alice", Target: "#test", Text: "hello there"}},
		{":alice!a@host PRIVMSG #test :\x01ACTION waves\x01", chat.Event{Kind: chat.Action, Nick: "alice", Target: "#test", Text: "waves"}},
		{":alice!a@host INVITE logbot #new", chat.Event{Kind: chat.Invite, Nick: "alice", Target: "logbot", Channel: "#new"}},
		{":op!o@host MODE #test +o alice", chat.Event{Kind: chat.Mode, Nick: "op", Channel: "#test", Modes: []string{"+o", "alice"}}},
		{":irc.example.net 353 logbot = #test :@op +voiced alice", chat.Event{Kind: chat.Names, Channel: "#test", Names: []string{"@op", "+voiced", "alice"}}},
		{":irc.example.net 433 * logbot :Nickname is already in use", chat.Event{Kind: chat.NickInUse, NewNick: "logbot"}},
	}
	for _, c := range cases {
		got, ok := translate(parse(t, c.line))
		if !ok {
			t.Errorf("%q: not translated", c.line)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%q:\n got %+v\nwant %+v", c.line, got, c.want)
		}
	}
}

func TestTranslateIgnores(t *testing.T) {
	for _, line := range []string{
		":alice!a@host PRIVMSG logbot :\x01VERSION\x01",
		":logbot!l@host MODE logbot +i",
		":irc.example.net 001 logbot :Welcome",
		":alice!a@host KICK #test",
		"PING :irc.example.net",
	} {
		if ev, ok := translate(parse(t, line)); ok {
			t.Errorf("%q translated to %+v", line, ev)
		}
	}
}

func TestServerAddr(t *testing.T) {
	if got := (Server{Host: "irc.example.net"}).addr(); got != "irc.example.net:6667" {
		t.Errorf("default port addr = %q", got)
	}
	if got := (Server{Host: "irc.example.net", Port: 6697, TLS: true}).addr(); got != "irc.example.net:6697" {
		t.Errorf("addr = %q", got)
	}
}

func TestNotConnected(t *testing.T) {
	c := New(Options{Nick: "logbot"})
	if err := c.Join("#test"); err != errNotConnected {
		t.Errorf("join before connect = %v", err)
	}
	if got := c.CurrentNick(); got != "logbot" {
		t.Errorf("nick before connect = %q", got)
	}
}

func TestQuitBeforeConnect(t *testing.T) {
	c := New(Options{Nick: "logbot", Servers: []Server{{Host: "irc.invalid"}}})
	if err := c.Quit("bye"); err != nil {
		t.Fatalf("quit: %v", err)
	}
	if err := c.Run(func(chat.Event) {}); err != nil {
		t.Fatalf("run after quit: %v", err)
	}
}
