// Package admin handles private messages sent to the agent.
//
// Handling is two-stage. First the shared secret is stripped from the
// front of the message, if present, which makes the rest of that one
// message privileged. Then the remainder is parsed as a command. No
// session state is kept: every privileged command carries the secret.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/logbot/internal/chat"
	"github.com/rcliao/logbot/internal/logbook"
)

// Roster is the live channel state the commands consult.
type Roster interface {
	logbook.Members
	Shared(nick string) []string
	InChannel(channel string) bool
	IsOp(channel, nick string) bool
	OpCount(channel string) int
}

// LogService issues read URLs.
type LogService interface {
	AuthorizeURL(ctx context.Context, members logbook.Members, user, channel string) (string, bool, error)
}

// Desired lists the channels the agent wants to be in.
type Desired interface {
	Members() []string
}

// Transport is the outbound capability the commands need.
type Transport interface {
	chat.Sender
	Mode(channel string, args ...string) error
	CurrentNick() string
}

// Options carries the settings reported by INFO and the secret.
type Options struct {
	Secret        string
	EventTTL      time.Duration
	MaxLogEntries int
}

// Processor dispatches private commands.
type Processor struct {
	opts      Options
	roster    Roster
	logs      LogService
	desired   Desired
	transport Transport
	commands  []command
	byName    map[string]*command
}

type request struct {
	sender string
	name   string
	// rest is everything after the command word, untouched.
	rest  string
	args  []string
	admin bool
}

type command struct {
	name  string
	usage string
	admin bool
	run   func(p *Processor, ctx context.Context, req request) error
}

// New returns a Processor with the built-in command table.
func New(opts Options, roster Roster, logs LogService, desired Desired, transport Transport) *Processor {
	p := &Processor{
		opts:      opts,
		roster:    roster,
		logs:      logs,
		desired:   desired,
		transport: transport,
	}
	p.commands = []command{
		{name: "log", usage: "LOG [channel...]", run: (*Processor).cmdLog},
		{name: "help", usage: "HELP", run: (*Processor).cmdHelp},
		{name: "info", usage: "INFO", admin: true, run: (*Processor).cmdInfo},
		{name: "say", usage: "SAY <target> <text>", admin: true, run: (*Processor).cmdSay},
		{name: "op", usage: "OP <channel>", admin: true, run: (*Processor).cmdOp},
	}
	p.byName = make(map[string]*command, len(p.commands))
	for i := range p.commands {
		p.byName[p.commands[i].name] = &p.commands[i]
	}
	return p
}

// Handle processes one private message from sender. Errors are
// transport or store failures; user mistakes are answered with a
// reply.
func (p *Processor) Handle(ctx context.Context, sender, text string) error {
	rest, admin := authenticate(text, p.opts.Secret)
	name, rest := cutWord(rest)
	if name == "" {
		return nil
	}
	req := request{
		sender: sender,
		name:   strings.ToLower(name),
		rest:   rest,
		args:   strings.Fields(rest),
		admin:  admin,
	}

	cmd, ok := p.byName[req.name]
	if !ok {
		// "<wrong secret> INFO" should get the password hint, not
		// "unknown command".
		if next, _ := cutWord(rest); !admin && p.isAdminCommand(next) {
			return p.reply(req, "That command needs the password.")
		}
		return p.reply(req, fmt.Sprintf("Unknown command %s. Try HELP.", strings.ToUpper(req.name)))
	}
	if cmd.admin && !req.admin {
		return p.reply(req, "That command needs the password.")
	}
	return cmd.run(p, ctx, req)
}

func (p *Processor) isAdminCommand(name string) bool {
	cmd, ok := p.byName[strings.ToLower(name)]
	return ok && cmd.admin
}

func (p *Processor) reply(req request, text string) error {
	return p.transport.Send(req.sender, text)
}

// authenticate strips a leading secret. The secret must be followed by
// whitespace or end the message.
func authenticate(text, secret string) (rest string, admin bool) {
	text = strings.TrimSpace(text)
	if secret == "" || !strings.HasPrefix(text, secret) {
		return text, false
	}
	rest = text[len(secret):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return text, false
	}
	return strings.TrimSpace(rest), true
}

// cutWord splits off the first whitespace-separated word.
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}
