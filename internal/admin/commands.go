package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/logbot/internal/model"
)

func (p *Processor) cmdLog(ctx context.Context, req request) error {
	channels := p.roster.Shared(req.sender)
	if len(req.args) > 0 {
		wanted := map[string]bool{}
		for _, ch := range req.args {
			wanted[model.Fold(ch)] = true
		}
		filtered := channels[:0:0]
		for _, ch := range channels {
			if wanted[model.Fold(ch)] {
				filtered = append(filtered, ch)
			}
		}
		channels = filtered
	}

	sent := 0
	for _, ch := range channels {
		url, ok, err := p.logs.AuthorizeURL(ctx, p.roster, req.sender, ch)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := p.reply(req, url); err != nil {
			return err
		}
		sent++
	}
	if sent == 0 {
		return p.reply(req, "You are not in any channel I am logging.")
	}
	return nil
}

func (p *Processor) cmdHelp(ctx context.Context, req request) error {
	var usages []string
	for _, cmd := range p.commands {
		if cmd.admin && !req.admin {
			continue
		}
		usages = append(usages, cmd.usage)
	}
	return p.reply(req, "Commands: "+strings.Join(usages, ", "))
}

func (p *Processor) cmdInfo(ctx context.Context, req request) error {
	minutes := int(p.opts.EventTTL.Minutes())
	if err := p.reply(req, fmt.Sprintf("Events expire after %d minutes. Logs keep up to %d entries.",
		minutes, p.opts.MaxLogEntries)); err != nil {
		return err
	}
	channels := p.desired.Members()
	if len(channels) == 0 {
		return p.reply(req, "Channels: (none)")
	}
	return p.reply(req, "Channels: "+strings.Join(channels, " "))
}

func (p *Processor) cmdSay(ctx context.Context, req request) error {
	target, text := cutWord(req.rest)
	if target == "" || text == "" {
		return p.reply(req, "Usage: SAY <target> <text>")
	}
	return p.transport.Send(target, text)
}

func (p *Processor) cmdOp(ctx context.Context, req request) error {
	if len(req.args) != 1 {
		return p.reply(req, "Usage: OP <channel>")
	}
	ch := req.args[0]
	self := p.transport.CurrentNick()

	switch {
	case !p.roster.InChannel(ch):
		return p.reply(req, fmt.Sprintf("I am not in %s.", ch))
	case !p.roster.IsOp(ch, self):
		return p.reply(req, fmt.Sprintf("I am not an operator in %s.", ch))
	case p.roster.OpCount(ch) > 1:
		return p.reply(req, fmt.Sprintf("I am not the only operator in %s.", ch))
	}
	if err := p.transport.Mode(ch, "+o", req.sender); err != nil {
		return err
	}
	return p.reply(req, fmt.Sprintf("Gave you operator status in %s.", ch))
}
