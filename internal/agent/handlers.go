package agent

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/chat"
	"github.com/rcliao/logbot/internal/model"
)

func endLog() model.Event { return model.Event{Kind: model.KindEndLog} }

func (a *Agent) isSelf(nick string) bool {
	return model.SameName(nick, a.Transport.CurrentNick())
}

func (a *Agent) record(ctx context.Context, ev model.Event, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	_, err := a.Logs.Record(ctx, ev, channels...)
	return err
}

func (a *Agent) onWelcome(ctx context.Context, ev chat.Event) error {
	a.Roster.Reset()
	a.logger.Info("connected", zap.String("nick", a.Transport.CurrentNick()))
	for _, ch := range a.Desired.Members() {
		if err := a.Transport.Join(ch); err != nil {
			return fmt.Errorf("join %s: %w", ch, err)
		}
	}
	return nil
}

func (a *Agent) onJoin(ctx context.Context, ev chat.Event) error {
	if a.isSelf(ev.Nick) {
		a.Roster.Joined(ev.Channel)
		a.Roster.AddMember(ev.Channel, ev.Nick)
		a.logger.Info("joined channel", zap.String("channel", ev.Channel))
		return a.record(ctx, model.Event{Kind: model.KindStartLog}, ev.Channel)
	}
	if !a.Roster.InChannel(ev.Channel) {
		return nil
	}
	a.Roster.AddMember(ev.Channel, ev.Nick)
	return a.record(ctx, model.Event{Kind: model.KindJoin, Source: ev.Nick}, ev.Channel)
}

func (a *Agent) onPart(ctx context.Context, ev chat.Event) error {
	if !a.Roster.InChannel(ev.Channel) {
		return nil
	}
	if a.isSelf(ev.Nick) {
		a.Roster.Left(ev.Channel)
		a.logger.Info("left channel", zap.String("channel", ev.Channel))
		return a.record(ctx, endLog(), ev.Channel)
	}
	a.Roster.RemoveMember(ev.Channel, ev.Nick)
	return a.record(ctx, model.Event{Kind: model.KindPart, Source: ev.Nick, Message: ev.Text}, ev.Channel)
}

// onQuit files one quit event under every channel the user was in.
func (a *Agent) onQuit(ctx context.Context, ev chat.Event) error {
	if a.isSelf(ev.Nick) {
		return nil
	}
	channels := a.Roster.Quit(ev.Nick)
	return a.record(ctx, model.Event{Kind: model.KindQuit, Source: ev.Nick, Message: ev.Text}, channels...)
}

// onKick logs every kick. Only a kick of the agent itself also drops
// the channel from the desired set, so it is not rejoined.
func (a *Agent) onKick(ctx context.Context, ev chat.Event) error {
	if !a.Roster.InChannel(ev.Channel) {
		return nil
	}
	kick := model.Event{Kind: model.KindKick, Source: ev.Nick, Target: ev.Target, Message: ev.Text}
	if err := a.record(ctx, kick, ev.Channel); err != nil {
		return err
	}

	if !a.isSelf(ev.Target) {
		a.Roster.RemoveMember(ev.Channel, ev.Target)
		return nil
	}
	a.Roster.Left(ev.Channel)
	a.logger.Info("kicked from channel",
		zap.String("channel", ev.Channel),
		zap.String("by", ev.Nick),
		zap.String("reason", ev.Text))
	if _, err := a.Desired.Remove(ctx, ev.Channel); err != nil {
		return err
	}
	return nil
}

func (a *Agent) onNick(ctx context.Context, ev chat.Event) error {
	// The transport already reports the new nick for the agent itself,
	// so compare against the new one.
	if a.isSelf(ev.NewNick) && model.SameName(ev.NewNick, a.nick) && a.reclaim != nil {
		a.reclaim.Stop()
		a.reclaim = nil
	}
	channels := a.Roster.Rename(ev.Nick, ev.NewNick)
	return a.record(ctx, model.Event{Kind: model.KindNick, Source: ev.Nick, NewNick: ev.NewNick}, channels...)
}

// onMessage logs channel messages and hands private ones to the
// command processor.
func (a *Agent) onMessage(ctx context.Context, ev chat.Event) error {
	if !chat.IsChannel(ev.Target) {
		return a.Admin.Handle(ctx, ev.Nick, ev.Text)
	}
	if !a.Roster.InChannel(ev.Target) {
		return nil
	}
	return a.record(ctx, model.Event{Kind: model.KindPrivmsg, Source: ev.Nick, Message: ev.Text}, ev.Target)
}

func (a *Agent) onAction(ctx context.Context, ev chat.Event) error {
	if !chat.IsChannel(ev.Target) || !a.Roster.InChannel(ev.Target) {
		return nil
	}
	return a.record(ctx, model.Event{Kind: model.KindAction, Source: ev.Nick, Message: ev.Text}, ev.Target)
}

func (a *Agent) onInvite(ctx context.Context, ev chat.Event) error {
	if !a.isSelf(ev.Target) || ev.Channel == "" {
		return nil
	}
	a.logger.Info("invited", zap.String("channel", ev.Channel), zap.String("by", ev.Nick))
	if _, err := a.Desired.Add(ctx, ev.Channel); err != nil {
		return err
	}
	return a.Transport.Join(ev.Channel)
}

func (a *Agent) onNames(ctx context.Context, ev chat.Event) error {
	a.Roster.ApplyNames(ev.Channel, ev.Names)
	return nil
}

func (a *Agent) onMode(ctx context.Context, ev chat.Event) error {
	if chat.IsChannel(ev.Channel) {
		a.Roster.ApplyModes(ev.Channel, ev.Modes)
	}
	return nil
}

// onNickInUse switches to the configured nick plus two digits and
// schedules one attempt to take the configured nick back.
func (a *Agent) onNickInUse(ctx context.Context, ev chat.Event) error {
	current := a.Transport.CurrentNick()
	if !model.SameName(ev.NewNick, a.nick) || model.SameName(current, a.nick) || current == "" {
		alt := fmt.Sprintf("%s%d", a.nick, 10+rand.Intn(90))
		a.logger.Warn("nick in use", zap.String("nick", ev.NewNick), zap.String("trying", alt))
		if err := a.Transport.SetNick(alt); err != nil {
			return err
		}
	}
	a.scheduleReclaim()
	return nil
}

func (a *Agent) scheduleReclaim() {
	if a.reclaim != nil {
		a.reclaim.Stop()
	}
	a.reclaim = a.clock.AfterFunc(a.retryDelay, func() {
		a.post(func(ctx context.Context) {
			a.reclaim = nil
			if model.SameName(a.Transport.CurrentNick(), a.nick) {
				return
			}
			a.logger.Info("reclaiming nick", zap.String("nick", a.nick))
			if err := a.Transport.SetNick(a.nick); err != nil {
				a.logger.Error("reclaim nick", zap.Error(err))
			}
		})
	})
}
