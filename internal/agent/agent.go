// Package agent runs the logging agent: one task that consumes
// transport events, timer callbacks and maintenance ticks strictly in
// turn, so the state it owns (roster, desired channels) needs no locks.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/admin"
	"github.com/rcliao/logbot/internal/chat"
	"github.com/rcliao/logbot/internal/clock"
	"github.com/rcliao/logbot/internal/logbook"
	"github.com/rcliao/logbot/internal/maintenance"
	"github.com/rcliao/logbot/internal/membership"
	"github.com/rcliao/logbot/internal/roster"
)

const (
	DefaultNickRetryDelay = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
	quitMessage           = "Logging ended"
)

// Deps are the collaborators the agent drives.
type Deps struct {
	Transport   chat.Transport
	Logs        *logbook.Service
	Desired     *membership.Reconciler
	Roster      *roster.Roster
	Admin       *admin.Processor
	Maintenance *maintenance.Scheduler
}

// Options configures an Agent.
type Options struct {
	// Nick is the configured nick the agent reclaims after a
	// collision.
	Nick           string
	NickRetryDelay time.Duration
	Clock          clock.Clock
	Logger         *zap.Logger
}

type handler func(a *Agent, ctx context.Context, ev chat.Event) error

// Agent owns the event loop.
type Agent struct {
	Deps

	nick       string
	retryDelay time.Duration
	clock      clock.Clock
	logger     *zap.Logger

	handlers map[chat.Kind]handler
	inbox    chan chat.Event
	tasks    chan func(context.Context)
	done     chan struct{}
	reclaim  *clock.Timer
}

// New returns an Agent. Nothing runs until Run is called.
func New(deps Deps, opts Options) *Agent {
	if opts.NickRetryDelay <= 0 {
		opts.NickRetryDelay = DefaultNickRetryDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Agent{
		Deps:       deps,
		nick:       opts.Nick,
		retryDelay: opts.NickRetryDelay,
		clock:      opts.Clock,
		logger:     opts.Logger,
		handlers: map[chat.Kind]handler{
			chat.Welcome:   (*Agent).onWelcome,
			chat.Join:      (*Agent).onJoin,
			chat.Part:      (*Agent).onPart,
			chat.Quit:      (*Agent).onQuit,
			chat.Kick:      (*Agent).onKick,
			chat.Nick:      (*Agent).onNick,
			chat.Message:   (*Agent).onMessage,
			chat.Action:    (*Agent).onAction,
			chat.Invite:    (*Agent).onInvite,
			chat.Names:     (*Agent).onNames,
			chat.Mode:      (*Agent).onMode,
			chat.NickInUse: (*Agent).onNickInUse,
		},
		inbox: make(chan chat.Event),
		tasks: make(chan func(context.Context)),
		done:  make(chan struct{}),
	}
}

// Dispatch hands ev to the event loop and returns once the loop has
// taken it, so events are handled in the order they are dispatched.
// Events dispatched after Run has returned are dropped.
func (a *Agent) Dispatch(ev chat.Event) {
	select {
	case a.inbox <- ev:
	case <-a.done:
	}
}

// post runs task on the event loop.
func (a *Agent) post(task func(context.Context)) {
	select {
	case a.tasks <- task:
	case <-a.done:
	}
}

// Run processes events until ctx is cancelled, then runs the shutdown
// sequence: an endlog event for every joined channel, the desired set
// persisted, and a quit. Shutdown failures are returned, not retried.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)

	ticker := a.clock.NewTicker(a.Maintenance.Interval())
	defer ticker.Stop()

	for {
		select {
		case ev := <-a.inbox:
			a.Handle(ctx, ev)
		case task := <-a.tasks:
			task(ctx)
		case <-ticker.C:
			a.Maintenance.RunOnce(ctx)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return a.shutdown(shutdownCtx)
		}
	}
}

// Handle runs the handler for ev's kind. A failing handler is logged;
// the loop carries on with the next event.
func (a *Agent) Handle(ctx context.Context, ev chat.Event) {
	h, ok := a.handlers[ev.Kind]
	if !ok {
		return
	}
	if err := h(a, ctx, ev); err != nil {
		a.logger.Error("handle event",
			zap.Stringer("kind", ev.Kind),
			zap.String("nick", ev.Nick),
			zap.String("channel", ev.Channel),
			zap.Error(err))
	}
}

func (a *Agent) shutdown(ctx context.Context) error {
	if a.reclaim != nil {
		a.reclaim.Stop()
	}

	var errs []error
	for _, ch := range a.Roster.Channels() {
		if err := a.record(ctx, endLog(), ch); err != nil {
			errs = append(errs, fmt.Errorf("end log of %s: %w", ch, err))
		}
	}
	if err := a.Desired.Save(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Transport.Quit(quitMessage); err != nil {
		errs = append(errs, fmt.Errorf("quit: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Error("shutdown incomplete", zap.Error(err))
	} else {
		a.logger.Info("shutdown complete")
	}
	return err
}
