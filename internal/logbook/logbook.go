// Package logbook files events under channel logs and reads them back.
//
// Writes store the event record once under its content key and put
// that key at the head of every channel log it belongs to. Reads walk a
// channel's key list and skip keys whose record has expired, so the
// visible log shrinks as records age out even before maintenance trims
// the list.
package logbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/clock"
	"github.com/rcliao/logbot/internal/model"
	"github.com/rcliao/logbot/internal/store"
)

// DefaultEventTTL is how long an event record lives after its last
// write.
const DefaultEventTTL = 6 * time.Hour

// Issuer creates read tokens for a channel.
type Issuer interface {
	Issue(ctx context.Context, channel string) (string, error)
}

// Members answers whether a nick is currently in a channel with the
// agent.
type Members interface {
	HasMember(channel, nick string) bool
}

// Options configures a Service.
type Options struct {
	EventTTL time.Duration
	// URLTemplate is the read URL with {channel} and {token}
	// placeholders.
	URLTemplate string
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Service composes the event store, the channel log index and the
// token issuer.
type Service struct {
	events      store.EventStore
	index       store.LogIndex
	issuer      Issuer
	ttl         time.Duration
	urlTemplate string
	clock       clock.Clock
	logger      *zap.Logger
}

// New returns a Service. Zero options fall back to the defaults.
func New(events store.EventStore, index store.LogIndex, issuer Issuer, opts Options) *Service {
	if opts.EventTTL <= 0 {
		opts.EventTTL = DefaultEventTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		events:      events,
		index:       index,
		issuer:      issuer,
		ttl:         opts.EventTTL,
		urlTemplate: opts.URLTemplate,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// Record stores ev and files it under channels, returning its content
// key. A zero ev.Time is set to now. Writing an event that is already
// stored under the same channel set only restarts its expiry; the key
// is not filed a second time.
func (s *Service) Record(ctx context.Context, ev model.Event, channels ...string) (string, error) {
	targets := model.CanonicalChannels(channels)
	if len(targets) == 0 {
		return "", nil
	}
	if ev.Time.IsZero() {
		ev.Time = s.clock.Now()
	}
	ev.Time = ev.Time.Truncate(time.Second)

	fields := ev.Fields()
	key := model.ContentKeyFields(fields, targets)

	_, existed, err := s.events.GetEvent(ctx, key)
	if err != nil {
		return "", err
	}
	if err := s.events.PutEvent(ctx, key, fields, s.ttl); err != nil {
		return "", err
	}
	if existed {
		return key, nil
	}
	for _, ch := range targets {
		if err := s.index.AppendLog(ctx, ch, key); err != nil {
			return key, fmt.Errorf("file %s under %s: %w", key, ch, err)
		}
	}
	return key, nil
}

// GetLog returns the live events of channel, newest first. ok is false
// when the channel has no log list at all; a list whose records have
// all expired gives ok with no events.
func (s *Service) GetLog(ctx context.Context, channel string) (events []model.Event, ok bool, err error) {
	keys, ok, err := s.index.ListLog(ctx, model.Fold(channel))
	if err != nil || !ok {
		return nil, ok, err
	}

	events = make([]model.Event, 0, len(keys))
	for _, key := range keys {
		fields, found, err := s.events.GetEvent(ctx, key)
		if err != nil {
			return nil, true, err
		}
		if !found {
			continue
		}
		ev, err := model.FromFields(fields)
		if err != nil {
			s.logger.Warn("skipping unreadable event record", zap.String("key", key), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, true, nil
}

// Trim cuts channel's log list to its max newest entries.
func (s *Service) Trim(ctx context.Context, channel string, max int) error {
	return s.index.TrimLog(ctx, model.Fold(channel), max)
}

// AuthorizeURL issues a read token for channel and renders the read
// URL, provided user is in channel with the agent right now. ok is
// false, with no token issued, when they are not.
func (s *Service) AuthorizeURL(ctx context.Context, members Members, user, channel string) (url string, ok bool, err error) {
	if !members.HasMember(channel, user) {
		return "", false, nil
	}
	tok, err := s.issuer.Issue(ctx, channel)
	if err != nil {
		return "", false, err
	}
	return strings.NewReplacer("{channel}", channel, "{token}", tok).Replace(s.urlTemplate), true, nil
}
