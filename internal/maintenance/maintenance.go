// Package maintenance trims channel logs on a fixed interval.
package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval      = 10 * time.Minute
	DefaultMaxLogEntries = 200
)

// Trimmer cuts a channel log to its newest entries.
type Trimmer interface {
	Trim(ctx context.Context, channel string, max int) error
}

// Purger drops expired records.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Channels reports the channels the agent is currently in.
type Channels interface {
	Channels() []string
}

// Scheduler runs one maintenance pass per tick. The caller owns the
// ticker so that passes run on the same task as event handling.
type Scheduler struct {
	trimmer  Trimmer
	purger   Purger
	channels Channels
	max      int
	interval time.Duration
	logger   *zap.Logger
}

// New returns a Scheduler. purger may be nil.
func New(trimmer Trimmer, purger Purger, channels Channels, max int, interval time.Duration, logger *zap.Logger) *Scheduler {
	if max <= 0 {
		max = DefaultMaxLogEntries
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		trimmer:  trimmer,
		purger:   purger,
		channels: channels,
		max:      max,
		interval: interval,
		logger:   logger,
	}
}

// Interval is how often Run should be called.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// RunOnce trims every joined channel, then purges expired records. A
// failure on one channel is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	channels := s.channels.Channels()
	failed := 0
	for _, ch := range channels {
		if err := s.trimmer.Trim(ctx, ch, s.max); err != nil {
			failed++
			s.logger.Error("trim log", zap.String("channel", ch), zap.Error(err))
		}
	}

	var purged int64
	if s.purger != nil {
		n, err := s.purger.PurgeExpired(ctx)
		if err != nil {
			s.logger.Error("purge expired records", zap.Error(err))
		}
		purged = n
	}

	s.logger.Debug("maintenance pass",
		zap.Int("channels", len(channels)),
		zap.Int("failed", failed),
		zap.Int64("purged", purged))
}
