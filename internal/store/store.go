// Package store persists event records, per-channel log lists, access
// tokens and the desired channel set. SQLite is the default backend;
// PostgreSQL is available for deployments that already run one.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/logbot/internal/clock"
)

// EventStore holds event records keyed by content key. Records expire
// ttl after their last write.
type EventStore interface {
	// PutEvent upserts fields under key and restarts its expiry clock.
	PutEvent(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// GetEvent returns the live record for key. ok is false when the
	// record never existed or has expired.
	GetEvent(ctx context.Context, key string) (fields map[string]string, ok bool, err error)
}

// LogIndex keeps, per channel, the ordered list of event keys filed
// under it. It never looks at the event records themselves.
type LogIndex interface {
	// AppendLog puts key at the head of the channel's list.
	AppendLog(ctx context.Context, channel, key string) error

	// TrimLog keeps only the max newest entries. Trimming a missing
	// list is a no-op.
	TrimLog(ctx context.Context, channel string, max int) error

	// ListLog returns the keys newest-first. ok is false when the
	// channel has no list at all.
	ListLog(ctx context.Context, channel string) (keys []string, ok bool, err error)
}

// TokenStore maps access tokens to channel names until they expire.
type TokenStore interface {
	PutToken(ctx context.Context, token, channel string, ttl time.Duration) error
	GetToken(ctx context.Context, token string) (channel string, ok bool, err error)
}

// ChannelStore persists the desired channel set as a whole.
type ChannelStore interface {
	LoadChannels(ctx context.Context) ([]string, error)

	// SaveChannels replaces the persisted set with channels.
	SaveChannels(ctx context.Context, channels []string) error
}

// Store is the full persistence surface used by the agent.
type Store interface {
	EventStore
	LogIndex
	TokenStore
	ChannelStore

	// PurgeExpired deletes expired event and token rows and returns how
	// many were removed. Reads already ignore expired rows.
	PurgeExpired(ctx context.Context) (int64, error)

	// Stats returns record counts.
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// Clock decides expiry. Defaults to clock.Real().
	Clock clock.Clock
}

// Open opens the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return NewSQLiteStore(opts.Path, opts.Clock)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.DSN, opts.Clock)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
