package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcliao/logbot/internal/clock"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock clock.Clock
	ids   *entryIDs
}

// NewPostgresStore connects to dsn and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string, clk clock.Clock) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store: empty dsn")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	clk = orReal(clk)
	s := &PostgresStore{pool: pool, clock: clk, ids: newEntryIDs(clk)}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	var maxID string
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), '') FROM log_entries`).Scan(&maxID); err != nil {
		pool.Close()
		return nil, fmt.Errorf("read last log entry: %w", err)
	}
	if err := s.ids.seed(maxID); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS events (
		key        TEXT PRIMARY KEY,
		fields     TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_expires ON events(expires_at);

	CREATE TABLE IF NOT EXISTS log_entries (
		id        TEXT PRIMARY KEY,
		channel   TEXT NOT NULL,
		event_key TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_log_entries_channel ON log_entries(channel, id DESC);

	CREATE TABLE IF NOT EXISTS tokens (
		token      TEXT PRIMARY KEY,
		channel    TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_expires ON tokens(expires_at);

	CREATE TABLE IF NOT EXISTS channels (
		name TEXT PRIMARY KEY
	);`)
	return err
}

func (s *PostgresStore) PutEvent(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (key, fields, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET fields = EXCLUDED.fields, expires_at = EXCLUDED.expires_at`,
		key, string(b), expiresAt(s.clock, ttl))
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, key string) (map[string]string, bool, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM events WHERE key = $1 AND expires_at > $2`,
		key, s.clock.Now().UnixMilli()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get event: %w", err)
	}
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, false, fmt.Errorf("decode fields of %s: %w", key, err)
	}
	return fields, true, nil
}

func (s *PostgresStore) AppendLog(ctx context.Context, channel, key string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO log_entries (id, channel, event_key) VALUES ($1, $2, $3)`,
		s.ids.next(), channel, key)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (s *PostgresStore) TrimLog(ctx context.Context, channel string, max int) error {
	if max < 0 {
		max = 0
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM log_entries WHERE channel = $1 AND id NOT IN (
			SELECT id FROM log_entries WHERE channel = $1 ORDER BY id DESC LIMIT $2
		)`, channel, max)
	if err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLog(ctx context.Context, channel string) ([]string, bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_key FROM log_entries WHERE channel = $1 ORDER BY id DESC`, channel)
	if err != nil {
		return nil, false, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, false, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return keys, len(keys) > 0, nil
}

func (s *PostgresStore) PutToken(ctx context.Context, token, channel string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tokens (token, channel, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET channel = EXCLUDED.channel, expires_at = EXCLUDED.expires_at`,
		token, channel, expiresAt(s.clock, ttl))
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetToken(ctx context.Context, token string) (string, bool, error) {
	var channel string
	err := s.pool.QueryRow(ctx,
		`SELECT channel FROM tokens WHERE token = $1 AND expires_at > $2`,
		token, s.clock.Now().UnixMilli()).Scan(&channel)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token: %w", err)
	}
	return channel, true, nil
}

func (s *PostgresStore) LoadChannels(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		channels = append(channels, name)
	}
	return channels, rows.Err()
}

func (s *PostgresStore) SaveChannels(ctx context.Context, channels []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM channels`); err != nil {
		return fmt.Errorf("clear channels: %w", err)
	}
	for _, name := range channels {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channels (name) VALUES ($1) ON CONFLICT DO NOTHING`, name); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.clock.Now().UnixMilli()
	var total int64
	for _, query := range []string{
		`DELETE FROM events WHERE expires_at <= $1`,
		`DELETE FROM tokens WHERE expires_at <= $1`,
	} {
		tag, err := s.pool.Exec(ctx, query, now)
		if err != nil {
			return total, fmt.Errorf("purge expired: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Driver: DriverPostgres}
	now := s.clock.Now().UnixMilli()
	s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.Events)
	s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE expires_at > $1`, now).Scan(&st.LiveEvents)
	s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens WHERE expires_at > $1`, now).Scan(&st.LiveTokens)

	rows, err := s.pool.Query(ctx, `
		SELECT channel, COUNT(*) AS cnt
		FROM log_entries
		GROUP BY channel ORDER BY cnt DESC, channel`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs ChannelStats
		var n int64
		rows.Scan(&cs.Channel, &n)
		cs.Entries = int(n)
		st.Channels = append(st.Channels, cs)
	}
	return st, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
