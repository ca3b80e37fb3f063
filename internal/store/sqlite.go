package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/logbot/internal/clock"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock clock.Clock
	ids   *entryIDs
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// A nil clock means wall-clock time.
func NewSQLiteStore(dbPath string, clk clock.Clock) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	clk = orReal(clk)
	s := &SQLiteStore{
		db:    db,
		path:  dbPath,
		clock: clk,
		ids:   newEntryIDs(clk),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	var maxID string
	if err := db.QueryRow(`SELECT COALESCE(MAX(id), '') FROM log_entries`).Scan(&maxID); err != nil {
		db.Close()
		return nil, fmt.Errorf("read last log entry: %w", err)
	}
	if err := s.ids.seed(maxID); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		key        TEXT PRIMARY KEY,
		fields     TEXT NOT NULL,
		expires_at INTEGER NOT NULL
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
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_expires ON tokens(expires_at);

	CREATE TABLE IF NOT EXISTS channels (
		name TEXT PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) PutEvent(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (key, fields, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET fields = excluded.fields, expires_at = excluded.expires_at`,
		key, string(b), expiresAt(s.clock, ttl))
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEvent(ctx context.Context, key string) (map[string]string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM events WHERE key = ? AND expires_at > ?`,
		key, s.clock.Now().UnixMilli()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) AppendLog(ctx context.Context, channel, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO log_entries (id, channel, event_key) VALUES (?, ?, ?)`,
		s.ids.next(), channel, key)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TrimLog(ctx context.Context, channel string, max int) error {
	if max < 0 {
		max = 0
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM log_entries WHERE channel = ? AND id NOT IN (
			SELECT id FROM log_entries WHERE channel = ? ORDER BY id DESC LIMIT ?
		)`, channel, channel, max)
	if err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLog(ctx context.Context, channel string) ([]string, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_key FROM log_entries WHERE channel = ? ORDER BY id DESC`, channel)
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

func (s *SQLiteStore) PutToken(ctx context.Context, token, channel string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (token, channel, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET channel = excluded.channel, expires_at = excluded.expires_at`,
		token, channel, expiresAt(s.clock, ttl))
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetToken(ctx context.Context, token string) (string, bool, error) {
	var channel string
	err := s.db.QueryRowContext(ctx,
		`SELECT channel FROM tokens WHERE token = ? AND expires_at > ?`,
		token, s.clock.Now().UnixMilli()).Scan(&channel)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token: %w", err)
	}
	return channel, true, nil
}

func (s *SQLiteStore) LoadChannels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM channels ORDER BY name`)
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

func (s *SQLiteStore) SaveChannels(ctx context.Context, channels []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channels`); err != nil {
		return fmt.Errorf("clear channels: %w", err)
	}
	for _, name := range channels {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO channels (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.clock.Now().UnixMilli()
	var total int64
	for _, query := range []string{
		`DELETE FROM events WHERE expires_at <= ?`,
		`DELETE FROM tokens WHERE expires_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, query, now)
		if err != nil {
			return total, fmt.Errorf("purge expired: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
