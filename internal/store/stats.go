package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	Driver      string         `json:"driver"`
	DBPath      string         `json:"db_path,omitempty"`
	DBSizeBytes int64          `json:"db_size_bytes,omitempty"`
	Events      int            `json:"events"`
	LiveEvents  int            `json:"live_events"`
	LiveTokens  int            `json:"live_tokens"`
	Channels    []ChannelStats `json:"channels"`
}

// ChannelStats holds per-channel log list counts.
type ChannelStats struct {
	Channel string `json:"channel"`
	Entries int    `json:"entries"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Driver: DriverSQLite, DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	now := s.clock.Now().UnixMilli()
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.Events)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE expires_at > ?`, now).Scan(&st.LiveEvents)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE expires_at > ?`, now).Scan(&st.LiveTokens)

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, COUNT(*) AS cnt
		FROM log_entries
		GROUP BY channel ORDER BY cnt DESC, channel`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs ChannelStats
		rows.Scan(&cs.Channel, &cs.Entries)
		st.Channels = append(st.Channels, cs)
	}

	return st, rows.Err()
}
