package store

import (
	"context"
	"os"
	"testing"

	"github.com/rcliao/logbot/internal/clock"
)

// Set LOGBOT_TEST_POSTGRES_DSN to a disposable database to run these.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LOGBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LOGBOT_TEST_POSTGRES_DSN not set")
	}

	runStoreSuite(t, func(t *testing.T, clk clock.Clock) Store {
		t.Helper()
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dsn, clk)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `TRUNCATE events, log_entries, tokens, channels`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
