package store

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rcliao/logbot/internal/clock"
)

// entryIDs issues log entry ids. ULIDs from a monotonic source sort in
// issue order, so "ORDER BY id DESC" is newest-first. The timestamp
// part never goes below the last one issued, so a clock stepping back
// cannot put a new entry behind older ones.
type entryIDs struct {
	mu      sync.Mutex
	clock   clock.Clock
	entropy *ulid.MonotonicEntropy
	last    uint64
}

func newEntryIDs(clk clock.Clock) *entryIDs {
	return &entryIDs{
		clock:   clk,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// seed makes every later id sort after maxID, the largest id already
// stored. An empty maxID means an empty table.
func (g *entryIDs) seed(maxID string) error {
	if maxID == "" {
		return nil
	}
	id, err := ulid.ParseStrict(maxID)
	if err != nil {
		return fmt.Errorf("parse log entry id %q: %w", maxID, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// The stored id's entropy is unknown, so move to the next
	// millisecond rather than reuse its timestamp.
	if ms := id.Time() + 1; ms > g.last {
		g.last = ms
	}
	return nil
}

func (g *entryIDs) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := ulid.Timestamp(g.clock.Now())
	if ms < g.last {
		ms = g.last
	}
	g.last = ms
	return ulid.MustNew(ms, g.entropy).String()
}

func expiresAt(clk clock.Clock, ttl time.Duration) int64 {
	return clk.Now().Add(ttl).UnixMilli()
}

func orReal(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.Real()
	}
	return clk
}
