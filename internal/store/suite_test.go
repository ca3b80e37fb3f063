package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rcliao/logbot/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// storeFactory opens an empty store whose expiry follows clk.
type storeFactory func(t *testing.T, clk clock.Clock) Store

// runStoreSuite checks the behavior every backend must share.
func runStoreSuite(t *testing.T, open storeFactory) {
	t.Run("EventPutGet", func(t *testing.T) { testEventPutGet(t, open) })
	t.Run("EventExpiry", func(t *testing.T) { testEventExpiry(t, open) })
	t.Run("EventRewriteResetsExpiry", func(t *testing.T) { testEventRewriteResetsExpiry(t, open) })
	t.Run("LogOrder", func(t *testing.T) { testLogOrder(t, open) })
	t.Run("LogOrderClockBackwards", func(t *testing.T) { testLogOrderClockBackwards(t, open) })
	t.Run("LogTrim", func(t *testing.T) { testLogTrim(t, open) })
	t.Run("LogMissing", func(t *testing.T) { testLogMissing(t, open) })
	t.Run("Tokens", func(t *testing.T) { testTokens(t, open) })
	t.Run("Channels", func(t *testing.T) { testChannels(t, open) })
	t.Run("Purge", func(t *testing.T) { testPurge(t, open) })
}

func testEventPutGet(t *testing.T, open storeFactory) {
	ctx := context.Background()
	s := open(t, clock.Fake(epoch))

	fields := map[string]string{"event": "join", "time": "1", "source": "alice"}
	if err := s.PutEvent(ctx, "evt:a", fields, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetEvent(ctx, "evt:a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected record")
	}
	if got["source"] != "alice" || len(got) != 3 {
		t.Errorf("unexpected fields %v", got)
	}

	if _, ok, err := s.GetEvent(ctx, "evt:missing"); err != nil || ok {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func testEventExpiry(t *testing.T, open storeFactory) {
	ctx := context.Background()
	clk := clock.Fake(epoch)
	s := open(t, clk)

	s.PutEvent(ctx, "evt:a", map[string]string{"event": "endlog", "time": "1"}, 6*time.Hour)

	clk.Advance(6*time.Hour - time.Second)
	if _, ok, _ := s.GetEvent(ctx, "evt:a"); !ok {
		t.Fatal("record gone before expiry")
	}
	clk.Advance(time.Second)
	_, ok, err := s.GetEvent(ctx, "evt:a")
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if ok {
		t.Fatal("record still visible after expiry")
	}
}

func testEventRewriteResetsExpiry(t *testing.T, open storeFactory) {
	ctx := context.Background()
	clk := clock.Fake(epoch)
	s := open(t, clk)

	fields := map[string]string{"event": "endlog", "time": "1"}
	s.PutEvent(ctx, "evt:a", fields, time.Hour)
	clk.Advance(50 * time.Minute)
	s.PutEvent(ctx, "evt:a", fields, time.Hour)
	clk.Advance(50 * time.Minute)

	if _, ok, _ := s.GetEvent(ctx, "evt:a"); !ok {
		t.Fatal("rewrite did not restart the expiry clock")
	}
}

func testLogOrder(t *testing.T, open storeFactory) {
	ctx := context.Background()
	s := open(t, clock.Fake(epoch))

	for _, key := range []string{"evt:1", "evt:2", "evt:3"} {
		if err := s.AppendLog(ctx, "#test", key); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	s.AppendLog(ctx, "#other", "evt:x")

	keys, ok, err := s.ListLog(ctx, "#test")
	if err != nil || !ok {
		t.Fatalf("list: ok=%v err=%v", ok, err)
	}
	want := []string{"evt:3", "evt:2", "evt:1"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("expected newest-first %v, got %v", want, keys)
	}
}

func testLogOrderClockBackwards(t *testing.T, open storeFactory) {
	ctx := context.Background()
	clk := clock.Fake(epoch)
	s := open(t, clk)

	s.AppendLog(ctx, "#c", "evt:first")
	clk.Advance(-2 * time.Second)
	s.AppendLog(ctx, "#c", "evt:second")
	s.AppendLog(ctx, "#c", "evt:third")

	keys, _, err := s.ListLog(ctx, "#c")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"evt:third", "evt:second", "evt:first"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("expected newest-first %v, got %v", want, keys)
	}

	if err := s.TrimLog(ctx, "#c", 1); err != nil {
		t.Fatalf("trim: %v", err)
	}
	keys, _, _ = s.ListLog(ctx, "#c")
	if fmt.Sprint(keys) != "[evt:third]" {
		t.Errorf("trim kept %v, want the latest append", keys)
	}
}

func testLogTrim(t *testing.T, open storeFactory) {
	ctx := context.Background()
	s := open(t, clock.Fake(epoch))

	for i := 0; i < 10; i++ {
		s.AppendLog(ctx, "#test", fmt.Sprintf("evt:%d", i))
	}
	if err := s.TrimLog(ctx, "#test", 4); err != nil {
		t.Fatalf("trim: %v", err)
	}
	keys, _, _ := s.ListLog(ctx, "#test")
	want := []string{"evt:9", "evt:8", "evt:7", "evt:6"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("expected %v after trim, got %v", want, keys)
	}

	// Idempotent, and a no-op on lists that are short or missing.
	if err := s.TrimLog(ctx, "#test", 4); err != nil {
		t.Fatalf("second trim: %v", err)
	}
	if err := s.TrimLog(ctx, "#nowhere", 4); err != nil {
		t.Fatalf("trim missing: %v", err)
	}
	keys, _, _ = s.ListLog(ctx, "#test")
	if len(keys) != 4 {
		t.Errorf("expected 4 entries, got %d", len(keys))
	}
}

func testLogMissing(t *testing.T, open storeFactory) {
	s := open(t, clock.Fake(epoch))
	keys, ok, err := s.ListLog(context.Background(), "#never")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ok || len(keys) != 0 {
		t.Errorf("expected no list, got ok=%v keys=%v", ok, keys)
	}
}

func testTokens(t *testing.T, open storeFactory) {
	ctx := context.Background()
	clk := clock.Fake(epoch)
	s := open(t, clk)

	if err := s.PutToken(ctx, "abcdefgh", "#test", 5*time.Minute); err != nil {
		t.Fatalf("put token: %v", err)
	}
	ch, ok, err := s.GetToken(ctx, "abcdefgh")
	if err != nil || !ok || ch != "#test" {
		t.Fatalf("expected #test, got %q ok=%v err=%v", ch, ok, err)
	}

	clk.Advance(5 * time.Minute)
	if _, ok, _ := s.GetToken(ctx, "abcdefgh"); ok {
		t.Error("token valid after ttl")
	}
	if _, ok, _ := s.GetToken(ctx, "neverissued"); ok {
		t.Error("unknown token resolved")
	}
}

func testChannels(t *testing.T, open storeFactory) {
	ctx := context.Background()
	s := open(t, clock.Fake(epoch))

	got, err := s.LoadChannels(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty set, got %v err=%v", got, err)
	}

	s.SaveChannels(ctx, []string{"#b", "#a"})
	if err := s.SaveChannels(ctx, []string{"#c", "#a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ = s.LoadChannels(ctx)
	if fmt.Sprint(got) != "[#a #c]" {
		t.Errorf("save must replace the whole set, got %v", got)
	}
}

func testPurge(t *testing.T, open storeFactory) {
	ctx := context.Background()
	clk := clock.Fake(epoch)
	s := open(t, clk)

	s.PutEvent(ctx, "evt:short", map[string]string{"event": "endlog", "time": "1"}, time.Minute)
	s.PutEvent(ctx, "evt:long", map[string]string{"event": "endlog", "time": "2"}, time.Hour)
	s.PutToken(ctx, "tok", "#test", time.Minute)
	clk.Advance(2 * time.Minute)

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged rows, got %d", n)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Events != 1 || st.LiveEvents != 1 || st.LiveTokens != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}
