package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/rcliao/logbot/internal/model"
)

var at = time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)

func TestText(t *testing.T) {
	cases := map[string]model.Event{
		"=== Logging started":                {Kind: model.KindStartLog},
		"=== alice joined the channel":       {Kind: model.KindJoin, Source: "alice"},
		"=== alice left the channel (later)": {Kind: model.KindPart, Source: "alice", Message: "later"},
		"=== alice quit IRC (ping timeout)":  {Kind: model.KindQuit, Source: "alice", Message: "ping timeout"},
		"=== bob was kicked by alice (spam)": {Kind: model.KindKick, Source: "alice", Target: "bob", Message: "spam"},
		"=== alice changed nick to alicia":   {Kind: model.KindNick, Source: "alice", NewNick: "alicia"},
		"<alice> hello":                      {Kind: model.KindPrivmsg, Source: "alice", Message: "hello"},
		"* alice waves":                      {Kind: model.KindAction, Source: "alice", Message: "waves"},
		"=== Logging ended":                  {Kind: model.KindEndLog},
	}
	for want, ev := range cases {
		if got := Text(ev); got != want {
			t.Errorf("Text(%s) = %q, want %q", ev.Kind, got, want)
		}
	}
}

func TestLogPrintsOldestFirst(t *testing.T) {
	newestFirst := []model.Event{
		{Kind: model.KindPrivmsg, Time: at.Add(time.Minute), Source: "bob", Message: "hi alice"},
		{Kind: model.KindJoin, Time: at, Source: "alice"},
	}
	var buf bytes.Buffer
	if err := Log(&buf, newestFirst, time.UTC); err != nil {
		t.Fatalf("log: %v", err)
	}
	want := "(2026-03-01 12:30:05) === alice joined the channel\n" +
		"(2026-03-01 12:31:05) <bob> hi alice\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}
