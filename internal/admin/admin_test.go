package admin

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/logbot/internal/logbook"
	"github.com/rcliao/logbot/internal/roster"
)

type sent struct{ target, text string }

type fakeTransport struct {
	nick  string
	sent  []sent
	modes [][]string
}

func (f *fakeTransport) Send(target, text string) error {
	f.sent = append(f.sent, sent{target, text})
	return nil
}

func (f *fakeTransport) Mode(channel string, args ...string) error {
	f.modes = append(f.modes, append([]string{channel}, args...))
	return nil
}

func (f *fakeTransport) CurrentNick() string { return f.nick }

func (f *fakeTransport) texts() string {
	var lines []string
	for _, s := range f.sent {
		lines = append(lines, s.text)
	}
	return strings.Join(lines, "\n")
}

type fakeLogs struct{}

func (fakeLogs) AuthorizeURL(ctx context.Context, members logbook.Members, user, channel string) (string, bool, error) {
	if !members.HasMember(channel, user) {
		return "", false, nil
	}
	return "http://logs/" + channel, true, nil
}

type fakeDesired []string

func (d fakeDesired) Members() []string { return d }

func newTestProcessor() (*Processor, *fakeTransport, *roster.Roster) {
	r := roster.New()
	tr := &fakeTransport{nick: "logbot"}
	p := New(Options{Secret: "hunter2", EventTTL: 6 * time.Hour, MaxLogEntries: 200},
		r, fakeLogs{}, fakeDesired{"#a", "#test"}, tr)
	return p, tr, r
}

func TestAuthenticate(t *testing.T) {
	cases := []struct {
		text  string
		rest  string
		admin bool
	}{
		{"hunter2 INFO", "INFO", true},
		{"  hunter2\tsay #x hi ", "say #x hi", true},
		{"hunter2", "", true},
		{"hunter22 INFO", "hunter22 INFO", false},
		{"INFO", "INFO", false},
	}
	for _, c := range cases {
		rest, admin := authenticate(c.text, "hunter2")
		if rest != c.rest || admin != c.admin {
			t.Errorf("authenticate(%q) = %q, %v; want %q, %v", c.text, rest, admin, c.rest, c.admin)
		}
	}
	if _, admin := authenticate("anything", ""); admin {
		t.Error("an empty secret must never authenticate")
	}
}

func TestInfoRequiresSecret(t *testing.T) {
	ctx := context.Background()
	p, tr, _ := newTestProcessor()

	if err := p.Handle(ctx, "boss", "hunter2 INFO"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := tr.texts()
	if !strings.Contains(out, "360 minutes") || !strings.Contains(out, "200 entries") {
		t.Errorf("info missing expiry or length: %q", out)
	}
	if !strings.Contains(out, "#a #test") {
		t.Errorf("info missing desired channels: %q", out)
	}
	if tr.sent[0].target != "boss" {
		t.Errorf("reply went to %q", tr.sent[0].target)
	}

	for _, msg := range []string{"INFO", "wrongpass INFO", "info"} {
		tr.sent = nil
		p.Handle(ctx, "boss", msg)
		if len(tr.sent) != 1 || tr.sent[0].text != "That command needs the password." {
			t.Errorf("%q: expected password rejection, got %v", msg, tr.sent)
		}
	}
}

func TestHelpListsAdminCommandsOnlyWhenAuthenticated(t *testing.T) {
	ctx := context.Background()
	p, tr, _ := newTestProcessor()

	p.Handle(ctx, "someone", "help")
	if out := tr.texts(); strings.Contains(out, "INFO") || !strings.Contains(out, "LOG") {
		t.Errorf("unexpected public help %q", out)
	}

	tr.sent = nil
	p.Handle(ctx, "boss", "hunter2 HELP")
	if out := tr.texts(); !strings.Contains(out, "SAY <target> <text>") || !strings.Contains(out, "OP <channel>") {
		t.Errorf("admin help missing commands: %q", out)
	}
}

func TestLogSharedChannels(t *testing.T) {
	ctx := context.Background()
	p, tr, r := newTestProcessor()
	r.Joined("#test")
	r.Joined("#other")
	r.Joined("#private")
	r.AddMember("#test", "alice")
	r.AddMember("#other", "alice")

	p.Handle(ctx, "alice", "LOG")
	if got := tr.texts(); got != "http://logs/#other\nhttp://logs/#test" {
		t.Errorf("unexpected urls %q", got)
	}

	tr.sent = nil
	p.Handle(ctx, "alice", "log #TEST #private")
	if got := tr.texts(); got != "http://logs/#test" {
		t.Errorf("filter should keep only shared requested channels, got %q", got)
	}

	tr.sent = nil
	p.Handle(ctx, "mallory", "log")
	if len(tr.sent) != 1 || strings.Contains(tr.sent[0].text, "http") {
		t.Errorf("non-member should get no url, got %v", tr.sent)
	}
}

func TestSayRelaysVerbatim(t *testing.T) {
	ctx := context.Background()
	p, tr, _ := newTestProcessor()

	p.Handle(ctx, "boss", "hunter2 say #test  hello   there ")
	if len(tr.sent) != 1 {
		t.Fatalf("expected one message, got %v", tr.sent)
	}
	if tr.sent[0].target != "#test" || tr.sent[0].text != "hello   there" {
		t.Errorf("unexpected relay %+v", tr.sent[0])
	}

	tr.sent = nil
	p.Handle(ctx, "boss", "hunter2 say #test")
	if tr.texts() != "Usage: SAY <target> <text>" {
		t.Errorf("expected usage, got %q", tr.texts())
	}
}

func TestOp(t *testing.T) {
	ctx := context.Background()
	p, tr, r := newTestProcessor()

	p.Handle(ctx, "boss", "hunter2 op #test")
	if tr.texts() != "I am not in #test." {
		t.Errorf("got %q", tr.texts())
	}

	r.Joined("#test")
	r.ApplyNames("#test", []string{"logbot", "boss"})
	tr.sent = nil
	p.Handle(ctx, "boss", "hunter2 op #test")
	if tr.texts() != "I am not an operator in #test." {
		t.Errorf("got %q", tr.texts())
	}

	r.ApplyNames("#test", []string{"@logbot", "@carol", "boss"})
	tr.sent = nil
	p.Handle(ctx, "boss", "hunter2 op #test")
	if tr.texts() != "I am not the only operator in #test." {
		t.Errorf("got %q", tr.texts())
	}
	if len(tr.modes) != 0 {
		t.Fatalf("mode sent despite refusal: %v", tr.modes)
	}

	r.SetOp("#test", "carol", false)
	tr.sent = nil
	p.Handle(ctx, "boss", "hunter2 op #test")
	if len(tr.modes) != 1 || fmt.Sprint(tr.modes[0]) != "[#test +o boss]" {
		t.Errorf("expected +o boss, got %v", tr.modes)
	}
}

func TestUnknownCommand(t *testing.T) {
	p, tr, _ := newTestProcessor()
	p.Handle(context.Background(), "someone", "dance now")
	if tr.texts() != "Unknown command DANCE. Try HELP." {
		t.Errorf("got %q", tr.texts())
	}
	tr.sent = nil
	p.Handle(context.Background(), "someone", "   ")
	if len(tr.sent) != 0 {
		t.Errorf("blank message should be ignored, got %v", tr.sent)
	}
}
