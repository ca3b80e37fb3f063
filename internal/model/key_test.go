package model

import (
	"strings"
	"testing"
	"time"
)

var at = time.Unix(1700000000, 0)

func TestContentKeyStable(t *testing.T) {
	ev := Event{Kind: KindKick, Time: at, Source: "op", Target: "bob", Message: "bye"}

	a := ContentKey(ev, []string{"#test"})
	b := ContentKey(ev, []string{"#test"})
	if a != b {
		t.Fatalf("same event produced different keys: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, EventKeyPrefix) {
		t.Errorf("expected %q prefix, got %s", EventKeyPrefix, a)
	}

	// Insertion order of the field map must not matter.
	fields := map[string]string{}
	for _, name := range []string{FieldMessage, FieldTarget, FieldSource, FieldTime, FieldEvent} {
		fields[name] = ev.Fields()[name]
	}
	if got := ContentKeyFields(fields, []string{"#test"}); got != a {
		t.Errorf("field order changed the key: %s vs %s", got, a)
	}
}

func TestContentKeyChannelSetCanonical(t *testing.T) {
	ev := Event{Kind: KindQuit, Time: at, Source: "alice", Message: "gone"}

	a := ContentKey(ev, []string{"#one", "#Two"})
	b := ContentKey(ev, []string{"#two", "#ONE", "#one"})
	if a != b {
		t.Fatalf("channel order, case or duplicates changed the key")
	}
}

func TestContentKeyDistinguishes(t *testing.T) {
	base := Event{Kind: KindPrivmsg, Time: at, Source: "alice", Message: "hi"}
	key := ContentKey(base, []string{"#test"})

	variants := map[string]string{
		"message": ContentKey(Event{Kind: KindPrivmsg, Time: at, Source: "alice", Message: "hi!"}, []string{"#test"}),
		"source":  ContentKey(Event{Kind: KindPrivmsg, Time: at, Source: "bob", Message: "hi"}, []string{"#test"}),
		"kind":    ContentKey(Event{Kind: KindAction, Time: at, Source: "alice", Message: "hi"}, []string{"#test"}),
		"time":    ContentKey(Event{Kind: KindPrivmsg, Time: at.Add(time.Second), Source: "alice", Message: "hi"}, []string{"#test"}),
		"channel": ContentKey(base, []string{"#other"}),
		"set":     ContentKey(base, []string{"#test", "#other"}),
	}
	for name, k := range variants {
		if k == key {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestFieldsOnlyKindFields(t *testing.T) {
	ev := Event{Kind: KindJoin, Time: at, Source: "alice", Message: "ignored"}
	fields := ev.Fields()
	if len(fields) != 3 {
		t.Fatalf("expected event, time and source, got %v", fields)
	}
	if fields[FieldSource] != "alice" || fields[FieldEvent] != "join" || fields[FieldTime] != "1700000000" {
		t.Errorf("unexpected fields %v", fields)
	}

	back, err := FromFields(fields)
	if err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if back.Kind != KindJoin || back.Source != "alice" || !back.Time.Equal(at) || back.Message != "" {
		t.Errorf("unexpected event %+v", back)
	}
}

func TestFromFieldsRejectsUnknownKind(t *testing.T) {
	if _, err := FromFields(map[string]string{FieldEvent: "topic", FieldTime: "1"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := FromFields(map[string]string{FieldEvent: "join", FieldTime: "soon"}); err == nil {
		t.Fatal("expected error for bad time")
	}
}

func TestFold(t *testing.T) {
	if !SameName("#Chan[1]", "#chan{1}") {
		t.Error("expected rfc1459 folding of brackets")
	}
	if SameName("#a", "#b") {
		t.Error("different names compared equal")
	}
}
