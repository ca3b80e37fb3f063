// Package model defines the logged event types and their canonical
// stored form.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies what happened in a channel.
type Kind string

const (
	KindStartLog Kind = "startlog"
	KindEndLog   Kind = "endlog"
	KindJoin     Kind = "join"
	KindPart     Kind = "part"
	KindQuit     Kind = "quit"
	KindKick     Kind = "kick"
	KindNick     Kind = "nick"
	KindPrivmsg  Kind = "privmsg"
	KindAction   Kind = "action"
)

// Stored field names. FieldEvent and FieldTime are present on every
// record.
const (
	FieldEvent   = "event"
	FieldTime    = "time"
	FieldSource  = "source"
	FieldTarget  = "target"
	FieldMessage = "message"
	FieldNewNick = "newnick"
)

// kindFields lists the kind-specific fields of each event kind.
var kindFields = map[Kind][]string{
	KindStartLog: nil,
	KindEndLog:   nil,
	KindJoin:     {FieldSource},
	KindPart:     {FieldSource, FieldMessage},
	KindQuit:     {FieldSource, FieldMessage},
	KindKick:     {FieldSource, FieldTarget, FieldMessage},
	KindNick:     {FieldSource, FieldNewNick},
	KindPrivmsg:  {FieldSource, FieldMessage},
	KindAction:   {FieldSource, FieldMessage},
}

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	_, ok := kindFields[k]
	return ok
}

// Event is one logged occurrence. Time has second precision once
// stored.
type Event struct {
	Kind    Kind
	Time    time.Time
	Source  string
	Target  string
	Message string
	NewNick string
}

// Fields returns the flat field map that is hashed and stored. Only
// the fields belonging to the event's kind are included.
func (e Event) Fields() map[string]string {
	fields := map[string]string{
		FieldEvent: string(e.Kind),
		FieldTime:  strconv.FormatInt(e.Time.Unix(), 10),
	}
	for _, name := range kindFields[e.Kind] {
		fields[name] = e.field(name)
	}
	return fields
}

func (e Event) field(name string) string {
	switch name {
	case FieldSource:
		return e.Source
	case FieldTarget:
		return e.Target
	case FieldMessage:
		return e.Message
	case FieldNewNick:
		return e.NewNick
	}
	return ""
}

// FromFields rebuilds an Event from a stored field map.
func FromFields(fields map[string]string) (Event, error) {
	kind := Kind(fields[FieldEvent])
	if !kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", fields[FieldEvent])
	}
	secs, err := strconv.ParseInt(fields[FieldTime], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("parse event time: %w", err)
	}
	return Event{
		Kind:    kind,
		Time:    time.Unix(secs, 0),
		Source:  fields[FieldSource],
		Target:  fields[FieldTarget],
		Message: fields[FieldMessage],
		NewNick: fields[FieldNewNick],
	}, nil
}

// MarshalJSON encodes the event as its stored field map.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}
