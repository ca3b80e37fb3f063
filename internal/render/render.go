// Package render formats logged events as viewer text lines.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/rcliao/logbot/internal/model"
)

// TimeLayout is the timestamp format inside the leading parentheses.
const TimeLayout = "2006-01-02 15:04:05"

// Line renders ev as "(<timestamp>) <text>" in loc.
func Line(ev model.Event, loc *time.Location) string {
	return fmt.Sprintf("(%s) %s", ev.Time.In(loc).Format(TimeLayout), Text(ev))
}

// Text renders ev without the timestamp.
func Text(ev model.Event) string {
	switch ev.Kind {
	case model.KindStartLog:
		return "=== Logging started"
	case model.KindEndLog:
		return "=== Logging ended"
	case model.KindJoin:
		return fmt.Sprintf("=== %s joined the channel", ev.Source)
	case model.KindPart:
		return fmt.Sprintf("=== %s left the channel (%s)", ev.Source, ev.Message)
	case model.KindQuit:
		return fmt.Sprintf("=== %s quit IRC (%s)", ev.Source, ev.Message)
	case model.KindKick:
		return fmt.Sprintf("=== %s was kicked by %s (%s)", ev.Target, ev.Source, ev.Message)
	case model.KindNick:
		return fmt.Sprintf("=== %s changed nick to %s", ev.Source, ev.NewNick)
	case model.KindPrivmsg:
		return fmt.Sprintf("<%s> %s", ev.Source, ev.Message)
	case model.KindAction:
		return fmt.Sprintf("* %s %s", ev.Source, ev.Message)
	}
	return fmt.Sprintf("=== unknown event %q", ev.Kind)
}

// Log writes newest-first events to w oldest-first, one line each.
func Log(w io.Writer, events []model.Event, loc *time.Location) error {
	for i := len(events) - 1; i >= 0; i-- {
		if _, err := fmt.Fprintln(w, Line(events[i], loc)); err != nil {
			return err
		}
	}
	return nil
}
