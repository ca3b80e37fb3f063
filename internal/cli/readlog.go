package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/logbot/internal/logbook"
	"github.com/rcliao/logbot/internal/model"
	"github.com/rcliao/logbot/internal/render"
)

// Exit codes of the log viewer.
const (
	exitPrinted = 0
	exitNoLog   = 1
	exitUsage   = 255
)

// logReader is what the viewer needs from the log service.
type logReader interface {
	GetLog(ctx context.Context, channel string) ([]model.Event, bool, error)
}

// NewReadlogCmd returns the log viewer. It is both a logbot subcommand
// and the whole of the standalone readlog binary.
func NewReadlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readlog <channel>",
		Short: "Print a channel's log, oldest first",
		Args:  cobra.ArbitraryArgs,
		Run:   runReadlog,
	}
}

func runReadlog(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: "+cmd.UseLine())
		os.Exit(exitUsage)
	}

	cfg := loadConfig(false)
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}

	logs := logbook.New(s, s, nil, logbook.Options{EventTTL: cfg.EventTTL})
	code := readlog(cmd.Context(), logs, args[0], os.Stdout, os.Stderr, time.Local)
	s.Close()
	if code != exitPrinted {
		os.Exit(code)
	}
}

// readlog prints channel's live events and returns the exit code.
func readlog(ctx context.Context, logs logReader, channel string, stdout, stderr io.Writer, loc *time.Location) int {
	events, ok, err := logs.GetLog(ctx, channel)
	if err != nil {
		fmt.Fprintf(stderr, "error: get log: %v\n", err)
		return exitNoLog
	}
	if !ok {
		fmt.Fprintf(stderr, "No log for %s.\n", channel)
		return exitNoLog
	}
	if len(events) == 0 {
		fmt.Fprintf(stderr, "The log for %s is empty.\n", channel)
		return exitNoLog
	}
	if err := render.Log(stdout, events, loc); err != nil {
		fmt.Fprintf(stderr, "error: write log: %v\n", err)
		return exitNoLog
	}
	return exitPrinted
}
