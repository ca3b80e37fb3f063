package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/logbot/internal/logbook"
	"github.com/rcliao/logbot/internal/token"
	"github.com/rcliao/logbot/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve channel logs to token holders over HTTP",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(false)
	logger := newLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tokens := token.New(s, cfg.TokenTTL, cfg.TokenLength)
	logs := logbook.New(s, s, tokens, logbook.Options{EventTTL: cfg.EventTTL, Logger: logger})

	router, err := web.NewRouter(logs, tokens, web.Options{Environment: cfg.Log.Environment, Logger: logger})
	if err != nil {
		exitErr("create router", err)
	}
	if err := web.Serve(ctx, cfg.HTTP.Addr, router, logger); err != nil {
		exitErr("serve", err)
	}
}
