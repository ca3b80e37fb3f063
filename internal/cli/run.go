package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/admin"
	"github.com/rcliao/logbot/internal/agent"
	"github.com/rcliao/logbot/internal/config"
	"github.com/rcliao/logbot/internal/ircconn"
	"github.com/rcliao/logbot/internal/logbook"
	"github.com/rcliao/logbot/internal/maintenance"
	"github.com/rcliao/logbot/internal/membership"
	"github.com/rcliao/logbot/internal/roster"
	"github.com/rcliao/logbot/internal/token"
	"github.com/rcliao/logbot/internal/web"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to IRC and log channels",
		Run:   runAgent,
	}

	cmd.Flags().Bool("serve", false, "Also serve the log reader on http.addr")

	RootCmd.AddCommand(cmd)
}

func runAgent(cmd *cobra.Command, args []string) {
	serve, _ := cmd.Flags().GetBool("serve")

	cfg := loadConfig(true)
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
	logs := logbook.New(s, s, tokens, logbook.Options{
		EventTTL:    cfg.EventTTL,
		URLTemplate: cfg.LogReadURL,
		Logger:      logger,
	})

	desired := membership.New(s, cfg.Channels)
	channels, err := desired.Load(ctx)
	if err != nil {
		exitErr("load channels", err)
	}
	logger.Info("desired channels", zap.Strings("channels", channels))

	live := roster.New()
	conn := ircconn.New(ircconn.Options{
		Servers:  ircServers(cfg.Servers),
		Nick:     cfg.Nick,
		RealName: cfg.RealName,
		Logger:   logger,
	})
	a := agent.New(agent.Deps{
		Transport: conn,
		Logs:      logs,
		Desired:   desired,
		Roster:    live,
		Admin: admin.New(admin.Options{
			Secret:        cfg.AdminSecret,
			EventTTL:      cfg.EventTTL,
			MaxLogEntries: cfg.MaxLogEntries,
		}, live, logs, desired, conn),
		Maintenance: maintenance.New(logs, s, live, cfg.MaxLogEntries, cfg.TrimInterval, logger),
	}, agent.Options{
		Nick:           cfg.Nick,
		NickRetryDelay: cfg.NickRetryDelay,
		Logger:         logger,
	})

	if serve {
		router, err := web.NewRouter(logs, tokens, web.Options{Environment: cfg.Log.Environment, Logger: logger})
		if err != nil {
			exitErr("create router", err)
		}
		go func() {
			if err := web.Serve(ctx, cfg.HTTP.Addr, router, logger); err != nil {
				logger.Error("log reader stopped", zap.Error(err))
			}
		}()
	}

	agentErr := make(chan error, 1)
	go func() {
		agentErr <- a.Run(ctx)
	}()

	// Run returns once the agent has quit. The stop call covers the
	// connection ending on its own, so the agent still shuts down.
	connErr := conn.Run(a.Dispatch)
	stop()
	err = <-agentErr
	if connErr != nil {
		exitErr("connect", connErr)
	}
	if err != nil {
		exitErr("shutdown", err)
	}
}

func ircServers(servers []config.Server) []ircconn.Server {
	out := make([]ircconn.Server, 0, len(servers))
	for _, s := range servers {
		out = append(out, ircconn.Server{Host: s.Host, Port: s.Port, TLS: s.TLS})
	}
	return out
}
