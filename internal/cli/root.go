// Package cli implements the logbot commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/logbot/internal/config"
	"github.com/rcliao/logbot/internal/logging"
	"github.com/rcliao/logbot/internal/store"
)

var (
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "logbot",
	Short: "IRC channel logger",
	Long:  "An IRC agent that logs channel activity and hands out short-lived links to read it.",
}

func init() {
	BindConfigFlag(RootCmd)
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.AddCommand(NewReadlogCmd())
}

// BindConfigFlag adds --config to cmd and its subcommands.
func BindConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $LOGBOT_CONFIG or ./"+config.DefaultFile+")")
}

// loadConfig exits on a config error. full also checks what running
// the agent needs, not just the store settings.
func loadConfig(full bool) config.Config {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		exitErr("load config", err)
	}
	validate := cfg.ValidateStore
	if full {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		exitErr("invalid config", err)
	}
	return cfg
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		exitErr("create logger", err)
	}
	return logger
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DSN:    cfg.Store.DSN,
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
