package main

import (
	"os"

	"github.com/rcliao/logbot/internal/cli"
)

func main() {
	cmd := cli.NewReadlogCmd()
	cli.BindConfigFlag(cmd)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
