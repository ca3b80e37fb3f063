package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/logbot/internal/membership"
)

func init() {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the channels the agent will join",
		Run:   runChannels,
	}

	RootCmd.AddCommand(cmd)
}

func runChannels(cmd *cobra.Command, args []string) {
	cfg := loadConfig(false)
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	channels, err := membership.New(s, cfg.Channels).Load(cmd.Context())
	if err != nil {
		exitErr("load channels", err)
	}

	if formatFlag == "text" {
		for _, ch := range channels {
			fmt.Println(ch)
		}
		return
	}

	b, _ := json.MarshalIndent(channels, "", "  ")
	fmt.Println(string(b))
}
