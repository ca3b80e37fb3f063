package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig(false)
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("driver: %s\n", stats.Driver)
		if stats.DBPath != "" {
			fmt.Printf("path: %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		}
		fmt.Printf("events: %d (%d live)\n", stats.Events, stats.LiveEvents)
		fmt.Printf("tokens: %d live\n", stats.LiveTokens)
		for _, ch := range stats.Channels {
			fmt.Printf("%s: %d entries\n", ch.Channel, ch.Entries)
		}
		return
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
