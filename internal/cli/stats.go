package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show conversation statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openSession(cmd)
	if err != nil {
		exitErr("open session", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "json" {
		printJSON(stats)
		return
	}
	fmt.Printf("Total turns: %d\n", stats.TotalTurns)
	if stats.LastTimestamp != nil {
		fmt.Printf("Last turn:   %s\n", stats.LastTimestamp.Local().Format(time.RFC1123))
	}
}
