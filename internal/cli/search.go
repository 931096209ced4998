package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search long-term memory",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (default: $MEMORY_MAX_RESULTS)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open session", err)
	}
	defer s.Close()

	res, err := s.SearchMemories(cmd.Context(), query, limit)
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "json" {
		printJSON(res)
		return
	}
	if res.Len() == 0 {
		fmt.Println("No memories found.")
		return
	}
	for i, h := range res.Hits {
		fmt.Printf("%d. [%.3f] %s\n", i+1, h.Score, h.Text)
	}
	for _, r := range res.Relations {
		fmt.Printf("   related: %s\n", r.Text)
	}
}
