package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe long-term memory and archive the conversation log",
		Long:  "Clears every memory for the current user, backs up the conversation log and starts it afresh.",
		Run:   runReset,
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This permanently deletes all memories for this user. Continue? [y/N] ") {
		fmt.Println("Aborted.")
		return
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open session", err)
	}
	defer s.Close()

	res, err := s.Reset(cmd.Context())
	if err != nil {
		exitErr("reset", err)
	}

	if formatFlag == "json" {
		printJSON(res)
		return
	}
	fmt.Println("Memory cleared.")
	if res.BackupPath != "" {
		fmt.Printf("Conversation log backed up to %s\n", res.BackupPath)
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
