package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show how the session is configured",
		Run:   runInfo,
	}

	RootCmd.AddCommand(cmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	s, err := openSession(cmd)
	if err != nil {
		exitErr("open session", err)
	}
	defer s.Close()

	info := s.Info()
	if formatFlag == "json" {
		printJSON(info)
		return
	}
	fmt.Printf("Session:       %s\n", info.SessionID)
	fmt.Printf("Persona:       %s (%s)\n", info.CharacterName, info.Persona)
	fmt.Printf("User:          %s [%s]\n", info.UserName, info.UserID)
	fmt.Printf("Model:         %s/%s\n", info.Provider, info.Model)
	fmt.Printf("Memory:        %s\n", info.MemoryBackend)
	fmt.Printf("Conversation:  %s\n", info.ConversationBackend)
	fmt.Printf("Rerank:        %t\n", info.RerankEnabled)
	fmt.Printf("Tools:         %s (max %d cycles)\n", strings.Join(info.Tools, ", "), info.MaxToolCycles)
}
