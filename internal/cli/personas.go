package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mNandhu/PACE/internal/agent/persona"
)

func init() {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List available personas",
		Run:   runPersonas,
	}

	RootCmd.AddCommand(cmd)
}

func runPersonas(cmd *cobra.Command, args []string) {
	names, err := persona.Available(appConfig.Persona.Dir)
	if err != nil {
		exitErr("list personas", err)
	}

	if formatFlag == "json" {
		printJSON(names)
		return
	}
	if len(names) == 0 {
		fmt.Printf("No personas found in %s\n", appConfig.Persona.Dir)
		return
	}
	for _, n := range names {
		marker := " "
		if n == appConfig.Persona.Name {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, n)
	}
}
