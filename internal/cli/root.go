// Package cli implements the pace commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mNandhu/PACE/internal/agent/session"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

var (
	envFile     string
	personaFlag string
	userName    string
	userID      string
	formatFlag  string

	appConfig *session.AppConfig
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "pace",
	Short: "Persona chat with long-term memory",
	Long:  "PACE chats as a configured persona, recalls relevant memories each turn and keeps a durable conversation log.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := session.LoadConfig(envFile)
		if err != nil {
			return err
		}
		if personaFlag != "" {
			cfg.Persona.Name = personaFlag
		}
		if userName != "" {
			cfg.Persona.UserName = userName
		}
		if userID != "" {
			cfg.Persona.UserID = userID
		}
		logx.Init(logx.LoggerOpts{Environment: cfg.Env, Level: cfg.LogLevel})
		appConfig = cfg
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the environment")
	RootCmd.PersistentFlags().StringVarP(&personaFlag, "persona", "p", "", "Persona name (default: $PERSONA_NAME)")
	RootCmd.PersistentFlags().StringVar(&userName, "user-name", "", "How the persona addresses you (default: $USER_NAME)")
	RootCmd.PersistentFlags().StringVar(&userID, "user-id", "", "Memory owner id (default: $USER_ID)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func openSession(cmd *cobra.Command) (*session.Session, error) {
	return session.New(cmd.Context(), appConfig)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
