package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mNandhu/PACE/internal/agent/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long:  "Chat with the configured persona. Type /quit to leave. Use -m for a single message.",
		Run:   runChat,
	}

	cmd.Flags().StringP("message", "m", "", "Send one message and exit")
	cmd.Flags().BoolP("verbose", "v", false, "Print pipeline metadata after each reply")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	message, _ := cmd.Flags().GetString("message")
	verbose, _ := cmd.Flags().GetBool("verbose")

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open session", err)
	}
	defer s.Close()

	r := repl{
		chat:      s.Chat,
		character: s.Persona().DisplayName(),
		verbose:   verbose,
		out:       cmd.OutOrStdout(),
	}
	if message != "" {
		if err := r.turn(cmd.Context(), message); err != nil {
			exitErr("chat", err)
		}
		return
	}

	fmt.Fprintf(r.out, "Chatting with %s (session %s). Type /quit to leave.\n", r.character, s.ID())
	if err := r.run(cmd.Context(), cmd.InOrStdin()); err != nil {
		exitErr("chat", err)
	}
}

type repl struct {
	chat      func(context.Context, string) (*model.PipelineState, error)
	character string
	verbose   bool
	out       io.Writer
}

func (r repl) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "You: ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := r.turn(ctx, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r repl) turn(ctx context.Context, input string) error {
	state, err := r.chat(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s: %s\n", r.character, state.FinalResponse)
	if r.verbose {
		md := state.Metadata
		fmt.Fprintf(r.out, "  [pipeline %s] nodes=%s model_calls=%d tool_cycles=%d context_hits=%d cost=$%.6f memory_updated=%t\n",
			md.PipelineID, strings.Join(md.NodesExecuted, ">"), md.ModelCalls, md.ToolCycles, md.ContextHits, md.TotalCostUSD, md.MemoryUpdated)
	}
	return nil
}
