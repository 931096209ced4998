package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mNandhu/PACE/internal/agent/model"
)

func TestREPL(t *testing.T) {
	var inputs []string
	var out bytes.Buffer
	r := repl{
		chat: func(_ context.Context, in string) (*model.PipelineState, error) {
			inputs = append(inputs, in)
			return &model.PipelineState{FinalResponse: "re: " + in}, nil
		},
		character: "Ada",
		out:       &out,
	}

	err := r.run(context.Background(), strings.NewReader("hello\n\n  second  \n/quit\nnever\n"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(inputs, "|") != "hello|second" {
		t.Errorf("unexpected inputs %v", inputs)
	}
	if !strings.Contains(out.String(), "Ada: re: second\n") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestREPLStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	r := repl{
		chat: func(context.Context, string) (*model.PipelineState, error) { return nil, boom },
		out:  &bytes.Buffer{},
	}
	if err := r.run(context.Background(), strings.NewReader("hi\n")); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestVerboseTurn(t *testing.T) {
	var out bytes.Buffer
	r := repl{
		chat: func(context.Context, string) (*model.PipelineState, error) {
			s := &model.PipelineState{FinalResponse: "ok"}
			s.Metadata.PipelineID = "p1"
			s.Metadata.NodesExecuted = []string{"START", "GENERATE"}
			s.Metadata.ModelCalls = 1
			return s, nil
		},
		character: "Ada",
		verbose:   true,
		out:       &out,
	}
	if err := r.turn(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[pipeline p1] nodes=START>GENERATE model_calls=1") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "": false, "yes": true}
	for in, want := range tests {
		if got := confirm(strings.NewReader(in), &bytes.Buffer{}, "? "); got != want {
			t.Errorf("confirm(%q) = %t", in, got)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"chat", "info", "personas", "reset", "search", "stats"}
	for _, name := range want {
		cmd, _, err := RootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %s not registered", name)
		}
	}
}
