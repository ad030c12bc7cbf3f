package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/query"
)

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a natural-language lineage question",
		Long: `Answer a lineage question against the provenance graph.

With no arguments an interactive prompt is opened. Recognized question
shapes cover upstream ("where does X come from"), downstream ("what does
X feed"), full lineage ("show lineage for X"), and paths ("how does X
become Y"). Anything else prints the supported phrasings.`,
		Example: `  # One-shot question
  provlens ask "where does dim_noc come from?"

  # Interactive prompt
  provlens ask`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := buildGraph(cmd.Context())
			if err != nil {
				return err
			}
			engine := query.NewEngine(graph, GetLogger(cmd.Context()))

			if len(args) > 0 {
				question := strings.Join(args, " ")
				fmt.Fprintln(cmd.OutOrStdout(), engine.Query(question))
				return nil
			}

			return runAskREPL(cmd, engine)
		},
	}
}

func runAskREPL(cmd *cobra.Command, engine *query.Engine) error {
	cfg := GetConfig(cmd.Context())
	historyFile := filepath.Join(filepath.Dir(cfg.Store), "ask_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "provlens> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "provlens lineage prompt")
	_, _ = fmt.Fprintln(out, "Ask a question, or .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case ".quit", ".exit":
			return nil
		case ".help":
			_, _ = fmt.Fprintln(out, engine.Query(""))
			continue
		}

		_, _ = fmt.Fprintln(out, engine.Query(line))
	}
}
