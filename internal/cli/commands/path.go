package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/lineage"
)

// pathStep is the JSON shape of one path step.
type pathStep struct {
	ID         string   `json:"id"`
	Transforms []string `json:"transforms,omitempty"`
}

// pathReport is the JSON shape of the path command output.
type pathReport struct {
	Source string     `json:"source"`
	Target string     `json:"target"`
	Steps  []pathStep `json:"steps"`
	Count  int        `json:"step_count"`
}

// NewPathCommand creates the path command.
func NewPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <source-table> <target-table>",
		Short: "Show the transformation path between two tables",
		Example: `  # How raw postings become the NOC dimension
  provlens path raw_postings dim_noc

  # JSON output
  provlens path raw_postings dim_noc -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(cmd, args[0], args[1])
		},
	}
}

func runPath(cmd *cobra.Command, srcTable, dstTable string) error {
	graph, err := buildGraph(cmd.Context())
	if err != nil {
		return err
	}
	resolver := lineage.NewResolver(graph)

	srcCandidates := resolver.ResolveAll(srcTable)
	if len(srcCandidates) == 0 {
		return fmt.Errorf("table not found: %s", lineage.Normalize(srcTable))
	}
	dstCandidates := resolver.ResolveAll(dstTable)
	if len(dstCandidates) == 0 {
		return fmt.Errorf("table not found: %s", lineage.Normalize(dstTable))
	}

	// Earliest source form against latest target form first, so the path
	// spans as much of the pipeline as the provenance supports.
	var path []string
	for _, src := range srcCandidates {
		for i := len(dstCandidates) - 1; i >= 0 && path == nil; i-- {
			path = graph.Path(src, dstCandidates[i])
		}
		if path != nil {
			break
		}
	}
	if path == nil {
		return fmt.Errorf("no lineage path from %s to %s",
			lineage.Normalize(srcTable), lineage.Normalize(dstTable))
	}

	report := pathReport{
		Source: path[0],
		Target: path[len(path)-1],
		Count:  len(path) - 1,
	}
	for i, id := range path {
		step := pathStep{ID: id}
		if i > 0 {
			if attrs, ok := graph.Edge(path[i-1], id); ok {
				step.Transforms = attrs.Transforms
			}
		}
		report.Steps = append(report.Steps, step)
	}

	if GetConfig(cmd.Context()).Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := cmd.OutOrStdout()
	for i, step := range report.Steps {
		marker := ""
		switch i {
		case 0:
			marker = "  [SOURCE]"
		case len(report.Steps) - 1:
			marker = "  [TARGET]"
		}
		_, _ = fmt.Fprintf(out, "%d. %s%s\n", i+1, step.ID, marker)
		if len(step.Transforms) > 0 {
			_, _ = fmt.Fprintf(out, "     | %s\n", strings.Join(step.Transforms, ", "))
		}
	}
	_, _ = fmt.Fprintf(out, "\nTotal steps: %d\n", report.Count)
	return nil
}
