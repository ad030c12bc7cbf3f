package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/lineage"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Layer      string
	Upstream   bool
	Downstream bool
}

// lineageNode is the JSON shape of one lineage entry.
type lineageNode struct {
	ID         string   `json:"id"`
	Layer      string   `json:"layer"`
	Table      string   `json:"table"`
	Transforms []string `json:"transforms,omitempty"`
}

// lineageReport is the JSON shape of the lineage command output.
type lineageReport struct {
	Root       string        `json:"root"`
	Upstream   []lineageNode `json:"upstream,omitempty"`
	Downstream []lineageNode `json:"downstream,omitempty"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <table>",
		Short: "Show upstream and downstream lineage for a table",
		Long: `Display the upstream ancestors and downstream descendants of a table,
with the transforms recorded against each node.

When the table exists at several layers the most-downstream form is
used unless --layer picks one explicitly.`,
		Example: `  # Full lineage for a table
  provlens lineage dim_noc

  # Only upstream ancestors
  provlens lineage dim_noc --downstream=false

  # Pin the layer
  provlens lineage raw_postings --layer staged

  # JSON output
  provlens lineage dim_noc -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Layer, "layer", "", "Resolve the table at this layer")
	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream ancestors")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream descendants")

	return cmd
}

func runLineage(cmd *cobra.Command, tableName string, opts *LineageOptions) error {
	graph, err := buildGraph(cmd.Context())
	if err != nil {
		return err
	}

	resolver := lineage.NewResolver(graph)
	id, ok := resolver.Resolve(tableName, opts.Layer)
	if !ok {
		return fmt.Errorf("table not found: %s", lineage.Normalize(tableName))
	}
	layer, tbl := lineage.SplitNodeID(id)

	report := lineageReport{Root: id}
	if opts.Upstream {
		report.Upstream = toNodes(graph, graph.Upstream(tbl, layer))
	}
	if opts.Downstream {
		report.Downstream = toNodes(graph, graph.Downstream(tbl, layer))
	}

	if GetConfig(cmd.Context()).Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderLineage(cmd.OutOrStdout(), report, opts)
}

func toNodes(graph *lineage.Graph, ids []string) []lineageNode {
	nodes := make([]lineageNode, 0, len(ids))
	for _, id := range ids {
		layer, tbl := lineage.SplitNodeID(id)
		nodes = append(nodes, lineageNode{
			ID:         id,
			Layer:      layer,
			Table:      tbl,
			Transforms: graph.NodeTransforms(id),
		})
	}
	return nodes
}

func renderLineage(w io.Writer, report lineageReport, opts *LineageOptions) error {
	_, _ = fmt.Fprintf(w, "Lineage for: %s\n\n", report.Root)

	if opts.Upstream {
		_, _ = fmt.Fprintf(w, "Upstream ancestors (%d):\n", len(report.Upstream))
		renderNodeTable(w, report.Upstream)
		_, _ = fmt.Fprintln(w)
	}
	if opts.Downstream {
		_, _ = fmt.Fprintf(w, "Downstream descendants (%d):\n", len(report.Downstream))
		renderNodeTable(w, report.Downstream)
	}
	return nil
}

func renderNodeTable(w io.Writer, nodes []lineageNode) {
	if len(nodes) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Layer", "Table", "Transforms"})
	for _, n := range nodes {
		t.AppendRow(table.Row{n.Layer, n.Table, strings.Join(n.Transforms, ", ")})
	}
	t.Render()
}
