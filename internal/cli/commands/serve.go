package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/lineage"
	"github.com/provlens/provlens/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr  string
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lineage query API over HTTP",
		Long: `Build the lineage graph and expose it over HTTP.

With --watch the transition source is watched for changes; the graph is
rebuilt wholesale and swapped atomically, so in-flight queries always
see a consistent graph.`,
		Example: `  provlens serve --addr :8080
  provlens serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := GetConfig(ctx)
			watchPath := cfg.Log
			if watchPath == "" {
				watchPath = cfg.Store
			}

			srv := server.New(server.Config{
				Addr:      opts.Addr,
				Watch:     opts.Watch,
				WatchPath: watchPath,
				Logger:    GetLogger(ctx),
				Rebuild: func(ctx context.Context) (*lineage.Graph, error) {
					return buildGraph(ctx)
				},
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Rebuild the graph when the transition source changes")

	return cmd
}
