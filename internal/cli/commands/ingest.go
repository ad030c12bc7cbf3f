package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provlens/provlens/internal/provenance"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Load transition records into the provenance store",
		Long: `Read transition records from JSONL logs (.jsonl, .ndjson) or YAML
seed files (.yaml, .yml) and append them to the SQLite provenance store.
Records without a transition id are assigned one; re-ingesting the same
id overwrites the earlier record.`,
		Example: `  provlens ingest pipeline/transitions.jsonl
  provlens ingest seeds/backfill.yaml --store .provlens/provenance.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	totalLoaded, totalSkipped := 0, 0
	for _, path := range args {
		var src provenance.Source
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl", ".ndjson":
			src = provenance.NewJSONLSource(path)
		case ".yaml", ".yml":
			src = provenance.NewYAMLSource(path)
		default:
			return fmt.Errorf("unsupported transition file %s (want .jsonl, .ndjson, .yaml, or .yml)", path)
		}

		var batch []provenance.Transition
		skipped, err := src.Each(ctx, func(rec provenance.Transition) error {
			batch = append(batch, rec)
			return nil
		})
		if err != nil {
			return err
		}
		if err := store.Append(ctx, batch); err != nil {
			return err
		}

		logger.Debug("ingested transition file", "file", path, "records", len(batch), "skipped", skipped)
		totalLoaded += len(batch)
		totalSkipped += skipped
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Ingested %d records (%d malformed skipped)\n", totalLoaded, totalSkipped)
	_, _ = fmt.Fprintf(out, "Store %s now holds %d transitions\n", cfg.Store, count)
	return nil
}
