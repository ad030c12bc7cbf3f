// Package commands implements the provlens subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/provlens/provlens/internal/cli/config"
	"github.com/provlens/provlens/internal/lineage"
	"github.com/provlens/provlens/internal/provenance"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		Store:  config.DefaultStoreFile,
		Layers: lineage.DefaultLayers(),
		Output: config.DefaultOutput,
	}
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// openSource picks the transition record source: an explicit JSONL log
// wins, otherwise the SQLite store. The returned close function is a
// no-op for file sources.
func openSource(cfg *config.Config) (provenance.Source, func(), error) {
	if cfg.Log != "" {
		return provenance.NewJSONLSource(cfg.Log), func() {}, nil
	}

	if _, err := os.Stat(cfg.Store); err != nil {
		return nil, nil, fmt.Errorf("no transition source: set --log or ingest records into %s first", cfg.Store)
	}

	store := provenance.NewStore()
	if err := store.Open(cfg.Store); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// buildGraph reads the configured transition source and builds the
// lineage graph.
func buildGraph(ctx context.Context) (*lineage.Graph, error) {
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	return lineage.Build(ctx, src, lineage.Layers(cfg.Layers), logger)
}

// openStore opens (and migrates) the SQLite provenance store for
// writing, creating its directory when needed.
func openStore(cfg *config.Config) (*provenance.Store, error) {
	dir := filepath.Dir(cfg.Store)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	store := provenance.NewStore()
	if err := store.Open(cfg.Store); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
