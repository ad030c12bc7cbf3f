// Package config loads provlens configuration from file, environment,
// and CLI flags. It is decoupled from command wiring so the server and
// tests can load project configuration directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultStoreFile = ".provlens/provenance.db"
	DefaultOutput    = "text"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for config files.
const maxUpwardSearchLevels = 10

// Config holds the resolved provlens configuration.
type Config struct {
	// Log is the path to a JSONL transition log. When set it takes
	// precedence over the store as the graph's record source.
	Log string `koanf:"log"`
	// Store is the path to the SQLite provenance store.
	Store string `koanf:"store"`
	// Layers is the canonical ordered layer-name sequence.
	Layers []string `koanf:"layers"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
	// Output selects the render format (text|json).
	Output string `koanf:"output"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > provlens.yaml > provlens.yml, searching
// upward from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{"provlens.yaml", "provlens.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration with precedence (highest to lowest):
// flags > env vars (PROVLENS_ prefix) > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"store":   DefaultStoreFile,
		"layers":  []string{"staged", "bronze", "silver", "gold"},
		"verbose": false,
		"output":  DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file.
	if found := findConfigFile(cfgFile); found != "" {
		if err := k.Load(file.Provider(found), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", found, err)
		}
	}

	// 3. Environment variables: PROVLENS_STORE -> store.
	if err := k.Load(env.Provider("PROVLENS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PROVLENS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
