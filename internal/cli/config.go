package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atelier/internal/project"
)

// DefaultConfigFile is picked up from the working directory when no
// --config flag is given.
const DefaultConfigFile = "atelier.yaml"

// Config is the atelier.yaml shape. Flags override file values; file
// values override defaults.
type Config struct {
	DataDir    string `yaml:"dataDir"`
	Listen     string `yaml:"listen"`
	DebounceMS int    `yaml:"debounceMs"`
}

func defaultConfig() *Config {
	return &Config{
		DataDir:    "atelier-data",
		Listen:     "127.0.0.1:8737",
		DebounceMS: 500,
	}
}

// LoadConfig reads the config file, falling back to defaults for unset
// fields. A missing default config file is not an error; a missing
// explicitly named one is.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	defaults := defaultConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.Listen == "" {
		cfg.Listen = defaults.Listen
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = defaults.DebounceMS
	}
	return cfg, nil
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *RootOptions) (*Config, error) {
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

// openManager resolves config and opens the lifecycle manager over the
// data directory. One-shot commands call this, do their work, and
// Close.
func openManager(ctx context.Context, opts *RootOptions) (*project.Manager, *Config, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	m, err := project.Open(ctx, cfg.DataDir, project.Options{
		Debounce: time.Duration(cfg.DebounceMS) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open data directory", err)
	}
	return m, cfg, nil
}
