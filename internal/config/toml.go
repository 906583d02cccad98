// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Storage    StorageConfig    `toml:"storage"`
	Evaluation EvaluationConfig `toml:"evaluation"`
	Output     OutputConfig     `toml:"output"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend     *string `toml:"backend"`
	Path        *string `toml:"path"`
	RedisAddr   *string `toml:"redis-addr"`
	RedisPrefix *string `toml:"redis-prefix"`
}

// EvaluationConfig maps evaluation defaults.
type EvaluationConfig struct {
	Template *string `toml:"template"`
}

// OutputConfig maps console output settings.
type OutputConfig struct {
	Color *string `toml:"color"`
}

// Color modes accepted by [output] color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	if c.Output.Color != nil {
		switch *c.Output.Color {
		case ColorAuto, ColorAlways, ColorNever:
		default:
			return fmt.Errorf("output.color must be auto, always or never, got %q", *c.Output.Color)
		}
	}
	if c.Storage.Backend != nil {
		switch *c.Storage.Backend {
		case "sqlite", "redis", "memory":
		default:
			return fmt.Errorf("storage.backend must be sqlite, redis or memory, got %q", *c.Storage.Backend)
		}
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}
