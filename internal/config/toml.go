// Package config provides TOML configuration parsing, environment overrides
// and default path helpers.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Core     CoreConfig     `toml:"core"`
	Defaults DefaultsConfig `toml:"defaults"`
}

// CoreConfig maps process-wide settings.
type CoreConfig struct {
	DataDir  *string `toml:"data-dir"`
	LogLevel *string `toml:"log-level"`
}

// DefaultsConfig maps default inputs for the optimization commands.
type DefaultsConfig struct {
	LayoutConfig       *string `toml:"layout-config"`
	Params             *string `toml:"params"`
	Corpus             *string `toml:"corpus"`
	Ngrams             *string `toml:"ngrams"`
	FixedChars         *string `toml:"fixed-chars"`
	MaxSteps           *int    `toml:"max-steps"`
	CheckpointInterval *int    `toml:"checkpoint-interval"`
	Seed               *int64  `toml:"seed"`
}

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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
