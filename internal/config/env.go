package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// EnvConfig maps KLO_* environment overrides. They sit between the config
// file and command-line flags in precedence.
type EnvConfig struct {
	ConfigPath string `env:"KLO_CONFIG"`
	DataDir    string `env:"KLO_DATA_DIR"`
	LogLevel   string `env:"KLO_LOG_LEVEL"`
}

// LoadEnv parses the environment overrides.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
