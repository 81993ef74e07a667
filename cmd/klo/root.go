package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/config"
)

var (
	logLevel   string
	configPath string
	dataDir    string

	// settings and fileDefaults are resolved once in the persistent pre-run
	// and read by every command.
	settings     config.Settings
	fileDefaults config.DefaultsConfig
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "klo",
	Short: "Keyboard layout optimization driven by n-gram statistics",
	Long: `klo scores keyboard layouts against n-gram frequency models and searches
for better ones with simulated annealing, a mayfly swarm or a resumable
generational algorithm.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envCfg, err := config.LoadEnv()
		if err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = envCfg.ConfigPath
		}
		if path == "" {
			path = config.DefaultConfigPath()
		}
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}

		settings = config.Resolve(dataDir, logLevel, envCfg, fileCfg)
		fileDefaults = fileCfg.Defaults

		// Setup logger
		var level slog.Level
		switch settings.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/klo/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for checkpoints, traces and history (default $XDG_DATA_HOME/klo)")
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
