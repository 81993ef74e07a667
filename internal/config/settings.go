package config

// Settings are the effective process-wide values after merging all sources.
type Settings struct {
	DataDir  string
	LogLevel string
}

// Resolve merges flag values, environment overrides and the config file into
// effective settings. Precedence from strongest to weakest: flags,
// environment, file, built-in defaults. Empty flag strings mean "not set".
func Resolve(flagDataDir, flagLogLevel string, envCfg EnvConfig, fileCfg FileConfig) Settings {
	s := Settings{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
	}

	if v := fileCfg.Core.DataDir; v != nil && *v != "" {
		s.DataDir = *v
	}
	if v := fileCfg.Core.LogLevel; v != nil && *v != "" {
		s.LogLevel = *v
	}

	if envCfg.DataDir != "" {
		s.DataDir = envCfg.DataDir
	}
	if envCfg.LogLevel != "" {
		s.LogLevel = envCfg.LogLevel
	}

	if flagDataDir != "" {
		s.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		s.LogLevel = flagLogLevel
	}

	return s
}
