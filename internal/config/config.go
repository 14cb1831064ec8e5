// Package config loads the tbasic CLI configuration file.
package config

// Config is the CLI configuration.
type Config struct {
	BaseDir     string        `yaml:"-"`            // directory of the config file, for relative paths
	Dialect     string        `yaml:"dialect"`      // "standard" or "terminal"
	Database    string        `yaml:"database"`     // SQLite program library; empty keeps programs in memory
	HistoryFile string        `yaml:"history_file"` // REPL line history
	MaxDepth    int           `yaml:"max_depth"`
	ImplicitLet bool          `yaml:"implicit_let"`
	Logging     LoggingConfig `yaml:"logging"`
	Watch       WatchConfig   `yaml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// WatchConfig holds settings for rerunning a program on change.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	return &Config{
		Dialect:     "standard",
		HistoryFile: "~/.tbasic_history",
		MaxDepth:    2000,
		ImplicitLet: true,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Watch: WatchConfig{DebounceMS: 200},
	}
}
