// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads configuration with environment interpolation. With an empty
// path it searches TBASIC_CONFIG, ./tbasic.yaml and
// ~/.config/tbasic/tbasic.yaml, and falls back to Defaults when none exist.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Defaults(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = filepath.Dir(absPath)
	if cfg.Database != "" && cfg.Database != ":memory:" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(cfg.BaseDir, cfg.Database)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if envPath := getenv("TBASIC_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("TBASIC_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}
	if _, err := os.Stat("tbasic.yaml"); err == nil {
		return "tbasic.yaml", nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "tbasic", "tbasic.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}
	return "", nil
}

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string
	switch c.Dialect {
	case "standard", "terminal":
	default:
		errs = append(errs, fmt.Sprintf("unknown dialect: %q (must be standard or terminal)", c.Dialect))
	}
	if c.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("invalid max_depth: %d (must be positive)", c.MaxDepth))
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce_ms: %d", c.Watch.DebounceMS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid logging.level: %q", l.Level)
	}
	return lvl, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
