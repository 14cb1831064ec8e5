package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noenv(string) string { return "" }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tbasic.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Dialect != "standard" {
		t.Errorf("expected default dialect 'standard', got %q", cfg.Dialect)
	}
	if cfg.MaxDepth != 2000 {
		t.Errorf("expected default max depth 2000, got %d", cfg.MaxDepth)
	}
	if !cfg.ImplicitLet {
		t.Error("expected implicit LET on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
dialect: terminal
database: ${DB_NAME:-programs.db}
max_depth: 64
implicit_let: false
logging:
  level: debug
`)
	cfg, err := Load(path, noenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dialect != "terminal" || cfg.MaxDepth != 64 || cfg.ImplicitLet {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if want := filepath.Join(filepath.Dir(path), "programs.db"); cfg.Database != want {
		t.Errorf("expected database %q, got %q", want, cfg.Database)
	}
	if cfg.Watch.DebounceMS != 200 {
		t.Errorf("unset fields should keep defaults, got debounce %d", cfg.Watch.DebounceMS)
	}
	lvl, err := cfg.Logging.SlogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("expected debug level, got %v (%v)", lvl, err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		if key == "TB_DIALECT" {
			return "terminal"
		}
		return ""
	}
	tests := []struct {
		input, expected string
	}{
		{"dialect: ${TB_DIALECT}", "dialect: terminal"},
		{"dialect: ${TB_DIALECT:-standard}", "dialect: terminal"},
		{"dialect: ${UNSET:-standard}", "dialect: standard"},
		{"dialect: ${UNSET}", "dialect: "},
	}
	for _, tt := range tests {
		if got := string(interpolateEnv([]byte(tt.input), getenv)); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "dialect: cobol\nmax_depth: 0\nlogging:\n  level: loud\n")
	_, err := Load(path, noenv)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"dialect", "max_depth", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noenv); err == nil {
		t.Error("expected error for a missing config file")
	}
}
