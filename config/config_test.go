package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaultsMatchChecker(t *testing.T) {
	cfg := Default()
	if cfg.BatchSize != 5 || cfg.BatchDelay != 500*time.Millisecond {
		t.Errorf("batch defaults = %d/%v, want 5/500ms", cfg.BatchSize, cfg.BatchDelay)
	}
	cc := cfg.Checker()
	if cc.RetryPolicy.MaxAttempts != 3 || cc.RetryPolicy.TimeoutBase != 15*time.Second || cc.RetryPolicy.TimeoutStep != 5*time.Second {
		t.Errorf("retry policy = %+v", cc.RetryPolicy)
	}
	if cfg.Format != FormatText || cfg.Strict {
		t.Errorf("Format = %q Strict = %v", cfg.Format, cfg.Strict)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "linkreaper.yaml")
	yamlData := `bookmarks: /from/file
batch_size: 8
batch_delay: 1s
retry_delays: [0s, 3s]
format: json
`
	if err := os.WriteFile(cfgFile, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	env := envMap(map[string]string{
		"LINKREAPER_BATCH_SIZE": "9",
		"LINKREAPER_STRICT":     "true",
		"LINKREAPER_FORMAT":     "csv",
	})
	args := []string{"--config", cfgFile, "--format", "text", "/from/args"}

	cfg, err := Load(args, env, io.Discard)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"positional bookmark file beats file", cfg.Bookmarks, "/from/args"},
		{"env beats file", cfg.BatchSize, 9},
		{"file beats default", cfg.BatchDelay, time.Second},
		{"file list", formatDurations(cfg.RetryDelays), "0s,3s"},
		{"flag beats env", cfg.Format, FormatText},
		{"env bool", cfg.Strict, true},
		{"default kept", cfg.MaxAttempts, 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadRetryDelaysFlag(t *testing.T) {
	if _, err := Load([]string{"--no-such-flag"}, envMap(nil), io.Discard); err == nil {
		t.Fatal("unknown flag should be an error")
	}

	cfg, err := Load([]string{"--retry-delays", "0s,250ms", "b.html"}, envMap(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := formatDurations(cfg.RetryDelays); got != "0s,250ms" {
		t.Errorf("RetryDelays = %s", got)
	}
}

func TestLoadHelp(t *testing.T) {
	var out strings.Builder
	_, err := Load([]string{"-h"}, envMap(nil), &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("Load(-h) error = %v, want flag.ErrHelp", err)
	}
	if !strings.Contains(out.String(), "Usage: linkreaper") {
		t.Errorf("usage not printed: %q", out.String())
	}
}

func TestApplyEnvErrors(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"LINKREAPER_BATCH_SIZE":   "many",
		"LINKREAPER_BATCH_DELAY":  "soon",
		"LINKREAPER_RETRY_DELAYS": "1s,x",
	}))
	if err == nil {
		t.Fatal("expected errors for malformed variables")
	}
	for _, key := range []string{"BATCH_SIZE", "BATCH_DELAY", "RETRY_DELAYS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize changed to %d on a bad value", cfg.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"no bookmarks", func(c *Config) { c.Bookmarks = "" }, "no bookmark file"},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "batch size"},
		{"attempts", func(c *Config) { c.MaxAttempts = 0 }, "max attempts"},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"rate limit", func(c *Config) { c.RateLimit = -1 }, "rate limit"},
		{"format", func(c *Config) { c.Format = "xml" }, "unknown format"},
		{"status", func(c *Config) { c.Status = "dead" }, "status filter"},
		{"broken status", func(c *Config) { c.Status = StatusBroken }, ""},
		{"sort", func(c *Config) { c.Sort = "size" }, "unknown sort field"},
		{"sort by date", func(c *Config) { c.Sort = "dateAdded"; c.Desc = true }, ""},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Bookmarks = "Bookmarks"
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("batch_size: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
