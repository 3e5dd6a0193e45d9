// Package config assembles linkreaper's settings from, in increasing order
// of precedence: built-in defaults, an optional YAML file, LINKREAPER_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/checker"
)

// Output formats for non-interactive mode.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// StatusBroken is the status filter matching invalid and timed-out bookmarks.
const StatusBroken = "broken"

const envPrefix = "LINKREAPER_"

// Config holds every setting of a linkreaper run.
type Config struct {
	Bookmarks string `yaml:"bookmarks"` // bookmark file; format chosen by extension
	Folder    string `yaml:"folder"`    // only check bookmarks under this folder ID
	History   string `yaml:"history"`   // SQLite history database; empty disables history

	BatchSize      int             `yaml:"batch_size"`
	BatchDelay     time.Duration   `yaml:"batch_delay"`
	MaxAttempts    int             `yaml:"max_attempts"`
	RetryDelays    []time.Duration `yaml:"retry_delays"`
	Timeout        time.Duration   `yaml:"timeout"`      // first attempt
	TimeoutStep    time.Duration   `yaml:"timeout_step"` // added per retry
	ConnectTimeout time.Duration   `yaml:"connect_timeout"`
	RateLimit      int             `yaml:"rate_limit"` // requests per second, 0 = unlimited
	UserAgent      string          `yaml:"user_agent"`
	Strict         bool            `yaml:"strict"` // HTTP error statuses count as failures

	NoTUI  bool   `yaml:"no_tui"`
	Format string `yaml:"format"` // text | json | csv
	Status string `yaml:"status"` // only report this status, or "broken"
	Search string `yaml:"search"` // only report bookmarks whose title or URL contains this
	Sort   string `yaml:"sort"`   // report order: title, url or dateAdded; empty = bookmark order
	Desc   bool   `yaml:"desc"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"` // empty discards logs

	ConfigFile string `yaml:"-"`
}

// Default returns the built-in defaults.
func Default() Config {
	policy := checker.DefaultRetryPolicy()
	return Config{
		Bookmarks:      DefaultBookmarksPath(),
		BatchSize:      checker.DefaultBatchSize,
		BatchDelay:     checker.DefaultBatchDelay,
		MaxAttempts:    policy.MaxAttempts,
		RetryDelays:    policy.Delays,
		Timeout:        policy.TimeoutBase,
		TimeoutStep:    policy.TimeoutStep,
		ConnectTimeout: checker.DefaultConnectTimeout,
		UserAgent:      checker.DefaultUserAgent,
		Format:         FormatText,
		LogLevel:       "info",
	}
}

// DefaultBookmarksPath returns the Bookmarks file of the default Chrome
// profile for the current OS, or "" if the home directory is unknown.
func DefaultBookmarksPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Google", "Chrome", "User Data", "Default", "Bookmarks")
		}
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default", "Bookmarks")
	default:
		return filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks")
	}
}

// LoadFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays LINKREAPER_* variables looked up with getenv onto c.
// Unset or empty variables are ignored; malformed values are errors.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	env := envReader{getenv: getenv}

	env.str("BOOKMARKS", &c.Bookmarks)
	env.str("FOLDER", &c.Folder)
	env.str("HISTORY", &c.History)
	env.int("BATCH_SIZE", &c.BatchSize)
	env.duration("BATCH_DELAY", &c.BatchDelay)
	env.int("MAX_ATTEMPTS", &c.MaxAttempts)
	env.durations("RETRY_DELAYS", &c.RetryDelays)
	env.duration("TIMEOUT", &c.Timeout)
	env.duration("TIMEOUT_STEP", &c.TimeoutStep)
	env.duration("CONNECT_TIMEOUT", &c.ConnectTimeout)
	env.int("RATE_LIMIT", &c.RateLimit)
	env.str("USER_AGENT", &c.UserAgent)
	env.bool("STRICT", &c.Strict)
	env.bool("NO_TUI", &c.NoTUI)
	env.str("FORMAT", &c.Format)
	env.str("STATUS", &c.Status)
	env.str("SEARCH", &c.Search)
	env.str("SORT", &c.Sort)
	env.bool("DESC", &c.Desc)
	env.str("LOG_LEVEL", &c.LogLevel)
	env.str("LOG_FILE", &c.LogFile)

	return errors.Join(env.errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Bookmarks == "" {
		errs = append(errs, errors.New("no bookmark file given"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("batch delay must not be negative, got %v", c.BatchDelay))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts))
	}
	for _, d := range c.RetryDelays {
		if d < 0 {
			errs = append(errs, fmt.Errorf("retry delays must not be negative, got %v", d))
			break
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.TimeoutStep < 0 {
		errs = append(errs, fmt.Errorf("timeout step must not be negative, got %v", c.TimeoutStep))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit))
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatCSV:
	default:
		errs = append(errs, fmt.Errorf("unknown format %q (want text, json or csv)", c.Format))
	}
	if c.Status != "" && c.Status != StatusBroken {
		if _, err := bookmark.ParseStatus(c.Status); err != nil {
			errs = append(errs, fmt.Errorf("status filter: %w", err))
		}
	}
	if c.Sort != "" {
		if _, err := bookmark.ParseSortField(c.Sort); err != nil {
			errs = append(errs, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Checker returns the checker settings.
func (c Config) Checker() checker.Config {
	return checker.Config{
		BatchSize:  c.BatchSize,
		BatchDelay: c.BatchDelay,
		RetryPolicy: checker.RetryPolicy{
			MaxAttempts: c.MaxAttempts,
			Delays:      c.RetryDelays,
			TimeoutBase: c.Timeout,
			TimeoutStep: c.TimeoutStep,
		},
		RateLimit:      c.RateLimit,
		ConnectTimeout: c.ConnectTimeout,
		UserAgent:      c.UserAgent,
		StrictStatus:   c.Strict,
	}
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(envPrefix + key))
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", envPrefix, key, v, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = i
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) durations(key string, dst *[]time.Duration) {
	if v, ok := e.lookup(key); ok {
		ds, err := parseDurations(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = ds
	}
}

// parseDurations parses a comma-separated list such as "0s, 1s, 2s".
func parseDurations(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func formatDurations(ds []time.Duration) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}
