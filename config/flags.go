package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// durationList is a flag.Value for a comma-separated list of durations.
type durationList struct {
	dst *[]time.Duration
}

func (d durationList) String() string {
	if d.dst == nil {
		return ""
	}
	return formatDurations(*d.dst)
}

func (d durationList) Set(s string) error {
	ds, err := parseDurations(s)
	if err != nil {
		return err
	}
	*d.dst = ds
	return nil
}

// bind registers every flag on fs, writing into c. Each flag's default is
// c's current value, so parsing changes only the flags actually given.
func bind(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML config file")
	fs.StringVar(&c.Folder, "folder", c.Folder, "only check bookmarks under this folder ID")
	fs.StringVar(&c.History, "history", c.History, "SQLite file recording check history (empty = off)")

	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "bookmarks checked concurrently per batch")
	fs.DurationVar(&c.BatchDelay, "batch-delay", c.BatchDelay, "pause between batches")
	fs.IntVar(&c.MaxAttempts, "attempts", c.MaxAttempts, "attempts per URL, including the first")
	fs.Var(durationList{&c.RetryDelays}, "retry-delays", "comma-separated wait before each attempt; the last value repeats")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "timeout of the first attempt")
	fs.DurationVar(&c.TimeoutStep, "timeout-step", c.TimeoutStep, "timeout added for each retry")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "TCP connect timeout")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "max requests per second (0 = unlimited)")
	fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "user agent string")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "count HTTP 4xx/5xx responses as broken")

	fs.BoolVar(&c.NoTUI, "no-tui", c.NoTUI, "print a report instead of starting the interactive UI")
	fs.StringVar(&c.Format, "format", c.Format, "report format with --no-tui: text, json or csv")
	fs.StringVar(&c.Status, "status", c.Status, "only report this status (valid, invalid, timeout, broken)")
	fs.StringVar(&c.Search, "search", c.Search, "only report bookmarks whose title or URL contains this text")
	fs.StringVar(&c.Sort, "sort", c.Sort, "report order: title, url or dateAdded")
	fs.BoolVar(&c.Desc, "desc", c.Desc, "reverse the report order")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write JSON logs to this file")
}

// Load builds the configuration for a run from command-line args (without
// the program name) and the environment. The optional positional argument
// is the bookmark file. Load returns flag.ErrHelp when help was requested.
func Load(args []string, getenv func(string) string, output io.Writer) (Config, error) {
	// First pass: only to find --config. Errors are reported by the second.
	probe := Default()
	first := flag.NewFlagSet("linkreaper", flag.ContinueOnError)
	first.SetOutput(io.Discard)
	bind(first, &probe)
	_ = first.Parse(args)

	cfg := Default()
	if probe.ConfigFile != "" {
		if err := cfg.LoadFile(probe.ConfigFile); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	fs := flag.NewFlagSet("linkreaper", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: linkreaper [flags] [bookmark-file]")
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	bind(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 1 {
		return cfg, fmt.Errorf("expected at most one bookmark file, got %d arguments", fs.NArg())
	}
	if fs.NArg() == 1 {
		cfg.Bookmarks = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
