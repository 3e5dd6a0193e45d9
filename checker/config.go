package checker

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is how many bookmarks are probed concurrently.
	DefaultBatchSize = 5
	// DefaultBatchDelay is the pause between batches.
	DefaultBatchDelay = 500 * time.Millisecond
	// DefaultConnectTimeout bounds the TCP connect of a single probe. A host
	// that does not accept a connection within it is reported as dead.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultUserAgent mimics a desktop browser; some sites refuse unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds checker configuration.
type Config struct {
	BatchSize      int           // bookmarks probed concurrently per batch (default 5)
	BatchDelay     time.Duration // pause between batches (default 500ms)
	RetryPolicy    RetryPolicy   // attempts, delays and timeouts per URL
	RateLimit      int           // max probe requests per second across the session; 0 = unlimited
	ConnectTimeout time.Duration // TCP connect timeout for HTTPProber (default 10s)
	UserAgent      string        // User-Agent header sent by HTTPProber
	StrictStatus   bool          // treat HTTP error statuses as failures instead of "responded"
}

// DefaultConfig returns a Config with the defaults above.
func DefaultConfig() Config {
	return Config{
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
		RetryPolicy:    DefaultRetryPolicy(),
		ConnectTimeout: DefaultConnectTimeout,
		UserAgent:      DefaultUserAgent,
	}
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = DefaultBatchDelay
	}
	if c.RetryPolicy.MaxAttempts <= 0 {
		c.RetryPolicy = DefaultRetryPolicy()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// newLimiter returns a limiter allowing rps requests per second with a
// burst of rps. Non-positive rps disables limiting.
func newLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}
