// Package checker decides whether bookmark URLs are still alive. It probes
// each URL with a bounded retry schedule, short-circuits local and intranet
// addresses, and drains a queue of bookmarks in small sequential batches
// while streaming progress events.
package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/logger"
	"github.com/lukemcguire/linkreaper/result"
	"github.com/lukemcguire/linkreaper/urlutil"
)

// errCancelled is reported when a check was cancelled before any attempt ran.
var errCancelled = errors.New("check cancelled before the first attempt")

// CheckResult is the outcome of checking one URL.
type CheckResult struct {
	Status     bookmark.Status // Valid, Invalid or Timeout
	URL        string
	Skipped    bool // local or intranet URL, never probed
	Error      string
	Category   result.ErrorCategory
	StatusCode int
	Attempts   int
}

// Checker probes URLs. It is safe for concurrent use.
type Checker struct {
	cfg     Config
	prober  Prober
	limiter *rate.Limiter
	log     logger.Logger
}

// New creates a Checker. A nil prober means an HTTPProber built from cfg;
// a nil log discards log output.
func New(cfg Config, prober Prober, log logger.Logger) *Checker {
	cfg = cfg.withDefaults()
	if prober == nil {
		prober = NewHTTPProber(cfg)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Checker{
		cfg:     cfg,
		prober:  prober,
		limiter: newLimiter(cfg.RateLimit),
		log:     log,
	}
}

// Config returns the effective configuration, defaults applied.
func (c *Checker) Config() Config {
	return c.cfg
}

// IsLocalOrIntranet reports whether rawURL points at this machine or a
// private network and therefore cannot be probed meaningfully.
func IsLocalOrIntranet(rawURL string) bool {
	return urlutil.IsLocalOrIntranet(rawURL)
}

// CheckOne determines the status of a single URL. It never returns an
// error: every failure is folded into the result.
//
// Local and intranet URLs are valid without probing. Any other URL is
// probed under the retry policy; a response of any kind means valid, a DNS
// failure or refused connection means invalid at once, and running out of
// attempts means timeout.
func (c *Checker) CheckOne(ctx context.Context, rawURL string) CheckResult {
	if IsLocalOrIntranet(rawURL) {
		return CheckResult{Status: bookmark.Valid, URL: rawURL, Skipped: true}
	}

	res, attempts := Retry(ctx, c.cfg.RetryPolicy, func(actx context.Context, attempt int) (CheckResult, bool) {
		return c.attempt(actx, rawURL, attempt)
	})
	res.URL = rawURL
	res.Attempts = attempts

	if attempts == 0 {
		res.Status = bookmark.Timeout
		res.Category = result.CategoryTimeout
		res.Error = errCancelled.Error()
	}

	if res.Status.Broken() {
		c.log.Info("bookmark unreachable",
			logger.String("url", rawURL),
			logger.String("status", res.Status.String()),
			logger.String("category", string(res.Category)),
			logger.Int("attempts", attempts),
		)
	}
	return res
}

// attempt runs one attempt: HEAD then GET on the first attempt, GET alone
// afterwards. The bool result reports whether the outcome is final.
func (c *Checker) attempt(ctx context.Context, rawURL string, attempt int) (CheckResult, bool) {
	methods := []string{http.MethodHead, http.MethodGet}
	if attempt > 0 {
		methods = methods[1:]
	}

	var lastErr error
	for _, method := range methods {
		if err := c.limiter.Wait(ctx); err != nil {
			return timeoutResult(fmt.Errorf("rate limiter wait: %w", err)), false
		}

		resp, err := c.prober.Probe(ctx, rawURL, method)
		if err == nil {
			if res, done, ok := c.judgeResponse(method, resp); ok {
				return res, done
			}
			lastErr = fmt.Errorf("%s returned %d", method, resp.StatusCode)
			continue
		}

		c.log.Debug("probe failed",
			logger.String("url", rawURL),
			logger.String("method", method),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)

		// Retrying cannot fix a URL that never reached the network.
		if errors.Is(err, result.ErrMalformedURL) {
			return CheckResult{Status: bookmark.Invalid, Error: err.Error(), Category: result.CategoryMalformedURL}, true
		}

		// The attempt's own deadline fired: abort the attempt, retry later.
		if ctx.Err() != nil {
			return timeoutResult(err), false
		}
		lastErr = err
	}

	cat := result.ClassifyError(lastErr, 0)
	if result.IsDeadLink(cat) {
		return CheckResult{Status: bookmark.Invalid, Error: lastErr.Error(), Category: cat}, true
	}
	return CheckResult{Status: bookmark.Timeout, Error: lastErr.Error(), Category: cat}, false
}

// judgeResponse turns a response into a result. ok is false when the next
// method should be tried instead.
func (c *Checker) judgeResponse(method string, resp ProbeResponse) (res CheckResult, done, ok bool) {
	code := resp.StatusCode
	if !c.cfg.StrictStatus || code < http.StatusBadRequest {
		return CheckResult{Status: bookmark.Valid, StatusCode: code}, true, true
	}

	// Some servers reject HEAD outright.
	if method == http.MethodHead && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		return res, false, false
	}

	res = CheckResult{
		Status:     bookmark.Invalid,
		StatusCode: code,
		Category:   result.ClassifyError(nil, code),
		Error:      fmt.Sprintf("HTTP %d", code),
	}
	transient := code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	return res, !transient, true
}

func timeoutResult(err error) CheckResult {
	return CheckResult{
		Status:   bookmark.Timeout,
		Error:    err.Error(),
		Category: result.CategoryTimeout,
	}
}
