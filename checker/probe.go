package checker

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/lukemcguire/linkreaper/result"
)

// ProbeResponse is what a probe learned about a URL.
type ProbeResponse struct {
	StatusCode int
}

// Prober issues a single request for rawURL. The timeout is the deadline of
// ctx; a probe that hit it must return an error wrapping
// context.DeadlineExceeded.
type Prober interface {
	Probe(ctx context.Context, rawURL, method string) (ProbeResponse, error)
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context, rawURL, method string) (ProbeResponse, error)

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context, rawURL, method string) (ProbeResponse, error) {
	return f(ctx, rawURL, method)
}

// HTTPProber probes URLs over HTTP(S). It follows redirects and discards
// response bodies.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber creates an HTTPProber from the transport settings in cfg.
func NewHTTPProber(cfg Config) *HTTPProber {
	cfg = cfg.withDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout

	return &HTTPProber{
		client:    &http.Client{Transport: transport},
		userAgent: cfg.UserAgent,
	}
}

// Probe sends one request and reports the final status code. A URL that
// does not parse or has no host fails with an error wrapping
// result.ErrMalformedURL.
func (p *HTTPProber) Probe(ctx context.Context, rawURL, method string) (res ProbeResponse, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return res, fmt.Errorf("%w: %w", result.ErrMalformedURL, err)
	}
	if parsed.Host == "" {
		return res, fmt.Errorf("%w: %q has no host", result.ErrMalformedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return res, fmt.Errorf("%w: create %s request: %w", result.ErrMalformedURL, method, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return res, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close response body: %w", closeErr)
		}
	}()

	// Drain a little so the connection can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)

	res.StatusCode = resp.StatusCode
	return res, nil
}
