package checker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/logger"
	"github.com/lukemcguire/linkreaper/result"
)

// fastPolicy keeps timing tests short while keeping the shape of the
// default schedule.
func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delays:      []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond},
		TimeoutBase: 30 * time.Millisecond,
		TimeoutStep: 10 * time.Millisecond,
	}
}

// countingProber records how many probes were issued and delegates to fn.
type countingProber struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int, method string) (ProbeResponse, error)
}

func (p *countingProber) Probe(ctx context.Context, _ string, method string) (ProbeResponse, error) {
	call := int(p.calls.Add(1))
	return p.fn(ctx, call, method)
}

func hang(ctx context.Context) (ProbeResponse, error) {
	<-ctx.Done()
	return ProbeResponse{}, ctx.Err()
}

func TestIsLocalOrIntranetSkipsProbe(t *testing.T) {
	prober := &countingProber{fn: func(context.Context, int, string) (ProbeResponse, error) {
		return ProbeResponse{StatusCode: http.StatusOK}, nil
	}}
	c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

	urls := []string{
		"file:///home/me/notes.html",
		"http://localhost:3000/",
		"http://127.0.0.1/admin",
		"http://printer.local/",
		"http://10.0.0.5/x",
		"http://172.20.1.1/",
		"http://192.168.1.1/",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			if !IsLocalOrIntranet(u) {
				t.Fatalf("IsLocalOrIntranet(%q) = false", u)
			}
			res := c.CheckOne(context.Background(), u)
			if res.Status != bookmark.Valid || !res.Skipped || res.Attempts != 0 {
				t.Errorf("CheckOne(%q) = %+v, want valid skipped with 0 attempts", u, res)
			}
		})
	}
	if n := prober.calls.Load(); n != 0 {
		t.Errorf("prober called %d times for local URLs", n)
	}
}

func TestCheckOneValidOnFirstResponse(t *testing.T) {
	prober := &countingProber{fn: func(context.Context, int, string) (ProbeResponse, error) {
		return ProbeResponse{StatusCode: http.StatusOK}, nil
	}}
	c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

	res := c.CheckOne(context.Background(), "https://example.com")
	if res.Status != bookmark.Valid || res.Attempts != 1 || res.StatusCode != http.StatusOK {
		t.Errorf("got %+v, want valid after 1 attempt", res)
	}
	if n := prober.calls.Load(); n != 1 {
		t.Errorf("probes = %d, want 1 (HEAD answered)", n)
	}
}

func TestCheckOneAbortThenSuccess(t *testing.T) {
	prober := &countingProber{fn: func(ctx context.Context, call int, _ string) (ProbeResponse, error) {
		if call == 1 {
			return hang(ctx)
		}
		return ProbeResponse{StatusCode: http.StatusOK}, nil
	}}
	c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

	res := c.CheckOne(context.Background(), "https://slow.example")
	if res.Status != bookmark.Valid {
		t.Errorf("Status = %v, want valid", res.Status)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if n := prober.calls.Load(); n != 2 {
		t.Errorf("probes = %d, want 2 (aborted HEAD, then GET)", n)
	}
}

func TestCheckOneDeadLinkNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantCat result.ErrorCategory
	}{
		{"chromium dns probe", errors.New("net::ERR_NAME_NOT_RESOLVED (DNS_PROBE_FINISHED_NXDOMAIN)"), result.CategoryDNSFailure},
		{"typed dns error", &net.DNSError{Err: "no such host", Name: "gone.invalid", IsNotFound: true}, result.CategoryDNSFailure},
		{"refused", errors.New("dial tcp 203.0.113.9:443: connect: connection refused"), result.CategoryConnectionRefused},
		{"connect timed out", errors.New("net::ERR_CONNECTION_TIMED_OUT"), result.CategoryConnectTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &countingProber{fn: func(context.Context, int, string) (ProbeResponse, error) {
				return ProbeResponse{}, tt.err
			}}
			c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

			res := c.CheckOne(context.Background(), "https://gone.invalid")
			if res.Status != bookmark.Invalid {
				t.Errorf("Status = %v, want invalid", res.Status)
			}
			if res.Attempts != 1 {
				t.Errorf("Attempts = %d, want 1", res.Attempts)
			}
			if res.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", res.Category, tt.wantCat)
			}
			if res.Error == "" {
				t.Error("Error should carry the failure message")
			}
		})
	}
}

func TestCheckOneMalformedURLIsInvalid(t *testing.T) {
	urls := []string{
		"http://exa mple.com/",
		"http://",
		"http://%zz/",
		"https://[::1",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			httpProber := NewHTTPProber(Config{})
			var calls atomic.Int32
			prober := ProbeFunc(func(ctx context.Context, rawURL, method string) (ProbeResponse, error) {
				calls.Add(1)
				return httpProber.Probe(ctx, rawURL, method)
			})
			c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

			res := c.CheckOne(context.Background(), u)
			if res.Status != bookmark.Invalid {
				t.Errorf("Status = %v, want invalid", res.Status)
			}
			if res.Category != result.CategoryMalformedURL {
				t.Errorf("Category = %q, want %q", res.Category, result.CategoryMalformedURL)
			}
			if res.Attempts != 1 || calls.Load() != 1 {
				t.Errorf("Attempts = %d after %d requests, want a single try", res.Attempts, calls.Load())
			}
		})
	}
}

func TestHTTPCheckRejectsMalformedURL(t *testing.T) {
	p := NewHTTPProber(Config{})
	for _, u := range []string{"http://", "http://%zz/", "/relative/path"} {
		_, err := p.Probe(context.Background(), u, http.MethodHead)
		if !errors.Is(err, result.ErrMalformedURL) {
			t.Errorf("Probe(%q) error = %v, want ErrMalformedURL", u, err)
		}
	}
}

func TestCheckOneAlwaysAbortTimesOut(t *testing.T) {
	prober := &countingProber{fn: func(ctx context.Context, _ int, _ string) (ProbeResponse, error) {
		return hang(ctx)
	}}
	policy := fastPolicy()
	c := New(Config{RetryPolicy: policy}, prober, nil)

	start := time.Now()
	res := c.CheckOne(context.Background(), "https://black.hole")
	elapsed := time.Since(start)

	if res.Status != bookmark.Timeout {
		t.Errorf("Status = %v, want timeout", res.Status)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if res.Category != result.CategoryTimeout || res.Error == "" {
		t.Errorf("Category = %q, Error = %q", res.Category, res.Error)
	}
	var delays time.Duration
	for i := range policy.MaxAttempts {
		delays += policy.Delay(i)
	}
	if elapsed < delays {
		t.Errorf("elapsed %v < sum of delays %v", elapsed, delays)
	}
	if elapsed > policy.MaxDuration()+time.Second {
		t.Errorf("elapsed %v exceeds the policy bound %v", elapsed, policy.MaxDuration())
	}
}

func TestCheckOneTransientErrorsExhaust(t *testing.T) {
	prober := &countingProber{fn: func(context.Context, int, string) (ProbeResponse, error) {
		return ProbeResponse{}, errors.New("tls: handshake failure")
	}}
	c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

	res := c.CheckOne(context.Background(), "https://flaky.example")
	if res.Status != bookmark.Timeout || res.Attempts != 3 {
		t.Errorf("got %+v, want timeout after 3 attempts", res)
	}
	if res.Error != "tls: handshake failure" {
		t.Errorf("Error = %q, want the last failure message", res.Error)
	}
	// HEAD+GET on the first attempt, GET alone on the next two.
	if n := prober.calls.Load(); n != 4 {
		t.Errorf("probes = %d, want 4", n)
	}
}

func TestCheckOneCancelledSessionStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prober := &countingProber{fn: func(context.Context, int, string) (ProbeResponse, error) {
		cancel()
		return ProbeResponse{}, errors.New("tls: handshake failure")
	}}
	c := New(Config{RetryPolicy: fastPolicy()}, prober, nil)

	res := c.CheckOne(ctx, "https://flaky.example")
	if res.Attempts != 1 || res.Status != bookmark.Timeout {
		t.Errorf("got %+v, want timeout after the single in-flight attempt", res)
	}
}

func TestCheckOneStatusCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/nohead":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	tests := []struct {
		name         string
		strict       bool
		path         string
		wantStatus   bookmark.Status
		wantAttempts int
		wantCode     int
	}{
		{"opaque 404 is valid", false, "/missing", bookmark.Valid, 1, http.StatusNotFound},
		{"opaque 503 is valid", false, "/down", bookmark.Valid, 1, http.StatusServiceUnavailable},
		{"strict 200", true, "/", bookmark.Valid, 1, http.StatusOK},
		{"strict 404 is invalid at once", true, "/missing", bookmark.Invalid, 1, http.StatusNotFound},
		{"strict 503 retried then invalid", true, "/down", bookmark.Invalid, 3, http.StatusServiceUnavailable},
		{"strict HEAD rejected falls back to GET", true, "/nohead", bookmark.Valid, 1, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{RetryPolicy: fastPolicy(), StrictStatus: tt.strict}
			cfg.RetryPolicy.TimeoutBase = 2 * time.Second
			c := New(cfg, nil, nil)

			res := c.CheckOne(context.Background(), server.URL+tt.path)
			if res.Status != tt.wantStatus || res.Attempts != tt.wantAttempts || res.StatusCode != tt.wantCode {
				t.Errorf("got status=%v attempts=%d code=%d, want %v %d %d",
					res.Status, res.Attempts, res.StatusCode, tt.wantStatus, tt.wantAttempts, tt.wantCode)
			}
		})
	}
}

func TestHTTPProberSendsHeaders(t *testing.T) {
	var gotUA, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotMethod = r.Method
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	prober := NewHTTPProber(Config{UserAgent: "linkreaper-test"})
	resp, err := prober.Probe(context.Background(), server.URL, http.MethodGet)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if gotUA != "linkreaper-test" || gotMethod != http.MethodGet {
		t.Errorf("server saw UA %q method %q", gotUA, gotMethod)
	}
}

func TestHTTPProberDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPProber(DefaultConfig()).Probe(ctx, server.URL, http.MethodHead)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Probe() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{}, ProbeFunc(func(context.Context, string, string) (ProbeResponse, error) {
		return ProbeResponse{}, nil
	}), nil)

	cfg := c.Config()
	if cfg.BatchSize != DefaultBatchSize || cfg.BatchDelay != DefaultBatchDelay {
		t.Errorf("batch defaults = %d/%v", cfg.BatchSize, cfg.BatchDelay)
	}
	if cfg.RetryPolicy.MaxAttempts != 3 || cfg.UserAgent == "" {
		t.Errorf("retry/user agent defaults not applied: %+v", cfg)
	}
}

func TestCheckOneLogsBrokenLinks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prober := ProbeFunc(func(context.Context, string, string) (ProbeResponse, error) {
		return ProbeResponse{}, errors.New("dial tcp: lookup gone.invalid: no such host")
	})
	c := New(Config{RetryPolicy: fastPolicy()}, prober, logger.FromZap(zap.New(core)))

	c.CheckOne(context.Background(), "https://gone.invalid")

	if n := logs.FilterMessage("probe failed").Len(); n != 2 {
		t.Errorf("probe failure logs = %d, want 2 (HEAD and GET)", n)
	}
	broken := logs.FilterMessage("bookmark unreachable").All()
	if len(broken) != 1 || broken[0].Level != zapcore.InfoLevel {
		t.Fatalf("unreachable logs = %+v", broken)
	}
	if got := broken[0].ContextMap()["category"]; got != string(result.CategoryDNSFailure) {
		t.Errorf("category field = %v, want dns_failure", got)
	}
}
