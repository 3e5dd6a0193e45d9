package result

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrorCategory represents the classification of a failed check.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	CategoryConnectTimeout    ErrorCategory = "connection_timeout"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryRedirectLoop      ErrorCategory = "redirect_loop"
	CategoryMalformedURL      ErrorCategory = "malformed_url"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ErrMalformedURL marks a URL that cannot be requested at all: it does not
// parse or names no host.
var ErrMalformedURL = errors.New("malformed URL")

// deadLinkPatterns are message fragments that identify each dead-link
// category. Both Go's net errors and Chromium's net error names are
// recognised so results imported from a browser classify the same way.
var deadLinkPatterns = map[ErrorCategory][]string{
	CategoryDNSFailure: {
		"no such host",
		"server misbehaving",
		"ERR_NAME_NOT_RESOLVED",
		"DNS_PROBE",
	},
	CategoryConnectionRefused: {
		"connection refused",
		"ERR_CONNECTION_REFUSED",
	},
	CategoryConnectTimeout: {
		"connection timed out",
		"ERR_CONNECTION_TIMED_OUT",
	},
}

// ClassifyError determines the error category from a probe error and the
// HTTP status code of the response, if there was one.
func ClassifyError(err error, statusCode int) ErrorCategory {
	if statusCode >= 400 && statusCode <= 499 {
		return Category4xx
	}
	if statusCode >= 500 {
		return Category5xx
	}

	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, ErrMalformedURL) {
		return CategoryMalformedURL
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return CategoryDNSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryConnectionRefused
	}

	// A dial timeout also matches context.DeadlineExceeded, so it must be
	// told apart first. Callers whose own deadline fired should not classify
	// the error at all: that is an abort.
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return CategoryConnectTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage categorises an error by its text alone.
func ClassifyMessage(msg string) ErrorCategory {
	for _, cat := range []ErrorCategory{CategoryDNSFailure, CategoryConnectionRefused, CategoryConnectTimeout} {
		for _, pattern := range deadLinkPatterns[cat] {
			if containsIgnoreCase(msg, pattern) {
				return cat
			}
		}
	}
	if containsIgnoreCase(msg, "stopped after") && containsIgnoreCase(msg, "redirects") {
		return CategoryRedirectLoop
	}
	if containsIgnoreCase(msg, "timeout") || containsIgnoreCase(msg, "deadline exceeded") {
		return CategoryTimeout
	}
	return CategoryUnknown
}

// IsDeadLink reports whether a category means the resource is gone rather
// than slow. Checks that fail this way are not retried.
func IsDeadLink(cat ErrorCategory) bool {
	switch cat {
	case CategoryDNSFailure, CategoryConnectionRefused, CategoryConnectTimeout, CategoryMalformedURL:
		return true
	default:
		return false
	}
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case CategoryConnectTimeout:
		return "Connection Timed Out"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	case CategoryRedirectLoop:
		return "Redirect Loops"
	case CategoryMalformedURL:
		return "Malformed URLs"
	default:
		return "Other Errors"
	}
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
