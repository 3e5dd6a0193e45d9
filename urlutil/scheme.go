package urlutil

import (
	"net/url"
	"strconv"
	"strings"
)

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// IsCheckable reports whether a bookmark URL should be handed to the
// checker. Web and local URLs are checkable, and so is anything that fails
// to parse or has no scheme, so that broken entries get reported instead
// of silently dropped. Only well-formed URLs with another scheme
// (javascript:, mailto:, chrome:, ...) are not.
func IsCheckable(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return true
	}
	return IsHTTPScheme(rawURL) || IsLocalOrIntranet(rawURL)
}

// IsLocalOrIntranet reports whether rawURL points at a local file, the
// loopback host, an mDNS (.local) name or a private IPv4 address. Such URLs
// are usually only reachable from the user's own network, so they are not
// probed. Unparseable URLs are not local.
func IsLocalOrIntranet(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if strings.EqualFold(parsed.Scheme, "file") {
		return true
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	if strings.HasSuffix(host, ".local") {
		return true
	}

	octets, ok := dottedQuad(host)
	if !ok {
		return false
	}
	switch {
	case octets[0] == 10:
		return true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return true
	case octets[0] == 192 && octets[1] == 168:
		return true
	}
	return false
}

// dottedQuad parses host as four dot-separated decimal groups of one to
// three digits. Values are not range-checked beyond what three digits allow.
func dottedQuad(host string) ([4]int, bool) {
	var octets [4]int
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return octets, false
	}
	for i, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return octets, false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return octets, false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return octets, false
		}
		octets[i] = n
	}
	return octets, true
}
