// Package urlutil classifies and canonicalizes bookmark URLs.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// defaultPorts maps schemes to the port implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize returns a canonical form of rawURL so that bookmarks pointing at
// the same resource compare equal. It:
//   - lowercases the scheme and host
//   - drops the port when it is the scheme's default
//   - strips the fragment (#section)
//   - strips a trailing slash, except for the root path "/"
//   - preserves the query string
//
// Returns an error if the input is empty or has no scheme and host.
func Normalize(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("cannot normalize empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize URL %q: %w", rawURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("URL must have both scheme and host")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if port := parsed.Port(); port != "" && defaultPorts[parsed.Scheme] == port {
		parsed.Host = strings.TrimSuffix(parsed.Host, ":"+port)
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}

	return parsed.String(), nil
}

// NormalizeOrRaw is Normalize for callers that only need a comparison key:
// URLs that cannot be normalized (file paths, javascript: bookmarklets) are
// returned unchanged.
func NormalizeOrRaw(rawURL string) string {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return rawURL
	}
	return normalized
}
