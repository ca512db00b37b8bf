package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateCaptureURL checks that a user-supplied URL is an absolute
// http or https address a browser page can navigate to. It returns
// the cleaned form.
func ValidateCaptureURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url is missing a host")
	}
	return u.String(), nil
}

// NormalizeLink resolves an href found on a page against the page's
// URL and returns a canonical absolute form suitable for frontier
// bookkeeping. Fragments are stripped because they address positions
// within a page, not new pages. Non-navigational schemes such as
// javascript: and mailto: are rejected.
func NormalizeLink(base *url.URL, href string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return "", false
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	resolved.Fragment = ""
	if resolved.Path == "" {
		// "https://example.com" and "https://example.com/" are the same
		// page; collapse them so the frontier sees one entry.
		resolved.Path = "/"
	}
	return resolved.String(), true
}

// SameOrigin reports whether two URLs share a scheme and host. The
// host comparison includes the port, matching how browsers scope an
// origin.
func SameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && strings.EqualFold(a.Host, b.Host)
}
