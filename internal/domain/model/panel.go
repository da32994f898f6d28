package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var serverUUIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsServerUUID reports whether s has the exact 8-4-4-4-12 hex shape of a
// panel server UUID. Case is ignored; braces, URN prefixes and surrounding
// whitespace are not accepted.
func IsServerUUID(s string) bool {
	return serverUUIDPattern.MatchString(s)
}

// NormalizePanelURL returns the canonical form of a panel base URL: lower-case
// scheme and host, no trailing slash. Only absolute http(s) URLs without query
// or fragment are accepted.
func NormalizePanelURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPanelURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPanelURL, raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidPanelURL, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidPanelURL, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: %q: query, fragment and userinfo are not allowed", ErrInvalidPanelURL, raw)
	}

	return scheme + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.EscapedPath(), "/"), nil
}
