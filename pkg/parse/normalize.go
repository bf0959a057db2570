package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"render-crawler/pkg/utils"
)

// NormalizeURL standardizes a URL for deduplication
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https), ensures empty path becomes "/" and removes the fragment
// The query string is kept: two pages that differ only by query are distinct pages
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil { // Host included a port
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" && normalized.Opaque == "" {
		normalized.Path = "/"
		normalized.RawPath = ""
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// Normalize parses an absolute http(s) URL string and returns its canonical key
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: parsing URL '%s': %w", utils.ErrInvalidURL, rawURL, err)
	}
	if err := checkCrawlable(parsed); err != nil {
		return "", err
	}
	return NormalizeURL(parsed), nil
}

// Resolve resolves ref (absolute, root-relative or relative) against base and normalizes the result
// An absolute ref ignores base entirely, so resolving an already-absolute URL equals Normalize(ref)
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: parsing URL '%s': %w", utils.ErrInvalidURL, ref, err)
	}
	if !refURL.IsAbs() {
		baseURL, baseErr := url.Parse(base)
		if baseErr != nil {
			return "", fmt.Errorf("%w: parsing base URL '%s': %w", utils.ErrInvalidURL, base, baseErr)
		}
		if !baseURL.IsAbs() {
			return "", fmt.Errorf("%w: relative URL '%s' without absolute base", utils.ErrInvalidURL, ref)
		}
		refURL = baseURL.ResolveReference(refURL)
	}
	if err := checkCrawlable(refURL); err != nil {
		return "", err
	}
	return NormalizeURL(refURL), nil
}

// checkCrawlable rejects URLs a render engine cannot navigate to (mailto:, javascript:, missing host)
func checkCrawlable(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme '%s' in '%s'", utils.ErrInvalidURL, u.Scheme, u.String())
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL '%s' missing host", utils.ErrInvalidURL, u.String())
	}
	return nil
}
