package fetcher

import (
	"resty.dev/v3"
)

const (
	// DefaultUserAgent mimics a desktop browser; the explorer serves bare
	// clients a different page.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	acceptHTML = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
)

// NewHTTPClient creates a new HTTP client for HTML pages.
// Retries are not delegated to resty: callers count attempts themselves
// so they can tell timeouts, transport errors and bad statuses apart.
func NewHTTPClient(baseURL, userAgent string) *resty.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", acceptHTML).
		SetRetryCount(0)

	return client
}
