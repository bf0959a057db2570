package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"render-crawler/pkg/utils"
)

// Fetcher performs single-attempt page downloads with an underlying http.Client
// Failed fetches are not retried: the crawler drops the URL instead
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxPageSize int64 // 0 = unlimited
	log         *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, userAgent string, maxPageSize int64, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		maxPageSize: maxPageSize,
		log:         log,
	}
}

// Result is a fetched HTML document
type Result struct {
	FinalURL *url.URL // URL after redirects
	Body     []byte
}

// Fetch GETs pageURL and returns its body
// Network failures and non-2xx statuses wrap utils.ErrNavigation; body read failures wrap utils.ErrResponseBodyRead
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	reqLog := f.log.WithField("url", pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for '%s': %w", utils.ErrNavigation, pageURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		// Context errors are returned as-is so callers can tell cancellation from failure
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: GET '%s': %w", utils.ErrNavigation, pageURL, err)
	}
	defer resp.Body.Close()

	resLog := reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "status": resp.Status})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resLog.Debug("Non-success status")
		return nil, fmt.Errorf("%w: status %d %s for '%s'", utils.ErrNavigation, resp.StatusCode, resp.Status, pageURL)
	}

	var reader io.Reader = resp.Body
	if f.maxPageSize > 0 {
		reader = io.LimitReader(resp.Body, f.maxPageSize+1) // +1 to detect exceeding the limit
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body from '%s': %w", utils.ErrResponseBodyRead, pageURL, err)
	}
	if f.maxPageSize > 0 && int64(len(body)) > f.maxPageSize {
		return nil, fmt.Errorf("%w: page '%s' exceeds max size (%d > %d bytes)", utils.ErrResponseBodyRead, pageURL, len(body), f.maxPageSize)
	}
	resLog.Debugf("Fetched %d bytes", len(body))

	return &Result{FinalURL: resp.Request.URL, Body: body}, nil
}
