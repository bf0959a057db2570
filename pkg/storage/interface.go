package storage

import (
	"context"
	"time"

	"render-crawler/pkg/models"
)

// RunStore records the outcome of every URL dispatched during a crawl run.
// It is a log of what happened, never a source of work: nothing is re-queued from it.
type RunStore interface {
	// RecordPage stores the outcome for a page URL, replacing any earlier entry
	RecordPage(normalizedPageURL string, entry *models.PageDBEntry) error

	// CheckPageStatus retrieves the status and details of a page URL
	// Returns status (PageStatusSuccess, PageStatusFailure, PageStatusNotFound, PageStatusDBError),
	// the PageDBEntry if found and parsed, and any error
	CheckPageStatus(normalizedPageURL string) (status models.PageStatus, entry *models.PageDBEntry, err error)

	// ForEachPage calls fn for every recorded page in key order; a non-nil error from fn stops the scan
	ForEachPage(ctx context.Context, fn func(pageURL string, entry models.PageDBEntry) error) error

	// GetVisitedCount returns the number of recorded pages
	GetVisitedCount() (int, error)

	// WriteVisitedLog writes every recorded page URL to filePath, one per line
	WriteVisitedLog(filePath string) error

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}
