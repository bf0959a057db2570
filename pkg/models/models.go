package models

import "time"

// Page is one crawl result: the page URL together with its extracted title and text content
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count,omitempty"` // Set only when token counting is enabled
}

// Failure records a URL that was dispatched but produced no Page
type Failure struct {
	URL      string `json:"url"`
	Category string `json:"category"` // utils.CategorizeError output
	Error    string `json:"error"`
}

// CrawlStats are the counters of one crawl run
type CrawlStats struct {
	Dispatched        int `json:"dispatched" yaml:"dispatched"`                   // Tasks started (budget consumed)
	Succeeded         int `json:"succeeded" yaml:"succeeded"`                     // Tasks whose handler returned nil
	Failed            int `json:"failed" yaml:"failed"`                           // Navigation, timeout, handler errors and panics
	DroppedOverBudget int `json:"dropped_over_budget" yaml:"dropped_over_budget"` // Unique URLs popped after the budget ran out
	Duplicates        int `json:"duplicates" yaml:"duplicates"`                   // Pushed URLs rejected by the seen set
}

// PageDBEntry stores the outcome of processing a page URL in the run record store
type PageDBEntry struct {
	Status      PageStatus `json:"status"`                 // "success" or "failure"
	ErrorType   string     `json:"error_type,omitempty"`   // Error category (on failure)
	Title       string     `json:"title,omitempty"`        // Page title (on success)
	ContentHash string     `json:"content_hash,omitempty"` // SHA-256 of the extracted content (on success)
	ProcessedAt time.Time  `json:"processed_at,omitempty"` // Timestamp of successful processing
	LastAttempt time.Time  `json:"last_attempt"`           // Timestamp of the last processing attempt
}

// RunMetadata holds the summary of a single crawl run, written next to the run record store
type RunMetadata struct {
	RunID     string         `yaml:"run_id"`
	Seeds     []string       `yaml:"seeds"`
	Match     []string       `yaml:"match,omitempty"`
	Exclude   []string       `yaml:"exclude,omitempty"`
	StartTime time.Time      `yaml:"start_time"`
	EndTime   time.Time      `yaml:"end_time"`
	Stats     CrawlStats     `yaml:"stats"`
	Pages     []PageMetadata `yaml:"pages"`
}

// PageMetadata holds metadata for a single crawled page.
type PageMetadata struct {
	URL         string `yaml:"url"`
	Title       string `yaml:"title,omitempty"`
	ContentHash string `yaml:"content_hash,omitempty"` // SHA256 hex string
	TokenCount  int    `yaml:"token_count,omitempty"`
}
