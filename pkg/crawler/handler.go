package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"render-crawler/pkg/match"
	"render-crawler/pkg/models"
	"render-crawler/pkg/process"
	"render-crawler/pkg/render"
	"render-crawler/pkg/storage"
	"render-crawler/pkg/utils"
)

const (
	DefaultMaxUrlsToCrawl = 10
	DefaultMaxConcurrency = 10
)

// CrawlOptions configures one call to Crawl
type CrawlOptions struct {
	URLs    []string // Seed URLs
	Match   []string // Glob patterns a discovered link must match to be followed; empty follows all
	Exclude []string // Glob patterns that are never followed

	Selector               string        // Readiness selector (CSS or XPath); also the default content root
	ContentSelector        string        // Content root; falls back to Selector, then "body"
	IgnoreSelector         string        // Elements removed from content; defaults to render.DefaultIgnoreSelector
	WaitForSelectorTimeout time.Duration // Defaults to render.DefaultWaitTimeout

	MaxUrlsToCrawl int           // Defaults to 10
	MaxConcurrency int           // Defaults to 10
	TaskTimeout    time.Duration // 0 disables the per-task deadline

	Tokens *process.TokenCounter // Optional; fills Page.TokenCount
	Store  storage.RunStore      // Optional; receives the outcome of every dispatched URL
}

// Report is the outcome of Crawl. Pages holds only successful pages, in completion order
type Report struct {
	Pages    []models.Page     `json:"data"`
	Failures []models.Failure  `json:"failures,omitempty"`
	Stats    models.CrawlStats `json:"stats"`
}

// pageCollector accumulates the pages produced by concurrently running handlers
type pageCollector struct {
	mu    sync.Mutex
	pages []models.Page
	byURL map[string]models.Page
}

func (p *pageCollector) add(page models.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, page)
	p.byURL[page.URL] = page
}

func (p *pageCollector) lookup(pageURL string) (models.Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	page, ok := p.byURL[pageURL]
	return page, ok
}

// Crawl crawls from opts.URLs, following discovered links that pass Match and Exclude,
// and returns the title and content of every page fetched successfully.
// Failed URLs are left out of Pages and listed in Failures.
func Crawl(ctx context.Context, opts CrawlOptions, launch render.Launcher, logger *logrus.Entry) (*Report, error) {
	if opts.MaxUrlsToCrawl <= 0 {
		opts.MaxUrlsToCrawl = DefaultMaxUrlsToCrawl
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.WaitForSelectorTimeout <= 0 {
		opts.WaitForSelectorTimeout = render.DefaultWaitTimeout
	}
	contentSelector := opts.ContentSelector
	if contentSelector == "" {
		contentSelector = opts.Selector
	}
	if contentSelector == "" {
		contentSelector = render.DefaultContentSelector
	}
	ignoreSelector := opts.IgnoreSelector
	if ignoreSelector == "" {
		ignoreSelector = render.DefaultIgnoreSelector
	}

	matcher, err := match.New(opts.Match, opts.Exclude)
	if err != nil {
		return nil, err
	}

	collector := &pageCollector{pages: []models.Page{}, byURL: make(map[string]models.Page)}
	handler := func(ctx context.Context, s render.Session, pageURL string, push PushFunc) error {
		if opts.Selector != "" {
			if err := s.WaitReady(ctx, opts.Selector, opts.WaitForSelectorTimeout); err != nil {
				return err
			}
		}

		links, err := s.Links(ctx)
		if err != nil {
			return fmt.Errorf("%w: reading links of '%s': %w", utils.ErrExtraction, pageURL, err)
		}
		push(matcher.Filter(links)...)

		title, err := s.Title(ctx)
		if err != nil {
			return fmt.Errorf("%w: reading title of '%s': %w", utils.ErrExtraction, pageURL, err)
		}
		content, err := s.Content(ctx, contentSelector, ignoreSelector)
		if err != nil {
			return fmt.Errorf("%w: reading content of '%s': %w", utils.ErrExtraction, pageURL, err)
		}

		page := models.Page{URL: pageURL, Title: title, Content: content}
		if opts.Tokens != nil {
			page.TokenCount = opts.Tokens.Count(content)
		}
		collector.add(page)
		return nil
	}

	crawlOpts := Options{
		MaxUrlsToCrawl: opts.MaxUrlsToCrawl,
		MaxConcurrency: opts.MaxConcurrency,
		TaskTimeout:    opts.TaskTimeout,
	}
	if opts.Store != nil {
		crawlOpts.OnComplete = func(pageURL string, taskErr error) {
			recordOutcome(opts.Store, collector, pageURL, taskErr, logger)
		}
	}

	c, err := New(crawlOpts, launch, handler, logger)
	if err != nil {
		return nil, err
	}
	result, runErr := c.Run(ctx, opts.URLs...)

	report := &Report{Pages: collector.pages}
	if result != nil {
		report.Failures = result.Failures
		report.Stats = result.Stats
	}
	return report, runErr
}

// recordOutcome writes one task outcome to the run store; store errors are logged, never fatal
func recordOutcome(store storage.RunStore, collector *pageCollector, pageURL string, taskErr error, logger *logrus.Entry) {
	now := time.Now()
	entry := &models.PageDBEntry{LastAttempt: now}
	if taskErr != nil {
		entry.Status = models.PageStatusFailure
		entry.ErrorType = utils.CategorizeError(taskErr)
	} else {
		entry.Status = models.PageStatusSuccess
		entry.ProcessedAt = now
		if page, ok := collector.lookup(pageURL); ok {
			entry.Title = page.Title
			entry.ContentHash = utils.CalculateStringSHA256(page.Content)
		}
	}
	if err := store.RecordPage(pageURL, entry); err != nil {
		logger.WithField("url", pageURL).Errorf("Failed to record page outcome: %v", err)
	}
}
