// Package crawler implements the bounded-concurrency crawl engine: a single coordinator goroutine
// drains the Frontier into fetch tasks, enforces the fetch budget and the concurrency ceiling,
// and releases the shared render engine once the crawl is quiescent.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"render-crawler/pkg/frontier"
	"render-crawler/pkg/metrics"
	"render-crawler/pkg/models"
	"render-crawler/pkg/parse"
	"render-crawler/pkg/render"
	"render-crawler/pkg/utils"
)

// ErrAlreadyStarted is returned by Run on a Crawler that has already run
var ErrAlreadyStarted = errors.New("crawler already started")

// PushFunc feeds discovered URLs back into the Frontier
// Relative URLs are resolved against the page the task is processing
type PushFunc func(urls ...string)

// RequestHandler is invoked once per fetched page. It must not keep the session after returning
type RequestHandler func(ctx context.Context, s render.Session, pageURL string, push PushFunc) error

// Options bounds a crawl run
type Options struct {
	MaxUrlsToCrawl int           // Hard ceiling on dispatched fetches
	MaxConcurrency int           // Hard ceiling on simultaneous fetches
	TaskTimeout    time.Duration // Per-task deadline covering open and handler; 0 disables it

	// OnComplete, when set, is called from the coordinator goroutine after each task finishes
	OnComplete func(pageURL string, err error)
}

// Result summarizes a finished run
type Result struct {
	Stats    models.CrawlStats
	Failures []models.Failure
}

// taskResult is what a task reports back to the coordinator
type taskResult struct {
	url string
	err error
}

// Crawler runs one crawl. It is single use: create a new Crawler for every run
type Crawler struct {
	opts      Options
	handler   RequestHandler
	frontier  *frontier.Frontier
	budget    *Budget
	lifecycle *render.Lifecycle
	sem       *semaphore.Weighted
	log       *logrus.Entry

	started  atomic.Bool
	taskSeq  atomic.Int64
	done     chan struct{}
	doneOnce sync.Once

	// Owned by the coordinator goroutine
	fetched  map[string]struct{}
	stats    models.CrawlStats
	failures []models.Failure
}

// New validates opts and prepares a Crawler; the engine is not launched until Run dispatches work
func New(opts Options, launch render.Launcher, handler RequestHandler, logger *logrus.Entry) (*Crawler, error) {
	if opts.MaxUrlsToCrawl <= 0 {
		return nil, fmt.Errorf("%w: max_urls_to_crawl must be > 0, got %d", utils.ErrConfigValidation, opts.MaxUrlsToCrawl)
	}
	if opts.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("%w: max_concurrency must be > 0, got %d", utils.ErrConfigValidation, opts.MaxConcurrency)
	}
	if launch == nil {
		return nil, fmt.Errorf("%w: no render engine launcher", utils.ErrConfigValidation)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: no request handler", utils.ErrConfigValidation)
	}

	log := logger.WithField("component", "crawler")
	return &Crawler{
		opts:      opts,
		handler:   handler,
		frontier:  frontier.New(logger),
		budget:    NewBudget(opts.MaxUrlsToCrawl),
		lifecycle: render.NewLifecycle(launch, logger),
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		log:       log,
		done:      make(chan struct{}),
		fetched:   make(map[string]struct{}),
	}, nil
}

// Done is closed once the crawl has quiesced and the render engine has been released
func (c *Crawler) Done() <-chan struct{} {
	return c.done
}

// Frontier exposes the crawl's queue, mainly for inspection after Run returns
func (c *Crawler) Frontier() *frontier.Frontier {
	return c.frontier
}

// Run pushes the seeds and drives the crawl until the Frontier is empty with no task in flight.
// Cancelling ctx stops further dispatch; tasks already running are allowed to finish.
// The render engine is released before Run returns and before Done is closed.
func (c *Crawler) Run(ctx context.Context, seeds ...string) (*Result, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	metrics.CrawlsTotal.Inc()
	startTime := time.Now()

	accepted := c.frontier.Push(seeds...)
	c.log.Infof("Crawl starting with %d seed URL(s) (%d accepted), max_urls=%d, max_concurrency=%d",
		len(seeds), accepted, c.opts.MaxUrlsToCrawl, c.opts.MaxConcurrency)

	completions := make(chan taskResult, c.opts.MaxConcurrency)
	inFlight := 0
	var runErr error

	for {
		// Fill every free slot while work and budget remain
		for runErr == nil && ctx.Err() == nil && c.sem.TryAcquire(1) {
			pageURL, ok := c.next()
			if !ok {
				c.sem.Release(1)
				break
			}
			// The engine outlives a cancelled ctx until in-flight tasks finish
			engine, err := c.lifecycle.Acquire(context.WithoutCancel(ctx))
			if err != nil {
				c.sem.Release(1)
				runErr = err
				c.log.Errorf("Cannot dispatch '%s': %v", pageURL, err)
				break
			}

			c.fetched[pageURL] = struct{}{}
			c.stats.Dispatched++
			inFlight++
			go c.runTask(ctx, engine, pageURL, completions)
		}

		// Quiescent: nothing in flight and nothing more will be dispatched
		if inFlight == 0 {
			break
		}

		res := <-completions
		inFlight--
		c.sem.Release(1)
		c.record(res)
	}

	if ctx.Err() != nil && c.frontier.Len() > 0 {
		c.log.Warnf("Crawl stopped by context (%v) with %d URL(s) still queued", ctx.Err(), c.frontier.Len())
	}

	c.lifecycle.Release()
	c.stats.Duplicates = c.frontier.Duplicates()
	metrics.DuplicateURLs.Add(float64(c.stats.Duplicates))
	c.doneOnce.Do(func() { close(c.done) })

	summaryLog := c.log.WithField("duration", time.Since(startTime).String())
	summaryLog.Infof("Crawl finished: dispatched=%d succeeded=%d failed=%d dropped_over_budget=%d duplicates=%d",
		c.stats.Dispatched, c.stats.Succeeded, c.stats.Failed, c.stats.DroppedOverBudget, c.stats.Duplicates)

	result := &Result{Stats: c.stats, Failures: c.failures}
	if runErr != nil {
		return result, runErr
	}
	return result, ctx.Err()
}

// next pops the next URL that may be dispatched, consuming one unit of budget for it
// URLs popped after the budget is exhausted are dropped, never requeued
func (c *Crawler) next() (string, bool) {
	for {
		pageURL, ok := c.frontier.Pop()
		if !ok {
			return "", false
		}
		if _, done := c.fetched[pageURL]; done {
			c.log.WithField("url", pageURL).Warn("URL popped twice, skipping")
			continue
		}
		if !c.budget.TryConsume() {
			c.stats.DroppedOverBudget++
			metrics.DroppedOverBudget.Inc()
			c.log.WithField("url", pageURL).Debug("Budget exhausted, dropping URL")
			continue
		}
		return pageURL, true
	}
}

// record folds a finished task into the run stats; coordinator goroutine only
func (c *Crawler) record(res taskResult) {
	if res.err != nil {
		category := utils.CategorizeError(res.err)
		c.stats.Failed++
		c.failures = append(c.failures, models.Failure{URL: res.url, Category: category, Error: res.err.Error()})
		metrics.PageFailures.WithLabelValues(category).Inc()
	} else {
		c.stats.Succeeded++
		metrics.PagesFetched.Inc()
	}
	if c.opts.OnComplete != nil {
		c.opts.OnComplete(res.url, res.err)
	}
}

// runTask fetches one URL and runs the handler on it. Every outcome, panics included,
// is reported on completions exactly once.
func (c *Crawler) runTask(ctx context.Context, engine render.Engine, pageURL string, completions chan<- taskResult) {
	taskLog := c.log.WithFields(logrus.Fields{"url": pageURL, "task_id": c.taskSeq.Add(1)})
	startTime := time.Now()
	metrics.InFlight.Inc()

	var taskErr error
	defer func() {
		panicked := false
		if r := recover(); r != nil {
			panicked = true
			taskErr = fmt.Errorf("%w: panic: %v", utils.ErrHandler, r)
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"duration":    time.Since(startTime).String(),
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in crawl task")
		}

		duration := time.Since(startTime)
		metrics.InFlight.Dec()
		metrics.TaskDuration.Observe(duration.Seconds())

		logFields := logrus.Fields{"duration": duration.String()}
		if taskErr != nil {
			logFields["category"] = utils.CategorizeError(taskErr)
			if !panicked {
				taskLog.WithFields(logFields).Warnf("Task failed: %v", taskErr)
			}
		} else {
			taskLog.WithFields(logFields).Debug("Task completed successfully")
		}
		completions <- taskResult{url: pageURL, err: taskErr}
	}()

	taskErr = c.fetchAndHandle(ctx, engine, pageURL, taskLog)
}

// fetchAndHandle opens a session for pageURL, runs the handler and always closes the session.
// A started fetch is not cancelled with the crawl; only TaskTimeout bounds it.
func (c *Crawler) fetchAndHandle(ctx context.Context, engine render.Engine, pageURL string, taskLog *logrus.Entry) error {
	taskCtx := context.WithoutCancel(ctx)
	if c.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, c.opts.TaskTimeout)
		defer cancel()
	}

	session, err := engine.Open(taskCtx, pageURL)
	if err != nil {
		if !errors.Is(err, utils.ErrNavigation) {
			err = fmt.Errorf("%w: open '%s': %w", utils.ErrNavigation, pageURL, err)
		}
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			taskLog.Debugf("Error closing render session: %v", closeErr)
		}
	}()

	push := func(urls ...string) {
		base := session.URL()
		resolved := make([]string, 0, len(urls))
		for _, raw := range urls {
			abs, resolveErr := parse.Resolve(base, raw)
			if resolveErr != nil {
				taskLog.Debugf("Not pushing '%s': %v", raw, resolveErr)
				continue
			}
			resolved = append(resolved, abs)
		}
		added := c.frontier.Push(resolved...)
		taskLog.Debugf("Pushed %d URL(s), %d new", len(resolved), added)
	}

	if err := c.handler(taskCtx, session, pageURL, push); err != nil {
		return classifyHandlerError(err)
	}
	return nil
}

// classifyHandlerError keeps errors that already carry a task category and wraps the rest as handler failures
func classifyHandlerError(err error) error {
	switch {
	case errors.Is(err, utils.ErrHandler),
		errors.Is(err, utils.ErrTimeout),
		errors.Is(err, utils.ErrNavigation),
		errors.Is(err, utils.ErrExtraction):
		return err
	}
	return fmt.Errorf("%w: %w", utils.ErrHandler, err)
}
