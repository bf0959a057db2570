package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"render-crawler/pkg/crawler"
	"render-crawler/pkg/match"
	"render-crawler/pkg/storage"
)

// crawlOptions reads the shared crawl parameters on top of the configured defaults
func (s *Server) crawlOptions(request mcp.CallToolRequest) (crawler.CrawlOptions, error) {
	urls := match.SplitPatterns(request.GetString("urls", ""))
	if len(urls) == 0 {
		return crawler.CrawlOptions{}, fmt.Errorf("urls parameter is required")
	}
	patterns := match.SplitPatterns(request.GetString("match", ""))
	if len(patterns) == 0 {
		return crawler.CrawlOptions{}, fmt.Errorf("match parameter is required")
	}

	opts := s.base
	opts.URLs = urls
	opts.Match = patterns
	opts.Exclude = match.SplitPatterns(request.GetString("exclude", ""))
	opts.Selector = request.GetString("selector", opts.Selector)
	opts.MaxUrlsToCrawl = request.GetInt("max_urls_to_crawl", opts.MaxUrlsToCrawl)
	opts.MaxConcurrency = request.GetInt("max_concurrency", opts.MaxConcurrency)
	if opts.MaxUrlsToCrawl <= 0 || opts.MaxConcurrency <= 0 {
		return crawler.CrawlOptions{}, fmt.Errorf("max_urls_to_crawl and max_concurrency must be positive")
	}
	return opts, nil
}

// handleCrawl handles the crawl tool
func (s *Server) handleCrawl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := s.crawlOptions(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	startTime := time.Now()
	report, err := crawler.Crawl(ctx, opts, s.cfg.Launcher, s.log)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("crawl failed: %v", err)), nil
	}

	result := map[string]interface{}{
		"data":             report.Pages,
		"failures":         report.Failures,
		"stats":            report.Stats,
		"duration_seconds": time.Since(startTime).Seconds(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleStartCrawl handles the start_crawl tool
func (s *Server) handleStartCrawl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := s.crawlOptions(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, created := s.jobManager.CreateJob(JobKey(opts.URLs, opts.Match))
	if !created {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A crawl with the same urls and match patterns is already in progress",
			"job_id":  job.ID,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	// Start crawl in background
	go s.runCrawlJob(job.ID, opts)

	result := map[string]interface{}{
		"status":  "started",
		"message": "Crawl started successfully",
		"job_id":  job.ID,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
		"stats":      job.Stats,
		"pages":      len(job.Pages()),
	}

	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	if request.GetBool("include_pages", false) && job.Status == JobStatusCompleted {
		result["data"] = job.Pages()
		result["failures"] = job.Failures()
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	if _, ok := s.jobManager.GetJob(jobID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{"job_id": jobID}
	if s.jobManager.CancelJob(jobID) {
		result["status"] = JobStatusCancelled
		result["message"] = "Job cancelled; pages already being fetched will finish"
	} else {
		result["status"] = "not_running"
		result["message"] = "Job has already finished"
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runCrawlJob runs a crawl job in the background
func (s *Server) runCrawlJob(jobID string, opts crawler.CrawlOptions) {
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")
	jobCtx := s.jobManager.GetContext(jobID)
	jobLog := s.log.WithField("job_id", jobID)

	if stateDir := s.cfg.AppConfig.StateDir; stateDir != "" {
		store, err := storage.NewBadgerStore(jobCtx, stateDir, "job-"+jobID, jobLog)
		if err != nil {
			s.jobManager.UpdateStatus(jobID, JobStatusFailed, fmt.Sprintf("failed to open store: %v", err))
			return
		}
		defer store.Close()
		opts.Store = store
	}

	report, err := crawler.Crawl(jobCtx, opts, s.cfg.Launcher, jobLog)
	s.jobManager.SetReport(jobID, report)

	switch {
	case jobCtx.Err() != nil:
		// CancelJob already recorded the final status
		jobLog.Info("Crawl job cancelled")
	case err != nil:
		jobLog.Errorf("Crawl job failed: %v", err)
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, err.Error())
	default:
		jobLog.Infof("Crawl job completed: %d page(s)", len(report.Pages))
		s.jobManager.UpdateStatus(jobID, JobStatusCompleted, "")
	}
}

// formatJSON formats data as indented JSON
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
