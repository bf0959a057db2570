package mcp

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"render-crawler/pkg/crawler"
	"render-crawler/pkg/models"
)

// JobStatus represents the current state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a background crawl job
type Job struct {
	ID           string            `json:"id"`
	Key          string            `json:"key"` // Canonical seeds + match patterns
	Status       JobStatus         `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  time.Time         `json:"completed_at,omitempty"`
	Stats        models.CrawlStats `json:"stats"`
	ErrorMessage string            `json:"error_message,omitempty"`

	// Internal fields
	report *crawler.Report
	ctx    context.Context
	cancel context.CancelFunc
}

// Pages returns the pages collected by a finished job
func (j Job) Pages() []models.Page {
	if j.report == nil {
		return nil
	}
	return j.report.Pages
}

// Failures returns the URLs a finished job dropped after errors
func (j Job) Failures() []models.Failure {
	if j.report == nil {
		return nil
	}
	return j.report.Failures
}

func (j *Job) active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// JobKey canonicalizes seeds and match patterns so equal requests map to the same job
func JobKey(seeds, match []string) string {
	s := append([]string(nil), seeds...)
	m := append([]string(nil), match...)
	sort.Strings(s)
	sort.Strings(m)
	return strings.Join(s, ",") + "|" + strings.Join(m, ",")
}

// JobManager manages background crawl jobs
type JobManager struct {
	jobs  map[string]*Job
	mu    sync.RWMutex
	byKey map[string]string // key -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:  make(map[string]*Job),
		byKey: make(map[string]string),
	}
}

// CreateJob creates a pending job for key; an active job with the same key is returned instead
// created reports whether a new job was made
func (m *JobManager) CreateJob(key string) (job Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID, exists := m.byKey[key]; exists {
		if existing := m.jobs[existingID]; existing != nil && existing.active() {
			return *existing, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Key:       key,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.byKey[key] = j.ID
	return *j, true
}

// GetJob returns a snapshot of the job
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, exists := m.jobs[jobID]; exists {
		return *j, true
	}
	return Job{}, false
}

// IsRunning checks if an active job exists for key
func (m *JobManager) IsRunning(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byKey[key]; exists {
		j := m.jobs[jobID]
		return j != nil && j.active()
	}
	return false
}

// UpdateStatus updates the status of a job; a cancelled job keeps its status
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, exists := m.jobs[jobID]
	if !exists || j.Status == JobStatusCancelled {
		return
	}
	j.Status = status
	if !j.active() {
		j.CompletedAt = time.Now()
		delete(m.byKey, j.Key)
	}
	if errorMsg != "" {
		j.ErrorMessage = errorMsg
	}
}

// SetReport stores the outcome of the job's crawl
func (m *JobManager) SetReport(jobID string, report *crawler.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, exists := m.jobs[jobID]; exists && report != nil {
		j.report = report
		j.Stats = report.Stats
	}
}

// CancelJob cancels an active job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, exists := m.jobs[jobID]
	if !exists || !j.active() {
		return false
	}
	j.cancel()
	j.Status = JobStatusCancelled
	j.CompletedAt = time.Now()
	delete(m.byKey, j.Key)
	return true
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		if j.active() {
			j.cancel()
			j.Status = JobStatusCancelled
			j.CompletedAt = time.Now()
		}
	}
	m.byKey = make(map[string]string)
}

// ListJobs returns snapshots of all jobs, oldest first
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].StartedAt.Before(jobs[b].StartedAt) })
	return jobs
}

// GetContext returns the context for a job (for running the crawler)
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if j, exists := m.jobs[jobID]; exists {
		return j.ctx
	}
	return context.Background()
}
