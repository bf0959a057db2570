package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_pages_fetched_total",
		Help: "Total number of pages successfully processed",
	})
	PageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_page_failures_total",
		Help: "Pages dropped after a failed fetch or handler, by error category",
	}, []string{"category"})
	DroppedOverBudget = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_dropped_over_budget_total",
		Help: "Unique URLs discarded because the crawl budget was exhausted",
	})
	DuplicateURLs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_duplicate_urls_total",
		Help: "Discovered URLs rejected because they were already seen",
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crawler_tasks_in_flight",
		Help: "Crawl tasks currently running",
	})
	TaskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crawler_task_duration_seconds",
		Help:    "Time spent per crawl task, from dispatch to completion",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	CrawlsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_crawls_total",
		Help: "Crawl runs started",
	})
)

func init() {
	prometheus.MustRegister(PagesFetched, PageFailures, DroppedOverBudget, DuplicateURLs, InFlight, TaskDuration, CrawlsTotal)
}
