package frontier

import (
	"sync"

	"github.com/sirupsen/logrus"

	"render-crawler/pkg/parse"
)

// Frontier is the pending-work queue of a crawl together with its seen set
// Every URL is normalized before the seen check, so two spellings of the same page enqueue once
// A URL that has been popped is never enqueued again because it stays in the seen set
type Frontier struct {
	mu    sync.Mutex
	queue []string
	head  int // index of the oldest entry; popped slots are released on compaction
	seen  map[string]struct{}
	log   *logrus.Entry

	duplicates int // pushes rejected by the seen check
	invalid    int // pushes rejected by normalization
}

// New creates an empty Frontier
func New(logger *logrus.Entry) *Frontier {
	return &Frontier{
		seen: make(map[string]struct{}),
		log:  logger.WithField("component", "frontier"),
	}
}

// Push normalizes each URL and enqueues the ones not seen before, returning how many were enqueued
// Invalid or non-http(s) URLs are dropped. The seen check and the enqueue happen under one lock
func (f *Frontier) Push(urls ...string) int {
	keys := make([]string, 0, len(urls))
	for _, raw := range urls {
		key, err := parse.Normalize(raw)
		if err != nil {
			f.log.Debugf("Dropping URL '%s': %v", raw, err)
			continue
		}
		keys = append(keys, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.invalid += len(urls) - len(keys)
	added := 0
	for _, key := range keys {
		if _, exists := f.seen[key]; exists {
			f.duplicates++
			continue
		}
		f.seen[key] = struct{}{}
		f.queue = append(f.queue, key)
		added++
	}
	return added
}

// Pop removes and returns the oldest pending URL
// Returns "" and false when the queue is empty; it never blocks
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.queue) {
		return "", false
	}
	next := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++

	// Compact once the consumed prefix dominates the backing array
	if f.head > 64 && f.head*2 >= len(f.queue) {
		remaining := copy(f.queue, f.queue[f.head:])
		f.queue = f.queue[:remaining]
		f.head = 0
	}
	return next, true
}

// Len returns the number of pending URLs
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// Seen reports whether rawURL (after normalization) was ever pushed
func (f *Frontier) Seen(rawURL string) bool {
	key, err := parse.Normalize(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.seen[key]
	return exists
}

// SeenCount returns the number of distinct URLs ever enqueued
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// Duplicates returns how many pushed URLs were rejected because they had already been seen
func (f *Frontier) Duplicates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duplicates
}

// Invalid returns how many pushed URLs were rejected by normalization
func (f *Frontier) Invalid() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalid
}
