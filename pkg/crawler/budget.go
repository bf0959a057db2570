package crawler

import "sync/atomic"

// Budget is the remaining number of fetches a crawl may dispatch
type Budget struct {
	limit     int64
	remaining atomic.Int64
}

// NewBudget returns a Budget allowing limit fetches; a negative limit allows none
func NewBudget(limit int) *Budget {
	b := &Budget{limit: int64(max(limit, 0))}
	b.remaining.Store(b.limit)
	return b
}

// TryConsume takes one unit of budget, returning false once the budget is exhausted
// An exhausted budget is never driven below zero
func (b *Budget) TryConsume() bool {
	for {
		current := b.remaining.Load()
		if current <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// Remaining returns the number of fetches still allowed
func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}

// Used returns the number of fetches consumed so far
func (b *Budget) Used() int {
	return int(b.limit - b.remaining.Load())
}
