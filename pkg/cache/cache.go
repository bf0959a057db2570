// Package cache provides a bounded in-memory key/value cache with a choice of
// eviction strategy and optional expiry.
package cache

import (
	"container/list"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"render-crawler/pkg/utils"
)

// DefaultMaxSize is used when Options.MaxSize is not positive
const DefaultMaxSize = 100

// Strategy selects which entry is evicted when the cache is full
type Strategy string

const (
	StrategyLRU    Strategy = "lru"    // least recently read or written
	StrategyLFU    Strategy = "lfu"    // fewest reads since written; oldest on ties
	StrategyFIFO   Strategy = "fifo"   // oldest written
	StrategyRandom Strategy = "random" // any entry
)

// ParseStrategy maps a config string to a Strategy; empty means LRU
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyLRU:
		return StrategyLRU, nil
	case StrategyLFU:
		return StrategyLFU, nil
	case StrategyFIFO:
		return StrategyFIFO, nil
	case StrategyRandom:
		return StrategyRandom, nil
	}
	return "", fmt.Errorf("%w: unknown cache strategy '%s'", utils.ErrConfigValidation, s)
}

// Store is the capability shared by every cache implementation
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Clear()
	Len() int
}

// Options configures a Cache
type Options struct {
	MaxSize  int           // Maximum number of entries; DefaultMaxSize when <= 0
	Strategy Strategy      // Eviction strategy; LRU when empty
	TTL      time.Duration // Entry lifetime from its last Set; 0 disables expiry
}

type entry[K comparable, V any] struct {
	key    K
	value  V
	expiry time.Time // zero when the cache has no TTL
	hits   int
}

// Cache is safe for concurrent use
// Entries live in a list whose front is the most recently written (or, for LRU, most recently used) entry
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*list.Element
	order    *list.List
	maxSize  int
	strategy Strategy
	ttl      time.Duration
	now      func() time.Time
}

var _ Store[string, int] = (*Cache[string, int])(nil)

// New creates an empty cache
func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyLRU
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	return &Cache[K, V]{
		items:    make(map[K]*list.Element),
		order:    list.New(),
		maxSize:  opts.MaxSize,
		strategy: opts.Strategy,
		ttl:      opts.TTL,
		now:      time.Now,
	}
}

// Get returns the value for key; an expired entry is removed and reported missing
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(elem)
		return zero, false
	}

	switch c.strategy {
	case StrategyLRU:
		c.order.MoveToFront(elem)
	case StrategyLFU:
		e.hits++
	}
	return e.value, true
}

// Set stores value under key, evicting one entry first when the cache is full
// Overwriting a key resets its expiry and usage count and makes it the newest entry
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expiry = c.expiryFromNow()
		e.hits = 1
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evict()
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:    key,
		value:  value,
		expiry: c.expiryFromNow(),
		hits:   1,
	})
}

// Delete removes key if present
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear removes every entry
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, expired ones that were not yet read included
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) expiryFromNow() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiry.IsZero() && c.now().After(e.expiry)
}

func (c *Cache[K, V]) remove(elem *list.Element) {
	e := c.order.Remove(elem).(*entry[K, V])
	delete(c.items, e.key)
}

// evict drops one entry according to the strategy; caller holds mu
func (c *Cache[K, V]) evict() {
	var victim *list.Element
	switch c.strategy {
	case StrategyLFU:
		minHits := 0
		for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
			if hits := elem.Value.(*entry[K, V]).hits; victim == nil || hits < minHits {
				victim, minHits = elem, hits
			}
		}
	case StrategyRandom:
		n := rand.IntN(c.order.Len())
		victim = c.order.Front()
		for range n {
			victim = victim.Next()
		}
	default: // LRU and FIFO: the back of the list is the least recent / oldest
		victim = c.order.Back()
	}
	if victim != nil {
		c.remove(victim)
	}
}
