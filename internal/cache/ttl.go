package cache

import (
	"sync"
	"time"
)

// State describes a slot as seen at a given instant.
type State int

const (
	Empty State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

// Clock returns the current time. Tests replace it to move time forward.
type Clock func() time.Time

type entry[T any] struct {
	data     T
	storedAt time.Time
}

// TTLCache keeps one immutable entry per key and evaluates expiry lazily
// on access. An expired entry is kept so its age can be reported, but Get
// never returns it.
type TTLCache[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   Clock
	items map[string]*entry[T]
	// gen counts Clear calls.
	gen uint64
}

// NewTTLCache creates a cache whose entries are fresh for ttl.
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return NewTTLCacheWithClock[T](ttl, time.Now)
}

func NewTTLCacheWithClock[T any](ttl time.Duration, now Clock) *TTLCache[T] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[T]{
		ttl:   ttl,
		now:   now,
		items: make(map[string]*entry[T]),
	}
}

// TTL returns the freshness window.
func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero T
	if !ok || !c.fresh(e) {
		return zero, false
	}
	return e.data, true
}

func (c *TTLCache[T]) Set(key string, data T) {
	e := &entry[T]{data: data, storedAt: c.now()}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// Generation returns a token that changes on every Clear.
func (c *TTLCache[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfGeneration stores data only if no Clear happened since gen was
// read. It reports whether the entry was stored.
func (c *TTLCache[T]) SetIfGeneration(key string, data T, gen uint64) bool {
	e := &entry[T]{data: data, storedAt: c.now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.items[key] = e
	return true
}

func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear replaces the entry map in one step, so a reader sees either the
// old map or the empty one.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry[T])
	c.gen++
	c.mu.Unlock()
}

func (c *TTLCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Peek reports the state of key and when its entry was stored.
func (c *TTLCache[T]) Peek(key string) (State, time.Time) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return Empty, time.Time{}
	}
	if c.fresh(e) {
		return Fresh, e.storedAt
	}
	return Stale, e.storedAt
}

// CleanExpired removes stale entries and returns how many were dropped.
func (c *TTLCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if !c.fresh(e) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[T]) fresh(e *entry[T]) bool {
	return c.now().Sub(e.storedAt) < c.ttl
}
