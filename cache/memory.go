package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrNilEntry is returned when Write is called without an entry
var ErrNilEntry = errors.New("cache: nil entry")

// Clock returns the current time. Swapped out in tests.
type Clock func() time.Time

// MemoryCache implements the Cache interface with a process-local map.
// Entries are never evicted; a stale entry stays in place until the next
// successful write for its key replaces it.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     Clock
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithClock changes the clock used for stamping and expiry checks
func WithClock(clock Clock) Option {
	return func(mc *MemoryCache) {
		mc.now = clock
	}
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(mc)
	}
	return mc
}

// Read implements Reader interface
func (mc *MemoryCache) Read(key string, maxAge time.Duration) (*Entry, bool) {
	mc.mu.RLock()
	entry, ok := mc.entries[key]
	mc.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// Check if expired
	if maxAge > 0 && mc.now().Sub(entry.FetchedAt) > maxAge {
		return nil, false
	}

	return &entry, true
}

// Write implements Writer interface
func (mc *MemoryCache) Write(key string, entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	entry.FetchedAt = mc.now()

	body := make([]byte, len(entry.Body))
	copy(body, entry.Body)

	mc.mu.Lock()
	mc.entries[key] = Entry{FetchedAt: entry.FetchedAt, Body: body}
	mc.mu.Unlock()
	return nil
}

// KeyFor implements KeyGenerator interface
func (mc *MemoryCache) KeyFor(path string, params map[string]string) string {
	return KeyFor(path, params)
}

// Len reports how many keys have ever been written
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}

// Ensure MemoryCache implements the Cache interface
var _ Cache = (*MemoryCache)(nil)
