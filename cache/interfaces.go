// Package cache provides the response cache behind the dentsi client:
// backend payloads keyed by endpoint and request parameters, read back only
// while they are younger than the caller's TTL.
package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached backend payload. Body holds the unwrapped JSON
// payload, not the raw HTTP response.
type Entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// Reader looks up payloads that are still fresh
type Reader interface {
	// Read reports false for a missing key and for an entry older than
	// maxAge. A maxAge of zero disables the age check.
	Read(key string, maxAge time.Duration) (*Entry, bool)
}

// Writer stores payloads
type Writer interface {
	// Write replaces the entry for key and sets FetchedAt to the cache's
	// current time, on the stored copy and on entry itself.
	Write(key string, entry *Entry) error
}

type ReadWriter interface {
	Reader
	Writer
}

// KeyGenerator maps an endpoint and its query parameters to a cache key.
// Parameter order must not change the key.
type KeyGenerator interface {
	KeyFor(path string, params map[string]string) string
}

// Cache is what the dentsi client needs from a response cache: it derives
// keys through KeyFor and then reads and writes under them.
type Cache interface {
	ReadWriter
	KeyGenerator
}
