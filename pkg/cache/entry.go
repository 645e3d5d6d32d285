// Package cache provides an in-memory TTL cache for read-only remote
// call results. Each RPC client owns exactly one store; entries are
// never shared between clients.
package cache

import (
	"time"
)

// Entry is a cached call result with its insertion timestamp.
type Entry struct {
	// Value is the decoded call result.
	Value any

	// Model and Method are retained for scoped invalidation.
	Model  string
	Method string

	// StoredAt is when the entry was inserted.
	StoredAt time.Time
}

// Age returns how long the entry has been stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// Fresh reports whether the entry is younger than ttl. An entry aged
// exactly ttl is stale.
func (e *Entry) Fresh(ttl time.Duration) bool {
	return e.Age() < ttl
}
