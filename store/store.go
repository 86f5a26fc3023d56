// Package store persists security logs in a time-partitioned key-value
// layout and exposes the counter engine backing remote rate limiting.
// Every method here reports failures to its caller; resilience policy
// (swallow vs propagate) is decided one layer up.
package store

import (
	"context"
	"time"
)

// LogStore is the append-only security log table with its four secondary
// query paths. All queries page most-recent-first via opaque cursors.
type LogStore interface {
	// Save writes one record. One write is one record, no upsert.
	Save(ctx context.Context, rec *Record) error
	// SaveBatch writes records in chunks of at most BatchLimit. The first
	// failing chunk aborts the remainder and the error propagates.
	SaveBatch(ctx context.Context, recs []*Record) error

	QueryByDate(ctx context.Context, date string, limit int, cursor string) (*QueryResult, error)
	QueryByIP(ctx context.Context, ip string, limit int, cursor string) (*QueryResult, error)
	// QueryByEventType optionally post-filters by level. Count reflects
	// the page size before the filter is applied.
	QueryByEventType(ctx context.Context, eventType, levelFilter string, limit int, cursor string) (*QueryResult, error)
	QueryByLevel(ctx context.Context, level string, limit int, cursor string) (*QueryResult, error)
	// QueryByTimeRange scopes to a single date partition; it never spans
	// midnight in one call.
	QueryByTimeRange(ctx context.Context, date string, from, to time.Time, limit int, cursor string) (*QueryResult, error)

	// StatsByDate scans one full date partition. O(partition size).
	StatsByDate(ctx context.Context, date string) (*DateStats, error)
}

// BatchLimit is the underlying engine's hard cap on one batch write.
const BatchLimit = 25

// CounterStore is the rate-limit counter engine (the `ip-rate-limit`
// keyspace). Read and increment are separate calls; callers accept the
// resulting read-then-increment race for approximate throttling.
type CounterStore interface {
	// GetCount returns the current count for key. A record whose stored
	// TTL has passed reads as zero; it is not deleted.
	GetCount(ctx context.Context, key string) (int64, error)
	// Increment atomically adds one, defaulting a missing counter to
	// zero, and stamps a fresh TTL of window from now. Because the TTL
	// refreshes on every increment, only a full window of silence lets a
	// counter expire.
	Increment(ctx context.Context, key string, window time.Duration) error
}
