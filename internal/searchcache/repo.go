package searchcache

import (
	"context"
	"time"
)

// Repo persists cache entries keyed by search key.
type Repo interface {
	Get(ctx context.Context, searchKey string) (Entry, error)
	// Put upserts the entry, replacing results, expiry, and hit count for
	// an existing key.
	Put(ctx context.Context, e Entry) error
	// RecordHit increments hit_count and stamps last_accessed_at.
	RecordHit(ctx context.Context, searchKey string, at time.Time) error
	Delete(ctx context.Context, searchKey string) error
	// DeleteExpired removes entries whose expiry has passed and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	DeleteAll(ctx context.Context) (int, error)
	Stats(ctx context.Context, now time.Time, topN int) (Stats, error)
}
