package searchcache

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

// Query identifies one job-board search. Two queries that differ only in
// casing, whitespace, or source order share a cache entry.
type Query struct {
	Title      string   `json:"title"`
	Location   string   `json:"location"`
	DatePosted string   `json:"date_posted,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// Posting is one job-board result.
type Posting struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location,omitempty"`
	Source   string `json:"source,omitempty"`
	URL      string `json:"url,omitempty"`
	Posted   string `json:"posted,omitempty"`
}

// Entry memoizes one search's results until ExpiresAt.
type Entry struct {
	SearchKey      string    `json:"search_key"`
	Query          Query     `json:"query"`
	Results        []Posting `json:"results"`
	HitCount       int       `json:"hit_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the entry may no longer be served.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// KeyHits pairs a cache key with its hit count for stats reporting.
type KeyHits struct {
	SearchKey string `json:"search_key"`
	Title     string `json:"title"`
	HitCount  int    `json:"hit_count"`
}

// Stats summarizes cache occupancy and usage.
type Stats struct {
	TotalEntries   int       `json:"total_entries"`
	ActiveEntries  int       `json:"active_entries"`
	ExpiredEntries int       `json:"expired_entries"`
	TotalHits      int       `json:"total_hits"`
	TopByHits      []KeyHits `json:"top_by_hits"`
}
