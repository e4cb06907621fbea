package searchcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/telemetry"
)

// Clear scopes accepted by ClearScope.
const (
	ScopeAll     = "all"
	ScopeExpired = "expired"
)

// Service fronts the external searcher with a TTL cache.
type Service struct {
	Repo     Repo
	Searcher Searcher
	TTL      time.Duration

	now func() time.Time
}

func NewService(repo Repo, searcher Searcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{Repo: repo, Searcher: searcher, TTL: ttl, now: time.Now}
}

// SearchResult carries postings plus cache provenance for the response.
type SearchResult struct {
	Results   []Posting `json:"results"`
	Cached    bool      `json:"cached"`
	CacheHits int       `json:"cacheHits"`
}

// Search serves from cache while the entry is fresh. An expired entry is
// evicted on the way to a fresh scrape, so stale results are never served.
func (s *Service) Search(ctx context.Context, q Query) (SearchResult, error) {
	if strings.TrimSpace(q.Title) == "" {
		return SearchResult{}, errors.New("title is required")
	}

	key := BuildKey(q)
	now := s.now().UTC()

	entry, err := s.Repo.Get(ctx, key)
	switch {
	case err == nil && !entry.Expired(now):
		if err := s.Repo.RecordHit(ctx, key, now); err != nil {
			telemetry.Warn("searchcache.record_hit", map[string]any{
				"search_key": key,
				"error":      err.Error(),
			})
		}
		metrics.IncSearchCacheHit()
		return SearchResult{Results: entry.Results, Cached: true, CacheHits: entry.HitCount + 1}, nil
	case err == nil:
		// Stale entry for this key; evict before re-scraping.
		if err := s.Repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			telemetry.Warn("searchcache.evict", map[string]any{
				"search_key": key,
				"error":      err.Error(),
			})
		}
	case !errors.Is(err, ErrNotFound):
		return SearchResult{}, err
	}

	metrics.IncSearchCacheMiss()
	results, err := s.Searcher.Search(ctx, q)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search job boards: %w", err)
	}

	if err := s.Repo.Put(ctx, Entry{
		SearchKey:      key,
		Query:          q,
		Results:        results,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.TTL),
	}); err != nil {
		telemetry.Warn("searchcache.store", map[string]any{
			"search_key": key,
			"error":      err.Error(),
		})
	}
	return SearchResult{Results: results, Cached: false, CacheHits: 0}, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Repo.Stats(ctx, s.now().UTC(), 10)
}

// Clear evicts by scope: "all", "expired", or one exact key.
func (s *Service) Clear(ctx context.Context, scope, key string) (int, error) {
	switch scope {
	case ScopeAll:
		return s.Repo.DeleteAll(ctx)
	case ScopeExpired:
		return s.Repo.DeleteExpired(ctx, s.now().UTC())
	case "":
		if strings.TrimSpace(key) == "" {
			return 0, errors.New("scope or key is required")
		}
		if err := s.Repo.Delete(ctx, key); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", scope)
	}
}

// Refresh re-scrapes one cached query and resets its hit count.
func (s *Service) Refresh(ctx context.Context, key string) (SearchResult, error) {
	entry, err := s.Repo.Get(ctx, key)
	if err != nil {
		return SearchResult{}, err
	}

	results, err := s.Searcher.Search(ctx, entry.Query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("refresh search: %w", err)
	}

	now := s.now().UTC()
	if err := s.Repo.Put(ctx, Entry{
		SearchKey:      key,
		Query:          entry.Query,
		Results:        results,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.TTL),
	}); err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Results: results, Cached: false, CacheHits: 0}, nil
}
