package searchcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu    sync.Mutex
	byKey map[string]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byKey: make(map[string]Entry)}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Get(_ context.Context, searchKey string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[searchKey]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Results = append([]Posting(nil), e.Results...)
	return e, nil
}

func (r *MemoryRepo) Put(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Results = append([]Posting(nil), e.Results...)
	r.byKey[e.SearchKey] = e
	return nil
}

func (r *MemoryRepo) RecordHit(_ context.Context, searchKey string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[searchKey]
	if !ok {
		return ErrNotFound
	}
	e.HitCount++
	e.LastAccessedAt = at
	r.byKey[searchKey] = e
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, searchKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[searchKey]; !ok {
		return ErrNotFound
	}
	delete(r.byKey, searchKey)
	return nil
}

func (r *MemoryRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, e := range r.byKey {
		if e.Expired(now) {
			delete(r.byKey, key)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepo) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := len(r.byKey)
	r.byKey = make(map[string]Entry)
	return removed, nil
}

func (r *MemoryRepo) Stats(_ context.Context, now time.Time, topN int) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{TotalEntries: len(r.byKey)}
	top := make([]KeyHits, 0, len(r.byKey))
	for _, e := range r.byKey {
		if e.Expired(now) {
			stats.ExpiredEntries++
		} else {
			stats.ActiveEntries++
		}
		stats.TotalHits += e.HitCount
		top = append(top, KeyHits{SearchKey: e.SearchKey, Title: e.Query.Title, HitCount: e.HitCount})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].HitCount != top[j].HitCount {
			return top[i].HitCount > top[j].HitCount
		}
		return top[i].SearchKey < top[j].SearchKey
	})
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}
	stats.TopByHits = top
	return stats, nil
}
