package searchcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const entryColumns = `search_key, query, results, hit_count, created_at, last_accessed_at, expires_at`

func (r *PGRepo) Get(ctx context.Context, searchKey string) (Entry, error) {
	q := fmt.Sprintf(`SELECT %s FROM job_search_cache WHERE search_key = $1`, entryColumns)

	var (
		e       Entry
		query   []byte
		results []byte
	)
	err := r.DB.QueryRowContext(ctx, q, searchKey).Scan(
		&e.SearchKey, &query, &results, &e.HitCount,
		&e.CreatedAt, &e.LastAccessedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get cache entry: %w", err)
	}

	if err := json.Unmarshal(query, &e.Query); err != nil {
		return Entry{}, fmt.Errorf("decode cache query: %w", err)
	}
	if err := json.Unmarshal(results, &e.Results); err != nil {
		return Entry{}, fmt.Errorf("decode cache results: %w", err)
	}
	return e, nil
}

func (r *PGRepo) Put(ctx context.Context, e Entry) error {
	query, err := json.Marshal(e.Query)
	if err != nil {
		return fmt.Errorf("marshal cache query: %w", err)
	}
	results, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("marshal cache results: %w", err)
	}

	const q = `
		INSERT INTO job_search_cache (search_key, query, results, hit_count, created_at, last_accessed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (search_key) DO UPDATE
		SET query = EXCLUDED.query,
		    results = EXCLUDED.results,
		    hit_count = EXCLUDED.hit_count,
		    created_at = EXCLUDED.created_at,
		    last_accessed_at = EXCLUDED.last_accessed_at,
		    expires_at = EXCLUDED.expires_at`
	if _, err := r.DB.ExecContext(ctx, q, e.SearchKey, query, results,
		e.HitCount, e.CreatedAt, e.LastAccessedAt, e.ExpiresAt); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func (r *PGRepo) RecordHit(ctx context.Context, searchKey string, at time.Time) error {
	const q = `UPDATE job_search_cache SET hit_count = hit_count + 1, last_accessed_at = $2 WHERE search_key = $1`
	res, err := r.DB.ExecContext(ctx, q, searchKey, at)
	if err != nil {
		return fmt.Errorf("record cache hit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, searchKey string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_search_cache WHERE search_key = $1`, searchKey)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_search_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *PGRepo) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_search_cache`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *PGRepo) Stats(ctx context.Context, now time.Time, topN int) (Stats, error) {
	const aggQ = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE expires_at > $1),
		       COALESCE(SUM(hit_count), 0)
		FROM job_search_cache`

	var stats Stats
	if err := r.DB.QueryRowContext(ctx, aggQ, now).Scan(
		&stats.TotalEntries, &stats.ActiveEntries, &stats.TotalHits); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.ExpiredEntries = stats.TotalEntries - stats.ActiveEntries

	if topN <= 0 {
		return stats, nil
	}

	const topQ = `
		SELECT search_key, query->>'title', hit_count
		FROM job_search_cache
		ORDER BY hit_count DESC, search_key
		LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, topQ, topN)
	if err != nil {
		return Stats{}, fmt.Errorf("cache top hits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kh KeyHits
		if err := rows.Scan(&kh.SearchKey, &kh.Title, &kh.HitCount); err != nil {
			return Stats{}, err
		}
		stats.TopByHits = append(stats.TopByHits, kh)
	}
	return stats, rows.Err()
}
