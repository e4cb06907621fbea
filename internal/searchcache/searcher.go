package searchcache

import (
	"context"
	"errors"
)

// ErrSearcherUnavailable is returned when no job-board searcher is wired.
var ErrSearcherUnavailable = errors.New("job search is not configured")

// Searcher fetches fresh postings for a query from external job boards.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Posting, error)
}

// PlaceholderSearcher rejects every search. It stands in when no scraper
// backend is configured, keeping cache admin operations usable.
type PlaceholderSearcher struct{}

func (PlaceholderSearcher) Search(context.Context, Query) ([]Posting, error) {
	return nil, ErrSearcherUnavailable
}
