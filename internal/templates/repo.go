package templates

import "context"

// Repo persists one resume template per user.
type Repo interface {
	// Save inserts or replaces the template keyed by t.UserID.
	Save(ctx context.Context, t Template) error
	Get(ctx context.Context, userID string) (Template, error)
	Delete(ctx context.Context, userID string) error
}
