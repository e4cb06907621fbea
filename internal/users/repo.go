package users

import "context"

type Repo interface {
	// Upsert inserts the user on first login and refreshes email, name,
	// and last_login_at afterwards.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
}
