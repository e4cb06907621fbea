package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const q = `
		INSERT INTO users (id, email, name, created_at, last_login_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    last_login_at = now()`
	if _, err := r.DB.ExecContext(ctx, q, user.ID, user.Email, nullableString(user.Name)); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const q = `SELECT id, email, name, created_at, last_login_at FROM users WHERE id = $1`

	var (
		user User
		name sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(
		&user.ID, &user.Email, &name, &user.CreatedAt, &user.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	user.Name = name.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
