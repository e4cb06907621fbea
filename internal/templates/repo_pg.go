package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"resume-tailor/internal/resume"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Save(ctx context.Context, t Template) error {
	payload, err := json.Marshal(t.Resume)
	if err != nil {
		return fmt.Errorf("marshal resume: %w", err)
	}

	const q = `
		INSERT INTO resume_templates (user_id, resume, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET resume = EXCLUDED.resume, updated_at = now()`
	if _, err := r.DB.ExecContext(ctx, q, t.UserID, payload); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Template, error) {
	const q = `SELECT resume, updated_at FROM resume_templates WHERE user_id = $1`

	var (
		payload []byte
		t       = Template{UserID: userID}
	)
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(&payload, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}

	var res resume.Resume
	if err := json.Unmarshal(payload, &res); err != nil {
		return Template{}, fmt.Errorf("decode template resume: %w", err)
	}
	t.Resume = res
	return t, nil
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resume_templates WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
