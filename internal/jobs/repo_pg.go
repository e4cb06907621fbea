package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `request_id, user_id, mode, status, progress, job_description, company, job_title,
       source_resume, result_resume, intermediate_state, render_format, artifact_key,
       error_stage, error_message, created_at, updated_at, feedback_submitted_at, completed_at`

// CreateWithQuota atomically checks the quota policy and inserts the job.
// The user row is locked to serialize concurrent creates for the same user.
func (r *PGRepo) CreateWithQuota(ctx context.Context, job ResumeJob, policy QuotaPolicy) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, job.UserID); err != nil {
		return err
	}

	if policy.MaxConcurrent > 0 {
		var active int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM resume_jobs
WHERE user_id = $1 AND status IN ($2, $3, $4)`,
			job.UserID, StatusPending, StatusProcessing, StatusAwaitingFeedback).Scan(&active)
		if err != nil {
			return err
		}
		if active >= policy.MaxConcurrent {
			return ErrQuotaExceeded
		}
	}

	if policy.DailyLimit > 0 {
		midnight := localMidnight(time.Now(), policy.Location)
		var daily int
		err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM resume_jobs
WHERE user_id = $1 AND created_at >= $2`, job.UserID, midnight).Scan(&daily)
		if err != nil {
			return err
		}
		if daily >= policy.DailyLimit {
			return ErrDailyLimitReached
		}
	}

	sourcePayload, err := marshalJSONB(job.SourceResume)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO resume_jobs (request_id, user_id, mode, status, progress, job_description,
	company, job_title, source_resume, render_format)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.RequestID, job.UserID, string(job.Mode), job.Status, job.Progress,
		job.JobDescription, job.Company, job.JobTitle, sourcePayload, string(job.RenderFormat),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns a job by request ID.
func (r *PGRepo) Get(ctx context.Context, requestID string) (ResumeJob, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM resume_jobs WHERE request_id = $1`, requestID)
	return scanJob(row)
}

// GetForUser returns a job only if it belongs to the user.
func (r *PGRepo) GetForUser(ctx context.Context, requestID, userID string) (ResumeJob, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM resume_jobs WHERE request_id = $1 AND user_id = $2`,
		requestID, userID)
	return scanJob(row)
}

// MarkProcessing transitions the job into the processing status.
func (r *PGRepo) MarkProcessing(ctx context.Context, requestID string) error {
	return r.exec(ctx, `
UPDATE resume_jobs SET status = $2, updated_at = now()
WHERE request_id = $1`, requestID, StatusProcessing)
}

// UpdateProgress raises the stored progress; lower values are ignored.
func (r *PGRepo) UpdateProgress(ctx context.Context, requestID string, progress int) error {
	return r.exec(ctx, `
UPDATE resume_jobs SET progress = GREATEST(progress, $2), updated_at = now()
WHERE request_id = $1`, requestID, progress)
}

// Suspend parks the job for user feedback, storing the extracted hints.
func (r *PGRepo) Suspend(ctx context.Context, requestID string, hints JDHints, progress int) error {
	payload, err := marshalJSONB(hints)
	if err != nil {
		return err
	}
	return r.exec(ctx, `
UPDATE resume_jobs
SET status = $2, intermediate_state = $3, progress = GREATEST(progress, $4), updated_at = now()
WHERE request_id = $1`, requestID, StatusAwaitingFeedback, payload, progress)
}

// ResumeFromFeedback moves an awaiting job back into processing.
func (r *PGRepo) ResumeFromFeedback(ctx context.Context, requestID string, hints JDHints, progress int) error {
	payload, err := marshalJSONB(hints)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, `
UPDATE resume_jobs
SET status = $2, intermediate_state = $3, progress = GREATEST(progress, $4),
    feedback_submitted_at = now(), updated_at = now()
WHERE request_id = $1 AND status = $5`,
		requestID, StatusProcessing, payload, progress, StatusAwaitingFeedback)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either missing or in the wrong status; disambiguate for callers.
		if _, getErr := r.Get(ctx, requestID); getErr != nil {
			return getErr
		}
		return ErrNotAwaitingFeedback
	}
	return nil
}

// Complete records the final resume and artifact and closes the job.
func (r *PGRepo) Complete(ctx context.Context, requestID string, result resume.Resume, artifactKey string) error {
	payload, err := marshalJSONB(result)
	if err != nil {
		return err
	}
	return r.exec(ctx, `
UPDATE resume_jobs
SET status = $2, progress = 100, result_resume = $3, artifact_key = $4,
    completed_at = now(), updated_at = now()
WHERE request_id = $1`, requestID, StatusCompleted, payload, artifactKey)
}

// Fail records the failing stage and message.
func (r *PGRepo) Fail(ctx context.Context, requestID, stage, message string) error {
	return r.exec(ctx, `
UPDATE resume_jobs
SET status = $2, error_stage = $3, error_message = $4, updated_at = now()
WHERE request_id = $1`, requestID, StatusFailed, stage, message)
}

// ListByUser returns the user's jobs newest first, plus the unpaged total.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]ResumeJob, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Mode != "" {
		args = append(args, filter.Mode)
		where += fmt.Sprintf(` AND mode = $%d`, len(args))
	}
	if filter.Company != "" {
		args = append(args, filter.Company)
		where += fmt.Sprintf(` AND LOWER(company) = LOWER($%d)`, len(args))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resume_jobs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT `+jobColumns+` FROM resume_jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ResumeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, job)
	}
	return out, total, rows.Err()
}

// Delete removes a job owned by the user.
func (r *PGRepo) Delete(ctx context.Context, requestID, userID string) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM resume_jobs WHERE request_id = $1 AND user_id = $2`, requestID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates job counts for a user.
func (r *PGRepo) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT status, COUNT(*) FROM resume_jobs WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (ResumeJob, error) {
	var (
		job           ResumeJob
		mode          string
		format        string
		sourcePayload []byte
		resultPayload []byte
		hintsPayload  []byte
		feedbackAt    sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&job.RequestID, &job.UserID, &mode, &job.Status, &job.Progress,
		&job.JobDescription, &job.Company, &job.JobTitle,
		&sourcePayload, &resultPayload, &hintsPayload, &format, &job.ArtifactKey,
		&job.ErrorStage, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
		&feedbackAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ResumeJob{}, ErrNotFound
	}
	if err != nil {
		return ResumeJob{}, err
	}

	job.Mode = Mode(mode)
	job.RenderFormat = render.Format(format)
	if len(sourcePayload) > 0 {
		if err := json.Unmarshal(sourcePayload, &job.SourceResume); err != nil {
			return ResumeJob{}, fmt.Errorf("decode source resume: %w", err)
		}
	}
	if len(resultPayload) > 0 {
		var result resume.Resume
		if err := json.Unmarshal(resultPayload, &result); err != nil {
			return ResumeJob{}, fmt.Errorf("decode result resume: %w", err)
		}
		job.Result = &result
	}
	if len(hintsPayload) > 0 {
		var hints JDHints
		if err := json.Unmarshal(hintsPayload, &hints); err != nil {
			return ResumeJob{}, fmt.Errorf("decode intermediate state: %w", err)
		}
		job.Hints = &hints
	}
	if feedbackAt.Valid {
		t := feedbackAt.Time
		job.FeedbackAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

var _ Repo = (*PGRepo)(nil)
