package jobs

import (
	"context"
	"time"

	"resume-tailor/internal/resume"
)

// QuotaPolicy bounds how many jobs a user may run. DailyLimit counts jobs
// created since local midnight in Location.
type QuotaPolicy struct {
	MaxConcurrent int
	DailyLimit    int
	Location      *time.Location
}

// ListFilter narrows and pages ListByUser results.
type ListFilter struct {
	Status  string
	Mode    string
	Company string
	Limit   int
	Offset  int
}

// Stats aggregates a user's job counts.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Repo defines persistence operations for resume jobs. Write methods that
// take a requestID without a userID are only called from the pipeline, which
// already owns the job.
type Repo interface {
	// CreateWithQuota atomically checks the policy and inserts the job,
	// returning ErrQuotaExceeded or ErrDailyLimitReached on violation.
	CreateWithQuota(ctx context.Context, job ResumeJob, policy QuotaPolicy) error
	Get(ctx context.Context, requestID string) (ResumeJob, error)
	GetForUser(ctx context.Context, requestID, userID string) (ResumeJob, error)
	MarkProcessing(ctx context.Context, requestID string) error
	// UpdateProgress ignores values lower than the stored progress so the
	// reported percentage never moves backwards.
	UpdateProgress(ctx context.Context, requestID string, progress int) error
	Suspend(ctx context.Context, requestID string, hints JDHints, progress int) error
	ResumeFromFeedback(ctx context.Context, requestID string, hints JDHints, progress int) error
	Complete(ctx context.Context, requestID string, result resume.Resume, artifactKey string) error
	Fail(ctx context.Context, requestID, stage, message string) error
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]ResumeJob, int, error)
	Delete(ctx context.Context, requestID, userID string) error
	Stats(ctx context.Context, userID string) (Stats, error)
}
