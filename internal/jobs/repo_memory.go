package jobs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"resume-tailor/internal/resume"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]ResumeJob
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]ResumeJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateWithQuota checks the quota policy and stores the job under one lock,
// so concurrent creates cannot overshoot the limits.
func (r *MemoryRepo) CreateWithQuota(ctx context.Context, job ResumeJob, policy QuotaPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	active, daily := 0, 0
	midnight := localMidnight(r.now(), policy.Location)
	for _, existing := range r.byID {
		if existing.UserID != job.UserID {
			continue
		}
		if existing.Active() {
			active++
		}
		if !existing.CreatedAt.Before(midnight) {
			daily++
		}
	}
	if policy.MaxConcurrent > 0 && active >= policy.MaxConcurrent {
		return ErrQuotaExceeded
	}
	if policy.DailyLimit > 0 && daily >= policy.DailyLimit {
		return ErrDailyLimitReached
	}

	now := r.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.byID[job.RequestID] = job
	return nil
}

// Get returns a job by request ID.
func (r *MemoryRepo) Get(ctx context.Context, requestID string) (ResumeJob, error) {
	if err := ctx.Err(); err != nil {
		return ResumeJob{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[requestID]
	if !ok {
		return ResumeJob{}, ErrNotFound
	}
	return job, nil
}

// GetForUser returns a job only if it belongs to the user. Other users' jobs
// are indistinguishable from missing ones.
func (r *MemoryRepo) GetForUser(ctx context.Context, requestID, userID string) (ResumeJob, error) {
	job, err := r.Get(ctx, requestID)
	if err != nil {
		return ResumeJob{}, err
	}
	if job.UserID != userID {
		return ResumeJob{}, ErrNotFound
	}
	return job, nil
}

// MarkProcessing transitions the job into the processing status.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, requestID string) error {
	return r.update(ctx, requestID, func(job *ResumeJob) {
		job.Status = StatusProcessing
	})
}

// UpdateProgress raises the stored progress; lower values are ignored.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, requestID string, progress int) error {
	return r.update(ctx, requestID, func(job *ResumeJob) {
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

// Suspend parks the job for user feedback, storing the extracted hints.
func (r *MemoryRepo) Suspend(ctx context.Context, requestID string, hints JDHints, progress int) error {
	return r.update(ctx, requestID, func(job *ResumeJob) {
		job.Status = StatusAwaitingFeedback
		job.Hints = &hints
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

// ResumeFromFeedback moves an awaiting job back into processing with the
// (possibly edited) hints.
func (r *MemoryRepo) ResumeFromFeedback(ctx context.Context, requestID string, hints JDHints, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[requestID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusAwaitingFeedback {
		return ErrNotAwaitingFeedback
	}
	now := r.now()
	job.Status = StatusProcessing
	job.Hints = &hints
	if progress > job.Progress {
		job.Progress = progress
	}
	job.FeedbackAt = &now
	job.UpdatedAt = now
	r.byID[requestID] = job
	return nil
}

// Complete records the final resume and artifact and closes the job.
func (r *MemoryRepo) Complete(ctx context.Context, requestID string, result resume.Resume, artifactKey string) error {
	return r.update(ctx, requestID, func(job *ResumeJob) {
		now := r.now()
		job.Status = StatusCompleted
		job.Progress = 100
		job.Result = &result
		job.ArtifactKey = artifactKey
		job.CompletedAt = &now
	})
}

// Fail records the failing stage and message.
func (r *MemoryRepo) Fail(ctx context.Context, requestID, stage, message string) error {
	return r.update(ctx, requestID, func(job *ResumeJob) {
		job.Status = StatusFailed
		job.ErrorStage = stage
		job.ErrorMessage = message
	})
}

// ListByUser returns the user's jobs newest first, plus the unpaged total.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]ResumeJob, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []ResumeJob
	for _, job := range r.byID {
		if job.UserID != userID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Mode != "" && string(job.Mode) != filter.Mode {
			continue
		}
		if filter.Company != "" && !strings.EqualFold(job.Company, filter.Company) {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := filter.Offset
	if offset > total {
		offset = total
	}
	matched = matched[offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// Delete removes a job owned by the user.
func (r *MemoryRepo) Delete(ctx context.Context, requestID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[requestID]
	if !ok || job.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, requestID)
	return nil
}

// Stats aggregates job counts for a user.
func (r *MemoryRepo) Stats(ctx context.Context, userID string) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{ByStatus: make(map[string]int)}
	for _, job := range r.byID {
		if job.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByStatus[job.Status]++
	}
	return stats, nil
}

func (r *MemoryRepo) update(ctx context.Context, requestID string, apply func(*ResumeJob)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[requestID]
	if !ok {
		return ErrNotFound
	}
	apply(&job)
	job.UpdatedAt = r.now()
	r.byID[requestID] = job
	return nil
}

func localMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

var _ Repo = (*MemoryRepo)(nil)
