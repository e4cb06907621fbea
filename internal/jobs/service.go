package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
)

// SuspendProgress is the checkpoint at which a job parks for feedback.
const SuspendProgress = 25

// Processor executes the generation pipeline for a job. It is implemented by
// the pipeline runner; the split keeps job bookkeeping and LLM orchestration
// in separate packages.
type Processor interface {
	Process(ctx context.Context, requestID string) error
	ResumeAfterFeedback(ctx context.Context, requestID string) error
}

// Service contains business logic for resume jobs.
type Service struct {
	Repo      Repo
	Pool      *Pool
	Processor Processor
	Store     object.ObjectStore
	Quota     QuotaPolicy
	// ResumeProgress is the progress value set when feedback restarts a
	// job. Values below SuspendProgress are lifted to it.
	ResumeProgress int
}

// CreateInput carries a new job request.
type CreateInput struct {
	Mode           string
	JobDescription string
	Company        string
	JobTitle       string
	Resume         resume.Resume
	RenderFormat   string
}

// Create validates the request, enforces quotas, stores the job, and
// enqueues it for processing.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (ResumeJob, error) {
	if userID == "" {
		return ResumeJob{}, errors.New("user id is required")
	}
	mode, err := ParseMode(input.Mode)
	if err != nil {
		return ResumeJob{}, err
	}
	if strings.TrimSpace(input.JobDescription) == "" {
		return ResumeJob{}, errors.New("job description is required")
	}
	if err := input.Resume.Validate(); err != nil {
		return ResumeJob{}, fmt.Errorf("resume: %w", err)
	}
	format, err := render.ParseFormat(input.RenderFormat)
	if err != nil {
		return ResumeJob{}, err
	}

	job := ResumeJob{
		RequestID:      "req_" + uuid.NewString(),
		UserID:         userID,
		Mode:           mode,
		Status:         StatusPending,
		Progress:       0,
		JobDescription: input.JobDescription,
		Company:        strings.TrimSpace(input.Company),
		JobTitle:       strings.TrimSpace(input.JobTitle),
		SourceResume:   input.Resume,
		RenderFormat:   format,
	}

	if err := s.Repo.CreateWithQuota(ctx, job, s.Quota); err != nil {
		return ResumeJob{}, err
	}
	metrics.IncJobStarted()

	if err := s.enqueue(ctx, job.RequestID, s.Processor.Process); err != nil {
		return ResumeJob{}, err
	}

	created, err := s.Repo.Get(ctx, job.RequestID)
	if err != nil {
		return job, nil
	}
	return created, nil
}

// SubmitFeedback resumes an awaiting job. When hints is non-nil it replaces
// the stored JD hints, letting the user prune or extend the keyword lists.
func (s *Service) SubmitFeedback(ctx context.Context, requestID, userID string, hints *JDHints) (ResumeJob, error) {
	job, err := s.Repo.GetForUser(ctx, requestID, userID)
	if err != nil {
		return ResumeJob{}, err
	}
	if job.Status != StatusAwaitingFeedback {
		return ResumeJob{}, ErrNotAwaitingFeedback
	}

	merged := JDHints{}
	if job.Hints != nil {
		merged = *job.Hints
	}
	if hints != nil {
		merged = *hints
	}

	if err := s.Repo.ResumeFromFeedback(ctx, requestID, merged, s.resumeProgress()); err != nil {
		return ResumeJob{}, err
	}

	if err := s.enqueue(ctx, requestID, s.Processor.ResumeAfterFeedback); err != nil {
		return ResumeJob{}, err
	}
	return s.Repo.GetForUser(ctx, requestID, userID)
}

// GetStatus returns the job for status polling.
func (s *Service) GetStatus(ctx context.Context, requestID, userID string) (ResumeJob, error) {
	return s.Repo.GetForUser(ctx, requestID, userID)
}

// GetResult returns a completed job, or ErrNotReady while it is still running.
func (s *Service) GetResult(ctx context.Context, requestID, userID string) (ResumeJob, error) {
	job, err := s.Repo.GetForUser(ctx, requestID, userID)
	if err != nil {
		return ResumeJob{}, err
	}
	if job.Status != StatusCompleted {
		return job, ErrNotReady
	}
	return job, nil
}

// List returns the user's jobs with paging, plus the unpaged total.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]ResumeJob, int, error) {
	return s.Repo.ListByUser(ctx, userID, filter)
}

// Delete removes a job owned by the user.
func (s *Service) Delete(ctx context.Context, requestID, userID string) error {
	return s.Repo.Delete(ctx, requestID, userID)
}

// Stats aggregates the user's job counts.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	return s.Repo.Stats(ctx, userID)
}

// Download opens the rendered document of a completed job and derives its
// attachment filename from the targeted company and title.
func (s *Service) Download(ctx context.Context, requestID, userID string) (io.ReadCloser, string, error) {
	job, err := s.Repo.GetForUser(ctx, requestID, userID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != StatusCompleted {
		return nil, "", ErrNotReady
	}
	if job.ArtifactKey == "" {
		return nil, "", ErrNoArtifact
	}

	reader, err := s.Store.Open(ctx, job.ArtifactKey)
	if err != nil {
		return nil, "", fmt.Errorf("open artifact: %w", err)
	}
	return reader, downloadName(job), nil
}

func downloadName(job ResumeJob) string {
	name := job.SourceResume.Name
	if job.Result != nil && job.Result.Name != "" {
		name = job.Result.Name
	}
	first := ""
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	if first == "" {
		return "resume_" + job.RequestID + ".docx"
	}
	return util.DownloadFileName(first, job.Company, job.JobTitle) + ".docx"
}

func (s *Service) resumeProgress() int {
	if s.ResumeProgress < SuspendProgress {
		return SuspendProgress
	}
	return s.ResumeProgress
}

func (s *Service) enqueue(ctx context.Context, requestID string, run func(context.Context, string) error) error {
	err := s.Pool.Submit(func(taskCtx context.Context) {
		// The runner records failures against the job itself; the error
		// here only marks the task as finished unsuccessfully.
		if runErr := run(carryRequestID(ctx, taskCtx), requestID); runErr != nil {
			telemetry.Warn("jobs.task_error", map[string]any{
				"request_id": requestID,
				"error":      runErr.Error(),
			})
		}
	})
	if err == nil {
		return nil
	}
	telemetry.Error("jobs.enqueue_failed", map[string]any{
		"request_id": requestID,
		"error":      err.Error(),
	})
	if failErr := s.Repo.Fail(context.WithoutCancel(ctx), requestID, "queue", "job queue is full"); failErr != nil {
		telemetry.Error("jobs.fail_after_enqueue", map[string]any{
			"request_id": requestID,
			"error":      failErr.Error(),
		})
	}
	metrics.IncJobFailed()
	return ErrQueueFull
}
