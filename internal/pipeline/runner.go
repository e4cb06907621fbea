package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"resume-tailor/internal/jobs"
	"resume-tailor/internal/llm"
	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
)

// Progress checkpoints reported while a job moves through the pipeline.
// The repo rejects regressions, so a stage repeated after a crash or a
// feedback restart never moves the visible percentage backwards.
const (
	progressStarted    = 5
	progressAnalyzing  = 10
	progressSummary    = 40
	progressSkills     = 60
	progressExperience = 75
	progressRendering  = 95
)

// Runner executes the tailoring stages for a job. The first leg runs up
// to hint extraction and parks the job for feedback; the second leg runs
// after feedback and carries the job to completion.
type Runner struct {
	Repo         jobs.Repo
	LLM          llm.Client
	Store        object.ObjectStore
	StageTimeout time.Duration

	now func() time.Time
}

func NewRunner(repo jobs.Repo, client llm.Client, store object.ObjectStore, stageTimeout time.Duration) *Runner {
	if stageTimeout <= 0 {
		stageTimeout = 90 * time.Second
	}
	return &Runner{
		Repo:         repo,
		LLM:          client,
		Store:        store,
		StageTimeout: stageTimeout,
		now:          time.Now,
	}
}

var _ jobs.Processor = (*Runner)(nil)

// Process runs the pre-feedback leg: validation, hint extraction, and the
// park at awaiting_feedback. The worker slot is released on return; the
// post-feedback leg runs in a fresh task once feedback arrives.
func (r *Runner) Process(ctx context.Context, requestID string) (err error) {
	defer r.recoverStage(ctx, requestID, &err)

	job, err := r.Repo.Get(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	if err := r.Repo.MarkProcessing(ctx, requestID); err != nil {
		return r.fail(ctx, requestID, "start", fmt.Errorf("mark processing: %w", err))
	}
	r.progress(ctx, requestID, progressStarted)
	r.logTransition(requestID, jobs.StatusPending, jobs.StatusProcessing)

	r.progress(ctx, requestID, progressAnalyzing)
	client := newRetryingLLM(r.LLM, requestID)

	stageCtx, cancel := context.WithTimeout(ctx, r.StageTimeout)
	hints, err := analyzeJD(stageCtx, client, job.JobDescription)
	cancel()
	if err != nil {
		return r.fail(ctx, requestID, "analyze", err)
	}

	if err := r.Repo.Suspend(ctx, requestID, hints, jobs.SuspendProgress); err != nil {
		return r.fail(ctx, requestID, "suspend", fmt.Errorf("suspend job: %w", err))
	}
	metrics.IncJobSuspended()
	r.logTransition(requestID, jobs.StatusProcessing, jobs.StatusAwaitingFeedback)
	return nil
}

// ResumeAfterFeedback runs the post-feedback leg: generation, rendering,
// and completion. The service has already moved the job back to
// processing and stored the (possibly edited) hints.
func (r *Runner) ResumeAfterFeedback(ctx context.Context, requestID string) (err error) {
	defer r.recoverStage(ctx, requestID, &err)

	job, err := r.Repo.Get(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Hints == nil || job.Hints.IsZero() {
		return r.fail(ctx, requestID, "resume", fmt.Errorf("job has no hints"))
	}

	client := newRetryingLLM(r.LLM, requestID)
	result, err := r.generate(ctx, client, job, *job.Hints)
	if err != nil {
		return err
	}

	artifactKey, err := r.render(ctx, requestID, job, *result)
	if err != nil {
		return err
	}

	if err := r.Repo.Complete(ctx, requestID, *result, artifactKey); err != nil {
		return r.fail(ctx, requestID, "complete", fmt.Errorf("persist result: %w", err))
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(r.now().Sub(job.CreatedAt).Milliseconds()))
	r.logTransition(requestID, jobs.StatusProcessing, jobs.StatusCompleted)
	return nil
}

// generate produces the tailored resume. Edit mode keeps the summary and
// skills from the source untouched and only rewrites experience; complete
// mode regenerates all three sections from the hints.
func (r *Runner) generate(ctx context.Context, client llm.Client, job jobs.ResumeJob, hints jobs.JDHints) (*resume.Resume, error) {
	result := job.SourceResume.Clone()

	if job.Mode == jobs.ModeCompleteFromJD {
		summary, err := runStage(ctx, r.StageTimeout, func(sctx context.Context) (string, error) {
			return generateSummary(sctx, client, hints, job.SourceResume.Summary)
		})
		if err != nil {
			return nil, r.fail(ctx, job.RequestID, "summary", err)
		}
		result.Summary = summary
	}
	r.progress(ctx, job.RequestID, progressSummary)

	if job.Mode == jobs.ModeCompleteFromJD {
		skills, err := runStage(ctx, r.StageTimeout, func(sctx context.Context) (resume.Skills, error) {
			return generateSkills(sctx, client, hints, job.SourceResume.Skills)
		})
		if err != nil {
			return nil, r.fail(ctx, job.RequestID, "skills", err)
		}
		result.Skills = skills
	}
	r.progress(ctx, job.RequestID, progressSkills)

	rewritten, err := runStage(ctx, r.StageTimeout, func(sctx context.Context) ([]resume.Role, error) {
		return generateExperience(sctx, client, job.Mode, hints, job.SourceResume.Experience)
	})
	if err != nil {
		return nil, r.fail(ctx, job.RequestID, "experience", err)
	}
	stageCtx, cancel := context.WithTimeout(ctx, r.StageTimeout)
	result.Experience = balanceRoles(stageCtx, client, hints, job.SourceResume.Experience, rewritten)
	cancel()
	r.progress(ctx, job.RequestID, progressExperience)

	if err := result.Validate(); err != nil {
		return nil, r.fail(ctx, job.RequestID, "experience", fmt.Errorf("generated resume invalid: %w", err))
	}
	return &result, nil
}

func (r *Runner) render(ctx context.Context, requestID string, job jobs.ResumeJob, result resume.Resume) (string, error) {
	doc, err := render.Render(result, job.RenderFormat)
	if err != nil {
		return "", r.fail(ctx, requestID, "render", fmt.Errorf("render document: %w", err))
	}
	r.progress(ctx, requestID, progressRendering)

	key := artifactKey(job.UserID, requestID)
	if _, err := r.Store.SaveWithKey(ctx, key, render.MimeTypeDocx, bytes.NewReader(doc)); err != nil {
		return "", r.fail(ctx, requestID, "store", fmt.Errorf("store artifact: %w", err))
	}
	return key, nil
}

// runStage bounds one LLM-backed stage with the configured timeout.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stageCtx)
}

func (r *Runner) progress(ctx context.Context, requestID string, progress int) {
	if err := r.Repo.UpdateProgress(ctx, requestID, progress); err != nil {
		telemetry.Warn("pipeline.progress", map[string]any{
			"request_id": requestID,
			"progress":   progress,
			"error":      err.Error(),
		})
	}
}

// fail records the failure on the job and returns the original error.
// The update uses a detached context so a cancelled worker can still
// persist the terminal state.
func (r *Runner) fail(ctx context.Context, requestID, stage string, cause error) error {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := r.Repo.Fail(failCtx, requestID, stage, cause.Error()); err != nil {
		telemetry.Error("pipeline.fail_update", map[string]any{
			"request_id": requestID,
			"stage":      stage,
			"error":      err.Error(),
		})
	}
	metrics.IncJobFailed()
	telemetry.Error("pipeline.stage_failed", map[string]any{
		"request_id": requestID,
		"stage":      stage,
		"error":      cause.Error(),
	})
	return cause
}

func (r *Runner) recoverStage(ctx context.Context, requestID string, err *error) {
	if rec := recover(); rec != nil {
		*err = r.fail(ctx, requestID, "panic", fmt.Errorf("pipeline panic: %v", rec))
	}
}

func (r *Runner) logTransition(requestID, from, to string) {
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestID,
		"status_transition": from + " -> " + to,
	})
}

func artifactKey(userID, requestID string) string {
	return path.Join("artifacts", util.HashKey(userID), requestID+".docx")
}
