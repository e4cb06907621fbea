package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/storage/object/local"
)

// recordingProcessor captures pipeline invocations without doing LLM work.
type recordingProcessor struct {
	mu         sync.Mutex
	processed  []string
	resumed    []string
	processErr error
}

func (p *recordingProcessor) Process(ctx context.Context, requestID string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, requestID)
	return p.processErr
}

func (p *recordingProcessor) ResumeAfterFeedback(ctx context.Context, requestID string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumed = append(p.resumed, requestID)
	return nil
}

func (p *recordingProcessor) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed), len(p.resumed)
}

func sourceResume() resume.Resume {
	return resume.Resume{
		Name: "Jane Smith",
		Experience: []resume.Role{{
			Company: "Acme",
			Title:   "Engineer",
			Dates:   "2020 - Present",
			Bullets: []string{"Built services."},
		}},
	}
}

func validInput() CreateInput {
	return CreateInput{
		Mode:           "complete_jd",
		JobDescription: "We need a Go engineer with PostgreSQL experience.",
		Company:        "Initech",
		JobTitle:       "Backend Engineer",
		Resume:         sourceResume(),
	}
}

func setupService(t *testing.T) (*Service, *MemoryRepo, *recordingProcessor) {
	t.Helper()
	repo := NewMemoryRepo()
	pool := NewPool(16)
	pool.Start(2)
	t.Cleanup(pool.Stop)

	proc := &recordingProcessor{}
	svc := &Service{
		Repo:      repo,
		Pool:      pool,
		Processor: proc,
		Store:     local.New(t.TempDir()),
		Quota:     QuotaPolicy{MaxConcurrent: 2, DailyLimit: 20},
	}
	return svc, repo, proc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestCreateEnqueuesJob(t *testing.T) {
	svc, repo, proc := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %q, want %q", job.Status, StatusPending)
	}
	if job.RequestID == "" || job.RequestID[:4] != "req_" {
		t.Fatalf("request id %q missing req_ prefix", job.RequestID)
	}

	waitFor(t, func() bool { n, _ := proc.counts(); return n == 1 })

	stored, err := repo.Get(context.Background(), job.RequestID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Mode != ModeCompleteFromJD {
		t.Fatalf("mode = %q", stored.Mode)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _, _ := setupService(t)

	bad := validInput()
	bad.Mode = "summarize"
	if _, err := svc.Create(context.Background(), "user-1", bad); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	bad = validInput()
	bad.JobDescription = "  "
	if _, err := svc.Create(context.Background(), "user-1", bad); err == nil {
		t.Fatalf("expected error for empty job description")
	}

	bad = validInput()
	bad.Resume = resume.Resume{}
	if _, err := svc.Create(context.Background(), "user-1", bad); err == nil {
		t.Fatalf("expected error for invalid resume")
	}
}

func TestCreateEnforcesConcurrentQuota(t *testing.T) {
	svc, _, _ := setupService(t)
	svc.Quota = QuotaPolicy{MaxConcurrent: 2, DailyLimit: 20}

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), "user-1", validInput()); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	_, err := svc.Create(context.Background(), "user-1", validInput())
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}

	// Another user is unaffected.
	if _, err := svc.Create(context.Background(), "user-2", validInput()); err != nil {
		t.Fatalf("Create other user: %v", err)
	}
}

func TestCreateEnforcesDailyLimit(t *testing.T) {
	svc, repo, _ := setupService(t)
	svc.Quota = QuotaPolicy{MaxConcurrent: 0, DailyLimit: 3}

	for i := 0; i < 3; i++ {
		job, err := svc.Create(context.Background(), "user-1", validInput())
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		// Completed jobs free the concurrency slot but still count daily.
		if err := repo.Complete(context.Background(), job.RequestID, sourceResume(), ""); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	_, err := svc.Create(context.Background(), "user-1", validInput())
	if !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("err = %v, want ErrDailyLimitReached", err)
	}
}

func TestSuspendedJobHoldsConcurrencySlot(t *testing.T) {
	svc, repo, _ := setupService(t)
	svc.Quota = QuotaPolicy{MaxConcurrent: 1, DailyLimit: 0}

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Suspend(context.Background(), job.RequestID, JDHints{}, SuspendProgress); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	_, err = svc.Create(context.Background(), "user-1", validInput())
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded for awaiting_feedback job", err)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	_, repo, _ := setupService(t)

	job := ResumeJob{RequestID: "req_x", UserID: "user-1", Status: StatusProcessing}
	if err := repo.CreateWithQuota(context.Background(), job, QuotaPolicy{}); err != nil {
		t.Fatalf("CreateWithQuota: %v", err)
	}

	for _, p := range []int{10, 40, 25, 40, 5} {
		if err := repo.UpdateProgress(context.Background(), "req_x", p); err != nil {
			t.Fatalf("UpdateProgress(%d): %v", p, err)
		}
	}
	stored, err := repo.Get(context.Background(), "req_x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Progress != 40 {
		t.Fatalf("progress = %d, want 40", stored.Progress)
	}
}

func TestSubmitFeedbackResumesJob(t *testing.T) {
	svc, repo, proc := setupService(t)
	svc.ResumeProgress = 30

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stored := JDHints{TechnicalKeywords: []string{"Go", "PostgreSQL"}, Phrases: []string{"build scalable services"}}
	if err := repo.Suspend(context.Background(), job.RequestID, stored, SuspendProgress); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	edited := JDHints{TechnicalKeywords: []string{"Go"}, SoftSkills: []string{"Led"}}
	updated, err := svc.SubmitFeedback(context.Background(), job.RequestID, "user-1", &edited)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if updated.Status != StatusProcessing {
		t.Fatalf("status = %q, want processing", updated.Status)
	}
	if updated.Progress != 30 {
		t.Fatalf("progress = %d, want 30", updated.Progress)
	}
	if updated.Hints == nil || len(updated.Hints.TechnicalKeywords) != 1 {
		t.Fatalf("hints not replaced: %+v", updated.Hints)
	}
	if updated.FeedbackAt == nil {
		t.Fatalf("feedback timestamp not recorded")
	}

	waitFor(t, func() bool { _, n := proc.counts(); return n == 1 })
}

func TestSubmitFeedbackKeepsStoredHintsWhenBodyEmpty(t *testing.T) {
	svc, repo, _ := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored := JDHints{TechnicalKeywords: []string{"Go", "PostgreSQL"}}
	if err := repo.Suspend(context.Background(), job.RequestID, stored, SuspendProgress); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	updated, err := svc.SubmitFeedback(context.Background(), job.RequestID, "user-1", nil)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if updated.Hints == nil || len(updated.Hints.TechnicalKeywords) != 2 {
		t.Fatalf("stored hints lost: %+v", updated.Hints)
	}
}

func TestSubmitFeedbackRequiresAwaitingStatus(t *testing.T) {
	svc, _, _ := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.SubmitFeedback(context.Background(), job.RequestID, "user-1", nil)
	if !errors.Is(err, ErrNotAwaitingFeedback) {
		t.Fatalf("err = %v, want ErrNotAwaitingFeedback", err)
	}
}

func TestOwnershipHidesForeignJobs(t *testing.T) {
	svc, _, _ := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetStatus(context.Background(), job.RequestID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetStatus foreign user: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), job.RequestID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete foreign user: err = %v, want ErrNotFound", err)
	}
}

func TestGetResultRequiresCompletion(t *testing.T) {
	svc, repo, _ := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetResult(context.Background(), job.RequestID, "user-1"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}

	if err := repo.Complete(context.Background(), job.RequestID, sourceResume(), "key"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err := svc.GetResult(context.Background(), job.RequestID, "user-1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Result == nil || got.Result.Name != "Jane Smith" {
		t.Fatalf("result = %+v", got.Result)
	}
}

func TestDownloadStreamsArtifact(t *testing.T) {
	svc, repo, _ := setupService(t)

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	key := "artifacts/" + job.RequestID + ".docx"
	content := []byte("docx bytes")
	if _, err := svc.Store.SaveWithKey(context.Background(), key, "application/octet-stream", bytes.NewReader(content)); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if err := repo.Complete(context.Background(), job.RequestID, sourceResume(), key); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	reader, fileName, err := svc.Download(context.Background(), job.RequestID, "user-1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer reader.Close()

	if fileName != "Jane_Initech_Backend_Engineer.docx" {
		t.Fatalf("fileName = %q", fileName)
	}
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("artifact content mismatch")
	}
}

func TestDownloadNameShapes(t *testing.T) {
	job := ResumeJob{
		RequestID:    "req_name_test",
		Company:      "Initech",
		JobTitle:     "Backend Engineer",
		SourceResume: resume.Resume{Name: "Jane Smith"},
	}
	if got := downloadName(job); got != "Jane_Initech_Backend_Engineer.docx" {
		t.Fatalf("downloadName = %q", got)
	}

	job.Result = &resume.Resume{Name: "Janet Smith"}
	if got := downloadName(job); got != "Janet_Initech_Backend_Engineer.docx" {
		t.Fatalf("downloadName with result = %q", got)
	}

	job.Result = nil
	job.SourceResume.Name = "  "
	if got := downloadName(job); got != "resume_req_name_test.docx" {
		t.Fatalf("fallback downloadName = %q", got)
	}
}

func TestCreateSurvivesProcessorError(t *testing.T) {
	svc, repo, proc := setupService(t)
	proc.processErr = errors.New("stage blew up")

	job, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	waitFor(t, func() bool { n, _ := proc.counts(); return n == 1 })

	// The task error is the runner's to record; the stored job is untouched.
	stored, err := repo.Get(context.Background(), job.RequestID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusPending {
		t.Fatalf("status = %q, want %q", stored.Status, StatusPending)
	}
}

func TestListFiltersAndPages(t *testing.T) {
	svc, repo, _ := setupService(t)
	svc.Quota = QuotaPolicy{}

	var lastID string
	for i := 0; i < 5; i++ {
		job, err := svc.Create(context.Background(), "user-1", validInput())
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		lastID = job.RequestID
	}
	if err := repo.Complete(context.Background(), lastID, sourceResume(), ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	items, total, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("total = %d, page = %d", total, len(items))
	}

	completed, total, err := svc.List(context.Background(), "user-1", ListFilter{Status: StatusCompleted})
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if total != 1 || len(completed) != 1 || completed[0].RequestID != lastID {
		t.Fatalf("completed filter: total=%d items=%+v", total, completed)
	}

	byCompany, total, err := svc.List(context.Background(), "user-1", ListFilter{Company: "initech"})
	if err != nil {
		t.Fatalf("List by company: %v", err)
	}
	if total != 5 || len(byCompany) != 5 {
		t.Fatalf("company filter: total=%d page=%d", total, len(byCompany))
	}
	if _, total, _ = svc.List(context.Background(), "user-1", ListFilter{Company: "Globex"}); total != 0 {
		t.Fatalf("unexpected matches for unknown company: %d", total)
	}

	stats, err := svc.Stats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 5 || stats.ByStatus[StatusCompleted] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
