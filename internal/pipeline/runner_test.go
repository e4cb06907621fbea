package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-tailor/internal/jobs"
	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/storage/object/local"
)

// scriptedLLM routes prompts to canned responses by the stage marker text
// each prompt template carries.
type scriptedLLM struct {
	mu       sync.Mutex
	calls    []string
	override func(prompt string) (string, bool)
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()

	if s.override != nil {
		if resp, ok := s.override(prompt); ok {
			return resp, nil
		}
	}

	switch {
	case strings.Contains(prompt, "analyzing job descriptions"):
		return `{"technical_keywords": ["Go", "PostgreSQL"], "soft_skills": ["led"], "phrases": ["built scalable data pipelines"]}`, nil
	case strings.Contains(prompt, "professional summaries"):
		return `{"summary": "Backend engineer with 8 years building Go and PostgreSQL services."}`, nil
	case strings.Contains(prompt, "technical skills organizer"):
		return `{"technical_skills": {"Languages": ["Go", "Python"], "Databases": ["PostgreSQL"]}}`, nil
	case strings.Contains(prompt, "crafting high-impact"),
		strings.Contains(prompt, "enhancing existing resume bullets"):
		return experienceResponse(9, 4), nil
	case strings.Contains(prompt, "senior technical recruiter"):
		return `{"bullets": ["Tuned PostgreSQL query plans, cutting report latency by 40 percent.", "Led migration of batch jobs to Go workers.", "Built scalable data pipelines feeding nightly analytics.", "Automated deployment with CI pipelines.", "Mentored two junior engineers on Go idioms."]}`, nil
	case strings.Contains(prompt, "failed to parse"):
		return "", errors.New("unexpected reformat request")
	default:
		return "", errors.New("unmatched prompt")
	}
}

func (s *scriptedLLM) callCount(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c, marker) {
			n++
		}
	}
	return n
}

// experienceResponse builds a two-role experience payload with the given
// bullet counts.
func experienceResponse(firstBullets, secondBullets int) string {
	roles := []resume.Role{
		{Company: "Initech", Title: "Senior Engineer", Dates: "2020 - Present", Bullets: genBullets("Initech", firstBullets)},
		{Company: "Hooli", Title: "Engineer", Dates: "2016 - 2020", Bullets: genBullets("Hooli", secondBullets)},
	}
	payload, _ := json.Marshal(map[string]any{"experience": roles})
	return string(payload)
}

func genBullets(prefix string, n int) []string {
	bullets := make([]string, n)
	for i := range bullets {
		bullets[i] = prefix + " rewritten accomplishment number " + string(rune('1'+i)) + "."
	}
	return bullets
}

func sourceResume() resume.Resume {
	return resume.Resume{
		Name:    "Jane Candidate",
		Contact: "jane@example.com | 555-0100",
		Summary: "Engineer with 8 years of backend experience across payments and analytics.",
		Skills: resume.Skills{
			"Languages": {"Java", "Python"},
			"Databases": {"MySQL"},
		},
		Experience: []resume.Role{
			{Company: "Initech", Title: "Senior Engineer", Dates: "2020 - Present", Bullets: genBullets("Initech original", 7)},
			{Company: "Hooli", Title: "Engineer", Dates: "2016 - 2020", Bullets: genBullets("Hooli original", 7)},
		},
		Education: []resume.Education{{Degree: "BS Computer Science", Institution: "State University", Year: "2016"}},
	}
}

func setupRunner(t *testing.T, mode jobs.Mode) (*Runner, *jobs.MemoryRepo, *scriptedLLM, string) {
	t.Helper()

	repo := jobs.NewMemoryRepo()
	client := &scriptedLLM{}
	runner := NewRunner(repo, client, local.New(t.TempDir()), 5*time.Second)

	job := jobs.ResumeJob{
		RequestID:      "req_pipeline_test",
		UserID:         "user-1",
		Mode:           mode,
		Status:         jobs.StatusPending,
		JobDescription: "We need a Go engineer with PostgreSQL experience to build scalable data pipelines.",
		Company:        "Initech",
		JobTitle:       "Backend Engineer",
		SourceResume:   sourceResume(),
		RenderFormat:   render.FormatClassic,
	}
	policy := jobs.QuotaPolicy{MaxConcurrent: 5, DailyLimit: 20, Location: time.UTC}
	if err := repo.CreateWithQuota(context.Background(), job, policy); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return runner, repo, client, job.RequestID
}

func runToCompletion(t *testing.T, runner *Runner, repo *jobs.MemoryRepo, requestID string) jobs.ResumeJob {
	t.Helper()
	ctx := context.Background()

	if err := runner.Process(ctx, requestID); err != nil {
		t.Fatalf("process: %v", err)
	}
	parked, err := repo.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("get parked job: %v", err)
	}
	if err := repo.ResumeFromFeedback(ctx, requestID, *parked.Hints, 30); err != nil {
		t.Fatalf("resume from feedback: %v", err)
	}
	if err := runner.ResumeAfterFeedback(ctx, requestID); err != nil {
		t.Fatalf("resume after feedback: %v", err)
	}

	job, err := repo.Get(ctx, requestID)
	if err != nil {
		t.Fatalf("get completed job: %v", err)
	}
	return job
}

func TestProcessSuspendsForFeedback(t *testing.T) {
	runner, repo, _, requestID := setupRunner(t, jobs.ModeCompleteFromJD)

	if err := runner.Process(context.Background(), requestID); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := repo.Get(context.Background(), requestID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != jobs.StatusAwaitingFeedback {
		t.Fatalf("status = %q, want awaiting_feedback", job.Status)
	}
	if job.Progress != jobs.SuspendProgress {
		t.Fatalf("progress = %d, want %d", job.Progress, jobs.SuspendProgress)
	}
	if job.Hints == nil || len(job.Hints.TechnicalKeywords) == 0 {
		t.Fatalf("hints not stored: %+v", job.Hints)
	}
}

func TestCompleteModeGeneratesAllSections(t *testing.T) {
	runner, repo, _, requestID := setupRunner(t, jobs.ModeCompleteFromJD)
	job := runToCompletion(t, runner, repo, requestID)

	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %q, want completed", job.Status)
	}
	if job.Progress != 100 {
		t.Fatalf("progress = %d, want 100", job.Progress)
	}
	if job.Result == nil {
		t.Fatal("result not stored")
	}
	if job.Result.Summary == sourceResume().Summary {
		t.Fatal("summary was not regenerated")
	}
	if !strings.Contains(job.Result.Summary, "Go") {
		t.Fatalf("summary missing generated content: %q", job.Result.Summary)
	}
	if _, ok := job.Result.Skills["Languages"]; !ok {
		t.Fatalf("skills not regenerated: %+v", job.Result.Skills)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestCompleteModeStoresArtifact(t *testing.T) {
	runner, repo, _, requestID := setupRunner(t, jobs.ModeCompleteFromJD)
	job := runToCompletion(t, runner, repo, requestID)

	if job.ArtifactKey == "" {
		t.Fatal("artifact key not set")
	}
	rc, err := runner.Store.Open(context.Background(), job.ArtifactKey)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) == 0 || data[0] != 'P' || data[1] != 'K' {
		t.Fatalf("artifact is not a zip archive, first bytes %v", data[:2])
	}
}

func TestEditModeKeepsSummaryAndSkills(t *testing.T) {
	runner, repo, client, requestID := setupRunner(t, jobs.ModeEditExisting)
	job := runToCompletion(t, runner, repo, requestID)

	source := sourceResume()
	if job.Result.Summary != source.Summary {
		t.Fatalf("summary changed in edit mode:\n got %q\nwant %q", job.Result.Summary, source.Summary)
	}
	if !job.Result.Skills.Equal(source.Skills) {
		t.Fatalf("skills changed in edit mode: %+v", job.Result.Skills)
	}
	if client.callCount("professional summaries") != 0 {
		t.Fatal("summary stage called the model in edit mode")
	}
	if client.callCount("technical skills organizer") != 0 {
		t.Fatal("skills stage called the model in edit mode")
	}
	if client.callCount("enhancing existing resume bullets") == 0 {
		t.Fatal("experience stage did not use the rewrite prompt")
	}
}

func TestBulletCountsStayInRange(t *testing.T) {
	runner, repo, _, requestID := setupRunner(t, jobs.ModeCompleteFromJD)
	job := runToCompletion(t, runner, repo, requestID)

	for _, role := range job.Result.Experience {
		if len(role.Bullets) < 6 || len(role.Bullets) > 8 {
			t.Fatalf("role %s has %d bullets, want 6-8", role.Company, len(role.Bullets))
		}
	}
}

func TestMalformedHintsGetReformatted(t *testing.T) {
	runner, repo, client, requestID := setupRunner(t, jobs.ModeCompleteFromJD)

	hintsSent := false
	client.override = func(prompt string) (string, bool) {
		if strings.Contains(prompt, "analyzing job descriptions") && !hintsSent {
			hintsSent = true
			return "Here are the hints:\n```json broken", true
		}
		if strings.Contains(prompt, "failed to parse") {
			return `{"technical_keywords": ["Go"], "soft_skills": ["led"], "phrases": ["shipped on time"]}`, true
		}
		return "", false
	}

	if err := runner.Process(context.Background(), requestID); err != nil {
		t.Fatalf("process: %v", err)
	}
	job, _ := repo.Get(context.Background(), requestID)
	if job.Status != jobs.StatusAwaitingFeedback {
		t.Fatalf("status = %q, want awaiting_feedback", job.Status)
	}
}

func TestOversizedJDRetriesTruncated(t *testing.T) {
	runner, repo, client, requestID := setupRunner(t, jobs.ModeCompleteFromJD)

	longJD := strings.Repeat("requirement text ", 300) + "GARBLED_TAIL"
	if _, err := repo.Get(context.Background(), requestID); err != nil {
		t.Fatalf("get job: %v", err)
	}
	if err := repo.Delete(context.Background(), requestID, "user-1"); err != nil {
		t.Fatalf("reset job: %v", err)
	}
	job := jobs.ResumeJob{
		RequestID:      requestID,
		UserID:         "user-1",
		Mode:           jobs.ModeCompleteFromJD,
		Status:         jobs.StatusPending,
		JobDescription: longJD,
		SourceResume:   sourceResume(),
		RenderFormat:   render.FormatClassic,
	}
	if err := repo.CreateWithQuota(context.Background(), job, jobs.QuotaPolicy{MaxConcurrent: 5, DailyLimit: 20, Location: time.UTC}); err != nil {
		t.Fatalf("recreate job: %v", err)
	}

	client.override = func(prompt string) (string, bool) {
		if strings.Contains(prompt, "GARBLED_TAIL") {
			return "not a json payload GARBLED_TAIL", true
		}
		return "", false
	}

	if err := runner.Process(context.Background(), requestID); err != nil {
		t.Fatalf("process: %v", err)
	}
	parked, _ := repo.Get(context.Background(), requestID)
	if parked.Status != jobs.StatusAwaitingFeedback {
		t.Fatalf("status = %q, want awaiting_feedback", parked.Status)
	}
}

func TestStageFailureMarksJobFailed(t *testing.T) {
	runner, repo, client, requestID := setupRunner(t, jobs.ModeCompleteFromJD)

	client.override = func(prompt string) (string, bool) {
		if strings.Contains(prompt, "analyzing job descriptions") || strings.Contains(prompt, "failed to parse") {
			return "still not json", true
		}
		return "", false
	}

	if err := runner.Process(context.Background(), requestID); err == nil {
		t.Fatal("expected process to fail")
	}
	job, _ := repo.Get(context.Background(), requestID)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.ErrorStage != "analyze" {
		t.Fatalf("error stage = %q, want analyze", job.ErrorStage)
	}
	if job.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
}

func TestResumeWithoutHintsFails(t *testing.T) {
	runner, repo, _, requestID := setupRunner(t, jobs.ModeCompleteFromJD)

	if err := repo.MarkProcessing(context.Background(), requestID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := runner.ResumeAfterFeedback(context.Background(), requestID); err == nil {
		t.Fatal("expected resume to fail without hints")
	}
	job, _ := repo.Get(context.Background(), requestID)
	if job.Status != jobs.StatusFailed || job.ErrorStage != "resume" {
		t.Fatalf("job = %q/%q, want failed/resume", job.Status, job.ErrorStage)
	}
}
