package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/storage/object/local"
)

func setupJobsRouter(t *testing.T, userID string) (*gin.Engine, *Service, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepo()
	pool := NewPool(16)
	pool.Start(1)
	t.Cleanup(pool.Stop)

	svc := &Service{
		Repo:      repo,
		Pool:      pool,
		Processor: &recordingProcessor{},
		Store:     local.New(t.TempDir()),
		Quota:     QuotaPolicy{MaxConcurrent: 2, DailyLimit: 20},
	}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
	})
	group := router.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(group)
	return router, svc, repo
}

func createJobViaAPI(t *testing.T, router *gin.Engine) string {
	t.Helper()
	payload := map[string]any{
		"mode":            "complete_jd",
		"job_description": "We need a Go engineer with PostgreSQL experience.",
		"company":         "Initech",
		"job_title":       "Backend Engineer",
		"resume": resume.Resume{
			Name:       "Jane Smith",
			Experience: []resume.Role{{Company: "Acme", Title: "Engineer", Bullets: []string{"Built services."}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.RequestID == "" || created.Status != StatusPending {
		t.Fatalf("unexpected create response: %+v", created)
	}
	return created.RequestID
}

func TestCreateJobEndpoint(t *testing.T) {
	router, _, repo := setupJobsRouter(t, "user-1")

	requestID := createJobViaAPI(t, router)

	stored, err := repo.Get(context.Background(), requestID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.UserID != "user-1" {
		t.Fatalf("user = %q", stored.UserID)
	}
}

func TestCreateJobValidationError(t *testing.T) {
	router, _, _ := setupJobsRouter(t, "user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs",
		bytes.NewReader([]byte(`{"mode":"summarize","job_description":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != ErrorCodeValidation {
		t.Fatalf("error code = %q", body.Error.Code)
	}
}

func TestQuotaErrorMapsTo429(t *testing.T) {
	router, _, _ := setupJobsRouter(t, "user-1")

	createJobViaAPI(t, router)
	createJobViaAPI(t, router)

	payload := map[string]any{
		"mode":            "complete_jd",
		"job_description": "jd",
		"resume": resume.Resume{
			Name:       "Jane",
			Experience: []resume.Role{{Company: "Acme"}},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStatusEndpointExposesHintsWhileAwaiting(t *testing.T) {
	router, _, repo := setupJobsRouter(t, "user-1")
	requestID := createJobViaAPI(t, router)

	hints := JDHints{TechnicalKeywords: []string{"Go"}}
	if err := repo.Suspend(context.Background(), requestID, hints, SuspendProgress); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+requestID+"/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body struct {
		Status   string   `json:"status"`
		Progress int      `json:"progress"`
		Hints    *JDHints `json:"hints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusAwaitingFeedback || body.Progress != SuspendProgress {
		t.Fatalf("status=%q progress=%d", body.Status, body.Progress)
	}
	if body.Hints == nil || len(body.Hints.TechnicalKeywords) != 1 {
		t.Fatalf("hints missing: %+v", body.Hints)
	}
}

func TestStatusEndpointClassifiesFailure(t *testing.T) {
	router, _, repo := setupJobsRouter(t, "user-1")
	requestID := createJobViaAPI(t, router)

	if err := repo.Fail(context.Background(), requestID, "analyze", "extract jd hints: context deadline exceeded"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+requestID+"/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body struct {
		Status       string `json:"status"`
		ErrorStage   string `json:"error_stage"`
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusFailed || body.ErrorStage != "analyze" {
		t.Fatalf("status=%q stage=%q", body.Status, body.ErrorStage)
	}
	if body.ErrorCode != ErrorCodeLLMTimeout {
		t.Fatalf("error_code = %q, want %q", body.ErrorCode, ErrorCodeLLMTimeout)
	}
	if body.ErrorMessage == "" {
		t.Fatalf("error_message missing")
	}
}

func TestResultEndpointConflictsUntilCompleted(t *testing.T) {
	router, _, repo := setupJobsRouter(t, "user-1")
	requestID := createJobViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+requestID+"/result", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	final := resume.Resume{Name: "Jane Smith", Experience: []resume.Role{{Company: "Acme"}}}
	if err := repo.Complete(context.Background(), requestID, final, "key"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+requestID+"/result", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body struct {
		Result *resume.Resume `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result == nil || body.Result.Name != "Jane Smith" {
		t.Fatalf("result = %+v", body.Result)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	router, _, repo := setupJobsRouter(t, "user-1")
	requestID := createJobViaAPI(t, router)

	if err := repo.Suspend(context.Background(), requestID, JDHints{TechnicalKeywords: []string{"Go"}}, SuspendProgress); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	body := []byte(`{"hints":{"technical_keywords":["Go","PostgreSQL"],"soft_skills":["Led"],"phrases":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+requestID+"/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	stored, err := repo.Get(context.Background(), requestID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != StatusProcessing {
		t.Fatalf("status = %q", stored.Status)
	}
	if stored.Hints == nil || len(stored.Hints.TechnicalKeywords) != 2 {
		t.Fatalf("hints = %+v", stored.Hints)
	}

	// Second submission conflicts.
	resp = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+requestID+"/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestDeleteAndListEndpoints(t *testing.T) {
	router, _, _ := setupJobsRouter(t, "user-1")
	requestID := createJobViaAPI(t, router)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=10", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.Code)
	}
	var list struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total = %d", list.Total)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+requestID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+requestID+"/status", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status after delete: expected 404, got %d", resp.Code)
	}
}
