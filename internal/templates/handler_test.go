package templates

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTemplatesRouter(t *testing.T, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
	})
	group := router.Group("/api/v1")
	NewHandler(NewService(NewMemoryRepo())).RegisterRoutes(group)
	return router
}

func TestTemplateLifecycle(t *testing.T) {
	router := setupTemplatesRouter(t, "user-1")

	body, _ := json.Marshal(map[string]any{"resume": baseResume()})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/templates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got struct {
		Resume struct {
			Name string `json:"name"`
		} `json:"resume"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Resume.Name != "Jane Candidate" {
		t.Fatalf("name = %q", got.Resume.Name)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/templates", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestSaveTemplateValidationError(t *testing.T) {
	router := setupTemplatesRouter(t, "user-1")

	invalid := baseResume()
	invalid.Experience = nil
	body, _ := json.Marshal(map[string]any{"resume": invalid})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/templates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
}
