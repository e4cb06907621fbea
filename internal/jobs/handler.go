package jobs

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/render"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.createJob)
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id/status", h.jobStatus)
	rg.GET("/jobs/:id/result", h.jobResult)
	rg.GET("/jobs/:id/download", h.downloadJob)
	rg.POST("/jobs/:id/feedback", h.submitFeedback)
	rg.DELETE("/jobs/:id", h.deleteJob)
	rg.GET("/stats", h.jobStats)
}

type createJobRequest struct {
	Mode           string        `json:"mode"`
	JobDescription string        `json:"job_description"`
	Company        string        `json:"company"`
	JobTitle       string        `json:"job_title"`
	Resume         resume.Resume `json:"resume"`
	RenderFormat   string        `json:"render_format"`
}

func (h *Handler) createJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.Create(ctx, userID, CreateInput{
		Mode:           req.Mode,
		JobDescription: req.JobDescription,
		Company:        req.Company,
		JobTitle:       req.JobTitle,
		Resume:         req.Resume,
		RenderFormat:   req.RenderFormat,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			respond.Error(c, http.StatusTooManyRequests, ErrorCodeQuota,
				"You already have the maximum number of jobs in progress. Wait for one to finish.", nil)
		case errors.Is(err, ErrDailyLimitReached):
			respond.Error(c, http.StatusTooManyRequests, ErrorCodeDailyLimit,
				"Daily job limit reached. Try again tomorrow.", nil)
		case errors.Is(err, ErrQueueFull):
			respond.Error(c, http.StatusServiceUnavailable, ErrorCodeQueueFull,
				"The server is busy. Try again in a moment.", nil)
		default:
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"request_id": job.RequestID,
		"status":     job.Status,
		"progress":   job.Progress,
	})
}

type feedbackRequest struct {
	Hints *JDHints `json:"hints"`
}

func (h *Handler) submitFeedback(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	requestID := c.Param("id")

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.SubmitFeedback(ctx, requestID, userID, req.Hints)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		case errors.Is(err, ErrNotAwaitingFeedback):
			respond.Error(c, http.StatusConflict, ErrorCodeNotAwaiting, "job is not awaiting feedback", nil)
		case errors.Is(err, ErrQueueFull):
			respond.Error(c, http.StatusServiceUnavailable, ErrorCodeQueueFull,
				"The server is busy. Try again in a moment.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to submit feedback", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"request_id": job.RequestID,
		"status":     job.Status,
		"progress":   job.Progress,
	})
}

func (h *Handler) jobStatus(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	job, err := h.Svc.GetStatus(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondJobError(c, err, "failed to fetch job status")
		return
	}

	resp := gin.H{
		"request_id": job.RequestID,
		"status":     job.Status,
		"progress":   job.Progress,
		"mode":       job.Mode,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == StatusAwaitingFeedback && job.Hints != nil {
		resp["hints"] = job.Hints
	}
	if job.Status == StatusFailed {
		resp["error_stage"] = job.ErrorStage
		resp["error_code"] = FailureCode(job)
		resp["error_message"] = job.ErrorMessage
	}
	respond.OK(c, resp)
}

func (h *Handler) jobResult(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	job, err := h.Svc.GetResult(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			respond.Error(c, http.StatusConflict, ErrorCodeNotReady, "job is not completed yet", gin.H{
				"status":   job.Status,
				"progress": job.Progress,
			})
			return
		}
		respondJobError(c, err, "failed to fetch job result")
		return
	}

	respond.OK(c, gin.H{
		"request_id":    job.RequestID,
		"status":        job.Status,
		"mode":          job.Mode,
		"result":        job.Result,
		"render_format": job.RenderFormat,
		"completed_at":  job.CompletedAt,
	})
}

func (h *Handler) downloadJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	reader, fileName, err := h.Svc.Download(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, ErrorCodeNotReady, "job is not completed yet", nil)
		case errors.Is(err, ErrNoArtifact):
			respond.Error(c, http.StatusNotFound, "not_found", "no rendered document for this job", nil)
		default:
			respondJobError(c, err, "failed to download document")
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Header("Content-Type", render.MimeTypeDocx)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func (h *Handler) listJobs(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	filter := ListFilter{
		Status:  c.Query("status"),
		Mode:    c.Query("mode"),
		Company: c.Query("company"),
		Limit:   20,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	items, total, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list jobs", nil)
		return
	}

	summaries := make([]gin.H, 0, len(items))
	for _, job := range items {
		summaries = append(summaries, gin.H{
			"request_id": job.RequestID,
			"status":     job.Status,
			"progress":   job.Progress,
			"mode":       job.Mode,
			"company":    job.Company,
			"job_title":  job.JobTitle,
			"created_at": job.CreatedAt,
		})
	}
	respond.OK(c, gin.H{
		"items":  summaries,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) deleteJob(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondJobError(c, err, "failed to delete job")
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) jobStats(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	stats, err := h.Svc.Stats(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch stats", nil)
		return
	}
	respond.OK(c, stats)
}

func respondJobError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
}
