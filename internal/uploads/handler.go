package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/extract"
	"resume-tailor/internal/llm"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
)

const maxUploadBytes = 5 << 20

// Handler parses uploaded resume files into the structured resume shape.
// The raw upload is kept in the object store so a parse can be re-run
// without re-uploading.
type Handler struct {
	Store   object.ObjectStore
	LLM     llm.Client
	Timeout time.Duration
}

func NewHandler(store object.ObjectStore, client llm.Client, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Handler{Store: store, LLM: client, Timeout: timeout}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/parse", h.parse)
}

func (h *Handler) parse(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "file exceeds the 5 MB limit", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "could not read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "could not read file", nil)
		return
	}

	text, err := extract.Text(data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "only PDF, DOCX, and plain text files are supported", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "could not extract text from file", nil)
		return
	}
	if strings.TrimSpace(text) == "" {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file contains no extractable text", nil)
		return
	}

	storageKey, _, _, err := h.Store.Save(c.Request.Context(), userID, fileHeader.Filename, bytes.NewReader(data))
	if err != nil {
		telemetry.Warn("uploads.save_original", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	parsed, err := h.parseResume(c.Request.Context(), text)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			respond.Error(c, http.StatusServiceUnavailable, "LLM_UNAVAILABLE", "resume parsing is not configured", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "LLM_SCHEMA_MISMATCH", "could not parse resume content", nil)
		return
	}

	respond.OK(c, gin.H{
		"resume":      parsed,
		"storage_key": storageKey,
	})
}

func (h *Handler) parseResume(ctx context.Context, text string) (resume.Resume, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	raw, err := h.LLM.Complete(ctx, llm.ParseResumePrompt(text))
	if err != nil {
		return resume.Resume{}, err
	}

	var parsed resume.Resume
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return resume.Resume{}, fmt.Errorf("decode parsed resume: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return resume.Resume{}, fmt.Errorf("parsed resume incomplete: %w", err)
	}
	return parsed, nil
}
