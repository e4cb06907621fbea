package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/resume"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the templates service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches template routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/templates", h.saveTemplate)
	rg.GET("/templates", h.getTemplate)
	rg.DELETE("/templates", h.deleteTemplate)
}

type saveTemplateRequest struct {
	Resume resume.Resume `json:"resume"`
}

func (h *Handler) saveTemplate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req saveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	t, err := h.Svc.Save(c.Request.Context(), userID, req.Resume)
	if err != nil {
		if errors.Is(err, ErrInvalidResume) {
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not save template", nil)
		return
	}
	respond.OK(c, t)
}

func (h *Handler) getTemplate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	t, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "no template saved", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load template", nil)
		return
	}
	respond.OK(c, t)
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "no template saved", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not delete template", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
