package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
)

// Handler exposes the identity echo endpoint.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load user", nil)
		return
	}
	respond.OK(c, user)
}
