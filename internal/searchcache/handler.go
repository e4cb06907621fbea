package searchcache

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the search cache service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches search routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/search", h.search)
	rg.GET("/search/cache/stats", h.cacheStats)
	rg.POST("/search/cache/clear", h.cacheClear)
	rg.POST("/search/cache/refresh", h.cacheRefresh)
}

func (h *Handler) search(c *gin.Context) {
	var q Query
	if err := c.ShouldBindJSON(&q); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	result, err := h.Svc.Search(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, ErrSearcherUnavailable) {
			respond.Error(c, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "job search is not configured", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) cacheStats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not read cache stats", nil)
		return
	}
	respond.OK(c, stats)
}

type clearRequest struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
}

func (h *Handler) cacheClear(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	removed, err := h.Svc.Clear(c.Request.Context(), req.Scope, req.Key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "cache entry not found", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	respond.OK(c, gin.H{"removed": removed})
}

type refreshRequest struct {
	Key string `json:"key"`
}

func (h *Handler) cacheRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "key is required", nil)
		return
	}

	result, err := h.Svc.Refresh(c.Request.Context(), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "cache entry not found", nil)
		case errors.Is(err, ErrSearcherUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "job search is not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not refresh cache entry", nil)
		}
		return
	}
	respond.OK(c, result)
}
