package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diet-coach/internal/service"
)

type ProgressHandler struct {
	logger   *zap.Logger
	progress *service.ProgressService
	loc      *time.Location
}

func NewProgressHandler(logger *zap.Logger, progress *service.ProgressService, loc *time.Location) *ProgressHandler {
	return &ProgressHandler{logger: logger, progress: progress, loc: loc}
}

// Today maneja GET /progress/today.
func (h *ProgressHandler) Today(c *gin.Context) {
	session, _ := GetSession(c)
	p, err := h.progress.Today(c.Request.Context(), session, requestLocation(c, h.loc))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": p, "percent": p.Percent()})
}

// Toggle maneja POST /progress/today/toggle {item}.
func (h *ProgressHandler) Toggle(c *gin.Context) {
	session, _ := GetSession(c)
	var req struct {
		Item string `json:"item" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid toggle request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.progress.Toggle(c.Request.Context(), session, req.Item, requestLocation(c, h.loc))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": p, "percent": p.Percent()})
}

// Dashboard maneja GET /dashboard.
func (h *ProgressHandler) Dashboard(c *gin.Context) {
	session, _ := GetSession(c)
	summary, err := h.progress.Summary(c.Request.Context(), session, requestLocation(c, h.loc))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ProgressHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrUnknownProgressItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown progress item"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.logger.Error("progress request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load progress"})
	}
}
