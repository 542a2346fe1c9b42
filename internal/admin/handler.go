package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/middleware"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(s ServiceInterface) *Handler {
	return &Handler{service: s}
}

var _ HandlerInterface = (*Handler)(nil)

func actingAdmin(c *gin.Context) string {
	return c.GetString(middleware.AdminIDKey)
}

func (h *Handler) JobAction(c *gin.Context) {
	var req dto.JobActionRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.JobAction(c.Request.Context(), actingAdmin(c), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UserAction(c *gin.Context) {
	var req dto.UserActionRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.UserAction(c.Request.Context(), actingAdmin(c), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BulkAction(c *gin.Context) {
	var req dto.BulkActionRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.BulkAction(c.Request.Context(), actingAdmin(c), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) EmergencyAction(c *gin.Context) {
	var req dto.EmergencyActionRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.EmergencyAction(c.Request.Context(), actingAdmin(c), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs returns jobs in a given status for the monitoring dashboard.
func (h *Handler) ListJobs(c *gin.Context) {
	status := c.DefaultQuery("status", "running")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.service.ListJobs(c.Request.Context(), status, limit)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "count": len(jobs), "jobs": jobs})
}

// RecentLogs returns the latest admin audit entries.
func (h *Handler) RecentLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.service.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(logs), "logs": logs})
}
