package admin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
)

type ServiceInterface interface {
	JobAction(ctx context.Context, adminID string, req *dto.JobActionRequest) (*dto.ActionResponse, error)
	UserAction(ctx context.Context, adminID string, req *dto.UserActionRequest) (*dto.ActionResponse, error)
	BulkAction(ctx context.Context, adminID string, req *dto.BulkActionRequest) (*dto.BulkActionResponse, error)
	EmergencyAction(ctx context.Context, adminID string, req *dto.EmergencyActionRequest) (*dto.ActionResponse, error)

	ListJobs(ctx context.Context, status string, limit int) ([]models.Job, error)
	RecentLogs(ctx context.Context, limit int) ([]models.AdminLogEntry, error)
}

type HandlerInterface interface {
	JobAction(c *gin.Context)
	UserAction(c *gin.Context)
	BulkAction(c *gin.Context)
	EmergencyAction(c *gin.Context)
	ListJobs(c *gin.Context)
	RecentLogs(c *gin.Context)
}
