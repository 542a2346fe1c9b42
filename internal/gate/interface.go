package gate

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
)

// ServiceInterface is the consent & mode gate contract: every outreach
// request passes through Submit, manual approvals through Approve, and the
// scheduler re-checks CheckDispatch before any job leaves pending.
type ServiceInterface interface {
	Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error)
	Approve(ctx context.Context, req *dto.ApproveRequest) (*dto.ApproveResponse, error)
	UpdateConsent(ctx context.Context, req *dto.ConsentUpdateRequest) error
	CheckDispatch(ctx context.Context, userID string) (*models.UserAutomationSettings, error)
}

// HandlerInterface defines the HTTP surface of the gate.
type HandlerInterface interface {
	Submit(c *gin.Context)
	Approve(c *gin.Context)
	UpdateConsent(c *gin.Context)
}
