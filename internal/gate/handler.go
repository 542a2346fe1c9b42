package gate

import (
	"net/http"

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

// Submit handles an outreach request through the consent & mode gate.
func (h *Handler) Submit(c *gin.Context) {
	var req dto.SubmitRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Approve queues a job after manual review of the drafted message.
func (h *Handler) Approve(c *gin.Context) {
	var req dto.ApproveRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.Approve(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// UpdateConsent grants or revokes automation consent.
func (h *Handler) UpdateConsent(c *gin.Context) {
	var req dto.ConsentUpdateRequest

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	if err := h.service.UpdateConsent(c.Request.Context(), &req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.Status(http.StatusNoContent)
}
