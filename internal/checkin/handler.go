package checkin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/auth"
	"github.com/eventmaster/backend/pkg/response"
	"github.com/eventmaster/backend/pkg/sanitize"
)

// VerifyRequest is the body for POST /checkin/verify.
type VerifyRequest struct {
	TicketToken string `json:"ticket_token" binding:"required"`
}

// WalkInRequest is the body for POST /checkin/walk-in.
type WalkInRequest struct {
	EventID     uuid.UUID `json:"event_id" binding:"required"`
	Email       string    `json:"email" binding:"required,email"`
	DisplayName string    `json:"display_name"`
}

// Handler handles check-in HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Verify handles POST /checkin/verify.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.svc.Verify(c.Request.Context(), auth.CurrentUser(c), req.TicketToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// WalkIn handles POST /checkin/walk-in.
func (h *Handler) WalkIn(c *gin.Context) {
	var req WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.svc.WalkIn(c.Request.Context(), auth.CurrentUser(c),
		req.EventID, req.Email, sanitize.Text(req.DisplayName))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
