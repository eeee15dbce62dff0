package registrations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/auth"
	"github.com/eventmaster/backend/pkg/response"
)

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /events/:id/registrations.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	reg, err := h.svc.Register(c.Request.Context(), auth.CurrentUser(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// ListMine handles GET /me/registrations.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Cancel handles DELETE /registrations/:id.
func (h *Handler) Cancel(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), auth.CurrentUser(c), regID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Attendees handles GET /events/:id/attendees.
func (h *Handler) Attendees(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.Attendees(c.Request.Context(), auth.CurrentUser(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
