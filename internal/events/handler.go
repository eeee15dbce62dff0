package events

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/auth"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/pkg/response"
	"github.com/eventmaster/backend/pkg/sanitize"
)

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"required"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
	Location    string    `json:"location" binding:"required,max=200"`
	Capacity    int       `json:"capacity" binding:"required,min=1"`
}

// UpdateEventRequest is the body for PATCH /events/:id. All fields optional.
type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Location    *string    `json:"location" binding:"omitempty,max=200"`
}

// ListResponse is a paginated event listing.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an events handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /events. Authentication optional; visibility follows the
// viewer's role.
func (h *Handler) List(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.svc.List(c.Request.Context(), auth.CurrentUser(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ListResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

// Managed handles GET /events/managed for organizer/admin dashboards.
func (h *Handler) Managed(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.svc.Managed(c.Request.Context(), auth.CurrentUser(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ListResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

// Pending handles GET /events/pending, the admin review queue.
func (h *Handler) Pending(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.svc.Pending(c.Request.Context(), auth.CurrentUser(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ListResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.svc.Get(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Create(c.Request.Context(), auth.CurrentUser(c), CreateInput{
		Title:       sanitize.Text(req.Title),
		Description: sanitize.Multiline(req.Description),
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Location:    sanitize.Text(req.Location),
		Capacity:    req.Capacity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	in := UpdateInput{StartAt: req.StartAt, EndAt: req.EndAt}
	if req.Title != nil {
		t := sanitize.Text(*req.Title)
		in.Title = &t
	}
	if req.Description != nil {
		d := sanitize.Multiline(*req.Description)
		in.Description = &d
	}
	if req.Location != nil {
		l := sanitize.Text(*req.Location)
		in.Location = &l
	}

	e, err := h.svc.Update(c.Request.Context(), auth.CurrentUser(c), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve handles POST /events/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve)
}

// Reject handles POST /events/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

func (h *Handler) decide(c *gin.Context, fn func(context.Context, *models.User, uuid.UUID) (*models.Event, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := fn(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v >= 1 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
