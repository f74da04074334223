package handlers

import (
	"net/http"

	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent - POST /api/admin/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.services.Certificates.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.services.Certificates.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := h.services.Certificates.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}
	c.JSON(http.StatusOK, event)
}
