package handlers

import (
	"net/http"

	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateSeminar - POST /api/admin/seminars
func (h *Handlers) CreateSeminar(c *gin.Context) {
	var req models.CreateSeminarRequest
	if !bindJSON(c, &req) {
		return
	}

	seminar, err := h.services.Catalog.CreateSeminar(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create seminar")
		return
	}
	c.JSON(http.StatusCreated, seminar)
}

// ListSeminars - GET /api/seminars?status=
func (h *Handlers) ListSeminars(c *gin.Context) {
	var status *models.SeminarStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SeminarStatus(raw)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown seminar status"})
			return
		}
		status = &s
	}

	seminars, err := h.services.Catalog.ListSeminars(c.Request.Context(), status)
	if err != nil {
		respondError(c, err, "Failed to list seminars")
		return
	}
	c.JSON(http.StatusOK, seminars)
}

// SearchSeminars - GET /api/seminars/search?query=&year=&page=&pageSize=
func (h *Handlers) SearchSeminars(c *gin.Context) {
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "pageSize", 20)
	if !ok {
		return
	}
	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 50"})
		return
	}

	seminars, err := h.services.Catalog.SearchSeminars(c.Request.Context(), c.Query("query"), year, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to search seminars")
		return
	}
	c.JSON(http.StatusOK, seminars)
}

// GetSeminar - GET /api/seminars/:id
func (h *Handlers) GetSeminar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	seminar, err := h.services.Catalog.GetSeminar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get seminar")
		return
	}
	c.JSON(http.StatusOK, seminar)
}

// ActivateSeminar - POST /api/admin/seminars/:id/activate
// Demotes the previously active seminar.
func (h *Handlers) ActivateSeminar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	seminar, err := h.services.Catalog.ActivateSeminar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to activate seminar")
		return
	}
	c.JSON(http.StatusOK, seminar)
}

// UpdateSeminarStatus - PATCH /api/admin/seminars/:id/status
func (h *Handlers) UpdateSeminarStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateSeminarStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	seminar, err := h.services.Catalog.UpdateSeminarStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "Failed to update seminar status")
		return
	}
	c.JSON(http.StatusOK, seminar)
}

// ListSessions - GET /api/seminars/:id/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sessions, err := h.services.Catalog.ListSessions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// CreateSession - POST /api/admin/seminars/:id/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.SessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.services.Catalog.CreateSession(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// UpdateSession - PUT /api/admin/sessions/:id
func (h *Handlers) UpdateSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.SessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.services.Catalog.UpdateSession(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession - DELETE /api/admin/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Catalog.DeleteSession(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}
