package handlers

import (
	"net/http"

	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// Register - POST /api/registrations
// Admins may enroll someone else through user_id.
func (h *Handlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := h.caller(c)
	if req.UserID != nil && *req.UserID != userID {
		if !h.isAdmin(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can register other users"})
			return
		}
		userID = *req.UserID
	}

	reg, err := h.services.Registrations.Register(c.Request.Context(), userID, req.SeminarID, nil)
	if err != nil {
		respondError(c, err, "Failed to create registration")
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// ListMyRegistrations - GET /api/registrations
func (h *Handlers) ListMyRegistrations(c *gin.Context) {
	regs, err := h.services.Registrations.ListByUser(c.Request.Context(), h.caller(c))
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}
	c.JSON(http.StatusOK, regs)
}

// GetRegistration - GET /api/registrations/:id
func (h *Handlers) GetRegistration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reg, ok := h.ownRegistration(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reg)
}

// CancelRegistration - POST /api/registrations/:id/cancel
func (h *Handlers) CancelRegistration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownRegistration(c, id); !ok {
		return
	}

	reg, err := h.services.Registrations.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to cancel registration")
		return
	}
	c.JSON(http.StatusOK, reg)
}

// HoldRegistration - POST /api/admin/registrations/:id/hold
func (h *Handlers) HoldRegistration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reg, err := h.services.Registrations.Hold(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to put registration on hold")
		return
	}
	c.JSON(http.StatusOK, reg)
}

// ResumeRegistration - POST /api/admin/registrations/:id/resume
func (h *Handlers) ResumeRegistration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reg, err := h.services.Registrations.Resume(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to resume registration")
		return
	}
	c.JSON(http.StatusOK, reg)
}

// ListSeminarRegistrations - GET /api/admin/seminars/:id/registrations?status=
func (h *Handlers) ListSeminarRegistrations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var status *models.RegistrationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.RegistrationStatus(raw)
		status = &s
	}

	regs, err := h.services.Registrations.ListBySeminar(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}
	c.JSON(http.StatusOK, regs)
}
