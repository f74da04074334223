package handlers

import (
	"net/http"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// SubmitMakeup - POST /api/makeup-requests
func (h *Handlers) SubmitMakeup(c *gin.Context) {
	var req models.SubmitMakeupRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, ok := h.ownRegistration(c, req.RegistrationID); !ok {
		return
	}

	resp, err := h.services.Makeups.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to submit makeup request")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetMakeup - GET /api/makeup-requests/:id
func (h *Handlers) GetMakeup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.services.Makeups.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get makeup request")
		return
	}
	if _, ok := h.ownRegistration(c, request.RegistrationID); !ok {
		return
	}
	c.JSON(http.StatusOK, request)
}

// ActOnMakeup - PATCH /api/makeup-requests/:id
// Members may only cancel or update their own requests, and may change the
// requested session only while the request is pending. Reviews need an admin.
func (h *Handlers) ActOnMakeup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.MakeupActionRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var reviewerID *int64
	if h.isAdmin(c) {
		caller := h.caller(c)
		reviewerID = &caller
	} else {
		if req.Action != models.ActionCancel && req.Action != models.ActionUpdate {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can " + string(req.Action) + " makeup requests"})
			return
		}
		current, err := h.services.Makeups.Get(ctx, id)
		if err != nil {
			respondError(c, err, "Failed to get makeup request")
			return
		}
		if _, ok := h.ownRegistration(c, current.RegistrationID); !ok {
			return
		}
		if req.RequestedSessionID != nil && current.Status != models.MakeupPending {
			respondError(c, apperrors.Precondition(apperrors.CodeMakeupAlreadyReviewed,
				"only an admin can change the session of a reviewed makeup request"), "Failed to update makeup request")
			return
		}
	}

	request, err := h.services.Makeups.Act(ctx, id, &req, reviewerID)
	if err != nil {
		respondError(c, err, "Failed to update makeup request")
		return
	}
	c.JSON(http.StatusOK, request)
}

// ListRegistrationMakeups - GET /api/registrations/:id/makeup-requests
func (h *Handlers) ListRegistrationMakeups(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownRegistration(c, id); !ok {
		return
	}

	requests, err := h.services.Makeups.ListByRegistration(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list makeup requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListMakeupsByStatus - GET /api/admin/makeup-requests?status=pending
func (h *Handlers) ListMakeupsByStatus(c *gin.Context) {
	status := models.MakeupStatus(c.DefaultQuery("status", string(models.MakeupPending)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown makeup status"})
		return
	}

	requests, err := h.services.Makeups.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err, "Failed to list makeup requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ExpireMakeups - POST /api/admin/makeup-requests/expire
// Runs the expiry sweep on demand.
func (h *Handlers) ExpireMakeups(c *gin.Context) {
	expired, err := h.services.Makeups.ExpireDue(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to expire makeup requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
