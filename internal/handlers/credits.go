package handlers

import (
	"net/http"

	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// MyCredits - GET /api/credits
func (h *Handlers) MyCredits(c *gin.Context) {
	summary, err := h.services.Credits.Summary(c.Request.Context(), h.caller(c))
	if err != nil {
		respondError(c, err, "Failed to get credits")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UserCredits - GET /api/admin/users/:id/credits
func (h *Handlers) UserCredits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.services.Credits.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get credits")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AdjustCredits - POST /api/admin/users/:id/credits
func (h *Handlers) AdjustCredits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreditAdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.services.Credits.Adjust(c.Request.Context(), id, req.Amount, req.Reason, req.SeminarID)
	if err != nil {
		respondError(c, err, "Failed to adjust credits")
		return
	}
	c.JSON(http.StatusCreated, entry)
}
