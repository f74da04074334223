package handlers

import (
	"net/http"

	"ceseminars/internal/external"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// OrderPaid - POST /webhooks/orders/paid
// Redelivered notifications answer 200 with the existing registration.
func (h *Handlers) OrderPaid(c *gin.Context) {
	var payload models.OrderPaidPayload
	if !bindJSON(c, &payload) {
		return
	}

	ctx := c.Request.Context()
	if !external.VerifyOrder(&payload, h.webhookSecret) {
		logger.WithContext(ctx).Warn("Rejected order notification with bad token", "order_id", payload.OrderID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	reg, created, err := h.services.Orders.HandleOrderPaid(ctx, &payload)
	if err != nil {
		respondError(c, err, "Failed to handle order notification")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, reg)
}
