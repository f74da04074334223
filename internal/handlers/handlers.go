package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/middleware"
	"ceseminars/internal/models"
	"ceseminars/internal/service"
	"ceseminars/internal/validation"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services      *service.Services
	users         middleware.UserLookup
	webhookSecret string
}

func NewHandlers(services *service.Services, users middleware.UserLookup, webhookSecret string) *Handlers {
	return &Handlers{
		services:      services,
		users:         users,
		webhookSecret: webhookSecret,
	}
}

type errorResponse struct {
	Error      string                  `json:"error"`
	Kind       apperrors.Kind          `json:"kind,omitempty"`
	Code       string                  `json:"code,omitempty"`
	Field      string                  `json:"field,omitempty"`
	Action     string                  `json:"action,omitempty"`
	State      string                  `json:"state,omitempty"`
	ExistingID *int64                  `json:"existing_id,omitempty"`
	Fields     []validation.FieldError `json:"fields,omitempty"`
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidStateTransition, apperrors.KindDuplicate:
		return http.StatusConflict
	case apperrors.KindPreconditionFailed, apperrors.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError maps domain errors to their status codes. Anything else is
// logged and hidden behind failure.
func respondError(c *gin.Context, err error, failure string) {
	if e, ok := apperrors.As(err); ok {
		c.JSON(statusFor(e.Kind), errorResponse{
			Error:      e.Error(),
			Kind:       e.Kind,
			Code:       e.Code,
			Field:      e.Field,
			Action:     e.Action,
			State:      e.State,
			ExistingID: e.ExistingID,
		})
		return
	}
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	_ = c.Error(err)
	logger.WithContext(c.Request.Context()).Error(failure, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
}

// bindJSON binds the body and answers 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := validation.Errors(err); fields != nil {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error:  "validation failed",
				Kind:   apperrors.KindValidation,
				Fields: fields,
			})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return v, true
}

func (h *Handlers) caller(c *gin.Context) int64 {
	id, _ := middleware.UserID(c)
	return id
}

func (h *Handlers) isAdmin(c *gin.Context) bool {
	return middleware.IsAdmin(c, h.users)
}

// ownRegistration loads a registration the caller may act on: their own,
// or any when the caller is an admin.
func (h *Handlers) ownRegistration(c *gin.Context, id int64) (*models.Registration, bool) {
	reg, err := h.services.Registrations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get registration")
		return nil, false
	}
	if reg.UserID != h.caller(c) && !h.isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": apperrors.ErrForbidden.Error()})
		return nil, false
	}
	return reg, true
}
