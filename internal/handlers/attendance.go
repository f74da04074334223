package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"ceseminars/internal/export"
	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordAttendance - POST /api/attendance
// Members can only check themselves in by QR on the session's day; admins
// may use any method for any date.
func (h *Handlers) RecordAttendance(c *gin.Context) {
	var req models.RecordAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	record := h.services.Attendance.RecordAttendance
	if !h.isAdmin(c) {
		record = h.services.Attendance.SelfCheckIn
		if req.Method != models.MethodQR {
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can record " + string(req.Method) + " attendance"})
			return
		}
		if _, ok := h.ownRegistration(c, req.RegistrationID); !ok {
			return
		}
	}

	attendance, err := record(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to record attendance")
		return
	}
	c.JSON(http.StatusCreated, attendance)
}

// DeleteAttendance - DELETE /api/admin/attendance/:id
func (h *Handlers) DeleteAttendance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	attendance, err := h.services.Attendance.DeleteAttendance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to delete attendance")
		return
	}
	c.JSON(http.StatusOK, attendance)
}

// ListAttendance - GET /api/registrations/:id/attendance
func (h *Handlers) ListAttendance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownRegistration(c, id); !ok {
		return
	}

	rows, err := h.services.Attendance.ListAttendance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list attendance")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetRoster - GET /api/admin/seminars/:id/roster
func (h *Handlers) GetRoster(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	roster, err := h.services.Rosters.Roster(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to build roster")
		return
	}
	c.JSON(http.StatusOK, roster)
}

// ExportRoster - GET /api/admin/seminars/:id/roster.xlsx
func (h *Handlers) ExportRoster(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	roster, err := h.services.Rosters.Roster(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to build roster")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, roster); err != nil {
		respondError(c, err, "Failed to export roster")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportAttendance - POST /api/admin/attendance/import (multipart "file")
// Rows are recorded one by one; failures come back per row.
func (h *Handlers) ImportAttendance(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	rows, parseErrors, err := export.ReadAttendance(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := h.services.Rosters.Import(c.Request.Context(), rows)
	resp.Errors = append(parseErrors, resp.Errors...)
	c.JSON(http.StatusOK, resp)
}
