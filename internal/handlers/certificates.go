package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"ceseminars/internal/export"
	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

// IssueCertificates - POST /api/admin/certificates/bi-annual
func (h *Handlers) IssueCertificates(c *gin.Context) {
	var req models.IssueCertificatesRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.services.Certificates.IssueCertificates(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to issue certificates")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) eligible(c *gin.Context) (int64, models.Period, int, []models.EligibleRegistration, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return 0, "", 0, nil, false
	}
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return 0, "", 0, nil, false
	}
	period := models.Period(c.Query("period"))

	rows, err := h.services.Certificates.GetEligible(c.Request.Context(), id, period, year)
	if err != nil {
		respondError(c, err, "Failed to list eligible registrations")
		return 0, "", 0, nil, false
	}
	return id, period, year, rows, true
}

// GetEligible - GET /api/admin/seminars/:id/eligible?period=&year=
func (h *Handlers) GetEligible(c *gin.Context) {
	_, _, _, rows, ok := h.eligible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ExportEligible - GET /api/admin/seminars/:id/eligible.xlsx?period=&year=
func (h *Handlers) ExportEligible(c *gin.Context) {
	id, period, year, rows, ok := h.eligible(c)
	if !ok {
		return
	}
	seminar, err := h.services.Catalog.GetSeminar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get seminar")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteEligible(&buf, seminar, period.Label(year), rows); err != nil {
		respondError(c, err, "Failed to export eligible registrations")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="eligible-%d-%s-%d.xlsx"`, id, period, year))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// IssueEventCertificate - POST /api/admin/certificates/event
func (h *Handlers) IssueEventCertificate(c *gin.Context) {
	var req models.IssueEventCertificateRequest
	if !bindJSON(c, &req) {
		return
	}

	cert, created, err := h.services.Certificates.IssueEventCertificate(c.Request.Context(), req.UserID, req.EventID)
	if err != nil {
		respondError(c, err, "Failed to issue event certificate")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, cert)
}

// ListMyCertificates - GET /api/certificates
func (h *Handlers) ListMyCertificates(c *gin.Context) {
	certs, err := h.services.Certificates.ListByUser(c.Request.Context(), h.caller(c))
	if err != nil {
		respondError(c, err, "Failed to list certificates")
		return
	}
	c.JSON(http.StatusOK, certs)
}

// CertificatePDF - GET /api/certificates/:id/pdf
// Renders on first request and redirects to the stored document.
func (h *Handlers) CertificatePDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	cert, err := h.services.Certificates.Get(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to get certificate")
		return
	}
	if cert.UserID != h.caller(c) && !h.isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "certificate belongs to another user"})
		return
	}

	url, err := h.services.Certificates.PDF(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to render certificate")
		return
	}
	c.Header("Location", url)
	c.Status(http.StatusFound)
}

// VerifyCertificate - GET /certificates/verify/:code (public)
func (h *Handlers) VerifyCertificate(c *gin.Context) {
	cert, err := h.services.Certificates.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "Failed to verify certificate")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":            true,
		"certificate_code": cert.CertificateCode,
		"credits":          cert.Credits,
		"issued_at":        cert.IssuedAt,
		"seminar_id":       cert.SeminarID,
		"event_id":         cert.EventID,
		"period":           cert.Period,
		"year":             cert.Year,
	})
}
