package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyOrder(t *testing.T) {
	payload := &models.OrderPaidPayload{
		OrderID:   "ord-1",
		Email:     "ann@example.com",
		FirstName: "Ann",
		Surname:   "Lee",
		SeminarID: 7,
		Timestamp: "2026-01-02T10:00:00Z",
	}
	payload.Token = SignOrder(payload, "s3cret")

	assert.True(t, VerifyOrder(payload, "s3cret"))
	assert.False(t, VerifyOrder(payload, "other"))
	assert.False(t, VerifyOrder(payload, ""))

	tampered := *payload
	tampered.SeminarID = 8
	assert.False(t, VerifyOrder(&tampered, "s3cret"))
}

func TestOrderTokenIsOrderIndependent(t *testing.T) {
	a := OrderToken(map[string]string{"B": "2", "A": "1"}, "x")
	b := OrderToken(map[string]string{"A": "1", "B": "2"}, "x")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestRendererClient_Render(t *testing.T) {
	var got renderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7"))
	}))
	defer server.Close()

	client := NewRendererClient(RendererConfig{BaseURL: server.URL, APIKey: "key"})
	doc := models.CertificateDocument{Code: "CE-2026-ABCD1234", Recipient: "Ann Lee", Credits: decimal.NewFromInt(4)}

	pdf, err := client.Render(context.Background(), doc, "ce-certificate")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Equal(t, "ce-certificate", got.Template)
	assert.Equal(t, "CE-2026-ABCD1234", got.Data.Code)
}

func TestRendererClient_RenderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRendererClient(RendererConfig{BaseURL: server.URL})
	_, err := client.Render(context.Background(), models.CertificateDocument{}, "t")
	assert.Error(t, err)
}

func TestMailClient_Send(t *testing.T) {
	var sent sendgridRequest
	client := NewMailClient(MailConfig{
		APIKey:    "SG.key",
		FromName:  "CE Seminars",
		FromEmail: "no-reply@example.com",
		Templates: map[string]string{TemplateMakeupApproved: "d-123"},
	})
	client.send = func(r sendgridRequest) (int, string, error) {
		sent = r
		return http.StatusAccepted, "", nil
	}

	err := client.Send(context.Background(), TemplateMakeupApproved, "ann@example.com", map[string]interface{}{"first_name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "SG.key", sent.key)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(sent.body, &body))
	assert.Equal(t, "d-123", body["template_id"])
	assert.Contains(t, string(sent.body), "ann@example.com")
	assert.Contains(t, string(sent.body), `"first_name":"Ann"`)
}

func TestMailClient_SendFailures(t *testing.T) {
	client := NewMailClient(MailConfig{APIKey: "k", Templates: map[string]string{TemplateCertificate: "d-9"}})
	client.send = func(r sendgridRequest) (int, string, error) {
		return http.StatusBadRequest, "bad", nil
	}

	assert.Error(t, client.Send(context.Background(), TemplateMakeupDenied, "a@b.c", nil), "unconfigured template")
	assert.Error(t, client.Send(context.Background(), TemplateCertificate, "", nil), "empty recipient")
	assert.Error(t, client.Send(context.Background(), TemplateCertificate, "a@b.c", nil), "provider rejection")
}
