package external

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Template keys used by the application. MailConfig.Templates maps them to
// SendGrid dynamic template ids.
const (
	TemplateMakeupSubmitted = "makeup_submitted"
	TemplateMakeupApproved  = "makeup_approved"
	TemplateMakeupDenied    = "makeup_denied"
	TemplateMakeupExpired   = "makeup_expired"
	TemplateCertificate     = "certificate_issued"
	TemplateSessionReminder = "session_reminder"
	TemplateRegistration    = "registration_confirmed"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type MailConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	Templates map[string]string
}

// Enabled reports whether mail can be sent at all.
func (c MailConfig) Enabled() bool {
	return c.APIKey != ""
}

type MailClient struct {
	key       string
	from      *sgmail.Email
	templates map[string]string
	send      func(req sendgridRequest) (int, string, error)
}

type sendgridRequest struct {
	key  string
	body []byte
}

func NewMailClient(cfg MailConfig) *MailClient {
	return &MailClient{
		key:       cfg.APIKey,
		from:      sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		templates: cfg.Templates,
		send:      postToSendgrid,
	}
}

func postToSendgrid(r sendgridRequest) (int, string, error) {
	req := sendgrid.GetRequest(r.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = r.body

	res, err := sendgrid.API(req)
	if err != nil {
		return 0, "", err
	}
	return res.StatusCode, res.Body, nil
}

// Send delivers a dynamic-template message to one recipient.
func (mc *MailClient) Send(ctx context.Context, template, recipient string, vars map[string]interface{}) error {
	templateID := mc.templates[template]
	if templateID == "" {
		return fmt.Errorf("no mail template configured for %s", template)
	}
	if recipient == "" {
		return fmt.Errorf("mail recipient is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	status, body, err := mc.send(sendgridRequest{key: mc.key, body: mc.prepare(templateID, recipient, vars)})
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("mail provider returned status %d: %s", status, body)
	}
	return nil
}

func (mc *MailClient) prepare(templateID, recipient string, vars map[string]interface{}) []byte {
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", recipient))
	for k, v := range vars {
		p.SetDynamicTemplateData(k, v)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(mc.from)
	m.SetTemplateID(templateID)
	m.AddPersonalizations(p)

	return sgmail.GetRequestBody(m)
}
