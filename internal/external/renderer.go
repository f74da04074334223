package external

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ceseminars/internal/models"

	"github.com/go-resty/resty/v2"
)

type RendererConfig struct {
	BaseURL  string
	APIKey   string
	Template string
	Timeout  time.Duration
}

// RendererClient talks to the HTTP PDF rendering service.
type RendererClient struct {
	client *resty.Client
}

type renderRequest struct {
	Template string                     `json:"template"`
	Data     models.CertificateDocument `json:"data"`
}

func NewRendererClient(cfg RendererConfig) *RendererClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/pdf")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &RendererClient{client: client}
}

// Render returns the PDF bytes for doc rendered with template.
func (rc *RendererClient) Render(ctx context.Context, doc models.CertificateDocument, template string) ([]byte, error) {
	resp, err := rc.client.R().
		SetContext(ctx).
		SetBody(renderRequest{Template: template, Data: doc}).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("failed to call renderer: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("renderer returned an empty document")
	}

	return resp.Body(), nil
}
