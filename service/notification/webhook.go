package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/scy"
)

// WebhookConfig holds webhook notifier settings.
type WebhookConfig struct {
	// URL is the endpoint events are posted to.
	URL string `json:"url" yaml:"url"`
	// SecretURL optionally locates the bearer token via scy, e.g.
	// "blackbox://approvals/webhook-token".
	SecretURL string `json:"secretURL,omitempty" yaml:"secretURL,omitempty"`
	// SecretKey is the scy decryption key, e.g. "blowfish://default".
	SecretKey string        `json:"secretKey,omitempty" yaml:"secretKey,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Webhook posts events as JSON to a configured endpoint, authorizing with a
// secret-managed bearer token when one is configured.
type Webhook struct {
	config  WebhookConfig
	client  *http.Client
	secrets *scy.Service
}

// NewWebhook creates a webhook notifier.
func NewWebhook(config WebhookConfig) *Webhook {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Webhook{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		secrets: scy.New(),
	}
}

// Notify posts the event to the configured endpoint.
func (w *Webhook) Notify(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = clock.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if w.config.SecretURL != "" {
		resource := scy.NewResource(nil, w.config.SecretURL, w.config.SecretKey)
		secret, err := w.secrets.Load(ctx, resource)
		if err != nil {
			return fmt.Errorf("failed to load webhook secret: %w", err)
		}
		request.Header.Set("Authorization", "Bearer "+secret.String())
	}
	response, err := w.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %v", response.StatusCode)
	}
	return nil
}
