package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWebhookTimeout bounds a webhook request when no client is supplied
const DefaultWebhookTimeout = 30 * time.Second

// maxDrainBytes is how much of a response body is read before closing
const maxDrainBytes = 64 << 10

// Webhook delivers payloads as JSON POST requests
type Webhook struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// WebhookOption configures a Webhook
type WebhookOption func(*Webhook)

// WithHTTPClient sets the client used for requests
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.client = client
	}
}

// WithRateLimit caps outbound requests at perSecond with the given burst.
// A perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) WebhookOption {
	return func(w *Webhook) {
		if perSecond <= 0 {
			w.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithUserAgent sets the User-Agent header on every request
func WithUserAgent(ua string) WebhookOption {
	return func(w *Webhook) {
		w.userAgent = ua
	}
}

// NewWebhook creates a webhook caller
func NewWebhook(opts ...WebhookOption) *Webhook {
	w := &Webhook{
		client:    &http.Client{Timeout: DefaultWebhookTimeout},
		userAgent: "automation-webhook/1.0",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CallWebhook POSTs payload to url. Any status >= 400 is an error.
func (w *Webhook) CallWebhook(ctx context.Context, url string, payload map[string]any) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("webhook rate limit: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
