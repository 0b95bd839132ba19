package capability

import (
	"context"

	"github.com/sicko7947/automation"
)

// WebhookCaller performs outbound webhook calls
type WebhookCaller interface {
	CallWebhook(ctx context.Context, url string, payload map[string]any) error
}

// Composite routes webhook actions to a real HTTP caller and everything
// else to a fallback implementation
type Composite struct {
	automation.Capabilities
	webhook WebhookCaller
}

// NewComposite creates a composite capability set. A nil webhook leaves
// webhook calls to the fallback.
func NewComposite(fallback automation.Capabilities, webhook WebhookCaller) *Composite {
	return &Composite{Capabilities: fallback, webhook: webhook}
}

// CallWebhook implements automation.Capabilities
func (c *Composite) CallWebhook(ctx context.Context, url string, payload map[string]any) error {
	if c.webhook == nil {
		return c.Capabilities.CallWebhook(ctx, url, payload)
	}
	return c.webhook.CallWebhook(ctx, url, payload)
}
