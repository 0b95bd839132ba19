// Package capability provides Capabilities implementations the engine can
// dispatch actions to.
package capability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
)

// Logging is a Capabilities implementation that only records what it was
// asked to do. It never fails.
type Logging struct {
	logger zerolog.Logger
}

// NewLogging creates a log-only capability set
func NewLogging(logger zerolog.Logger) *Logging {
	return &Logging{logger: logger.With().Str("component", "capability").Logger()}
}

func (l *Logging) SendEmail(ctx context.Context, msg automation.EmailMessage) error {
	l.logger.Info().
		Str("capability", string(automation.ActionSendEmail)).
		Str("template_id", msg.TemplateID).
		Str("subject", msg.Subject).
		Str("recipient", msg.Recipient).
		Msg("Email sent")
	return nil
}

func (l *Logging) SendSMS(ctx context.Context, msg automation.SMSMessage) error {
	l.logger.Info().
		Str("capability", string(automation.ActionSendSMS)).
		Str("recipient", msg.Recipient).
		Int("length", len(msg.Message)).
		Msg("SMS sent")
	return nil
}

func (l *Logging) SendPush(ctx context.Context, msg automation.PushMessage) error {
	l.logger.Info().
		Str("capability", string(automation.ActionSendPush)).
		Str("title", msg.Title).
		Str("recipient", msg.Recipient).
		Msg("Push notification sent")
	return nil
}

func (l *Logging) AddTag(ctx context.Context, entityID, tag string) error {
	l.logger.Info().
		Str("capability", string(automation.ActionAddTag)).
		Str("entity_id", entityID).
		Str("tag", tag).
		Msg("Tag added")
	return nil
}

func (l *Logging) AddToSegment(ctx context.Context, entityID, segmentID string) error {
	l.logger.Info().
		Str("capability", string(automation.ActionAddToSegment)).
		Str("entity_id", entityID).
		Str("segment_id", segmentID).
		Msg("Added to segment")
	return nil
}

func (l *Logging) CreateDiscount(ctx context.Context, req automation.DiscountRequest) error {
	l.logger.Info().
		Str("capability", string(automation.ActionCreateDiscount)).
		Str("entity_id", req.EntityID).
		Str("type", req.Type).
		Float64("value", req.Value).
		Int("expires_in", req.ExpiresIn).
		Msg("Discount created")
	return nil
}

func (l *Logging) CallWebhook(ctx context.Context, url string, payload map[string]any) error {
	l.logger.Info().
		Str("capability", string(automation.ActionWebhook)).
		Str("url", url).
		Int("payload_keys", len(payload)).
		Msg("Webhook called")
	return nil
}
