package automation

import (
	"context"
)

// EmailMessage is a templated email to one recipient
type EmailMessage struct {
	TemplateID string `json:"templateId"`
	Subject    string `json:"subject,omitempty"`
	Recipient  string `json:"recipient"`
}

// SMSMessage is a text message to one phone number
type SMSMessage struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
}

// PushMessage is a push notification to one recipient
type PushMessage struct {
	Title     string `json:"title"`
	Recipient string `json:"recipient"`
}

// DiscountRequest asks the discount issuer to mint a code for an entity
type DiscountRequest struct {
	EntityID  string  `json:"entityId"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	ExpiresIn int     `json:"expiresIn,omitempty"`
}

// Capabilities is the contract to the external collaborators actions act on.
// Any returned error fails the action that made the call.
type Capabilities interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
	SendSMS(ctx context.Context, msg SMSMessage) error
	SendPush(ctx context.Context, msg PushMessage) error
	AddTag(ctx context.Context, entityID, tag string) error
	AddToSegment(ctx context.Context, entityID, segmentID string) error
	CreateDiscount(ctx context.Context, req DiscountRequest) error
	CallWebhook(ctx context.Context, url string, payload map[string]any) error
}
