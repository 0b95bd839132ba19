package engine

import (
	"fmt"
	"strconv"

	"github.com/sicko7947/automation"
)

// Dispatcher routes one action to whatever carries it out
type Dispatcher interface {
	Dispatch(actx *automation.ActionContext, action automation.Action) error
}

// Default payload paths for message recipients, tried in order
var (
	emailRecipientPaths = []string{"email", "customer.email"}
	phoneRecipientPaths = []string{"phone", "customer.phone"}
)

// ActionDispatcher maps each action kind to a Capabilities call
type ActionDispatcher struct {
	caps automation.Capabilities
}

// NewActionDispatcher creates a dispatcher backed by caps
func NewActionDispatcher(caps automation.Capabilities) *ActionDispatcher {
	return &ActionDispatcher{caps: caps}
}

// Dispatch implements Dispatcher
func (d *ActionDispatcher) Dispatch(actx *automation.ActionContext, action automation.Action) error {
	cfg := action.Config

	switch action.Type {
	case automation.ActionWait:
		// The delay already happened
		return nil

	case automation.ActionSendEmail:
		templateID, err := requireString(action, "templateId")
		if err != nil {
			return err
		}
		recipient, err := resolveRecipient(actx, action, emailRecipientPaths)
		if err != nil {
			return err
		}
		subject, _ := configString(cfg, "subject")
		return d.caps.SendEmail(actx, automation.EmailMessage{
			TemplateID: templateID,
			Subject:    subject,
			Recipient:  recipient,
		})

	case automation.ActionSendSMS:
		message, err := requireString(action, "message")
		if err != nil {
			return err
		}
		recipient, err := resolveRecipient(actx, action, phoneRecipientPaths)
		if err != nil {
			return err
		}
		return d.caps.SendSMS(actx, automation.SMSMessage{Message: message, Recipient: recipient})

	case automation.ActionSendPush:
		title, err := requireString(action, "title")
		if err != nil {
			return err
		}
		recipient, err := resolveRecipient(actx, action, nil)
		if err != nil {
			return err
		}
		return d.caps.SendPush(actx, automation.PushMessage{Title: title, Recipient: recipient})

	case automation.ActionAddTag:
		tag, err := requireString(action, "tag")
		if err != nil {
			return err
		}
		entityID, err := requireEntity(actx, action)
		if err != nil {
			return err
		}
		return d.caps.AddTag(actx, entityID, tag)

	case automation.ActionAddToSegment:
		segmentID, err := requireString(action, "segmentId")
		if err != nil {
			return err
		}
		entityID, err := requireEntity(actx, action)
		if err != nil {
			return err
		}
		return d.caps.AddToSegment(actx, entityID, segmentID)

	case automation.ActionCreateDiscount:
		discountType, err := requireString(action, "type")
		if err != nil {
			return err
		}
		value, ok := configNumber(cfg, "value")
		if !ok {
			return configError(action, "value must be a number")
		}
		entityID, err := requireEntity(actx, action)
		if err != nil {
			return err
		}
		expiresIn, _ := configNumber(cfg, "expiresIn")
		return d.caps.CreateDiscount(actx, automation.DiscountRequest{
			EntityID:  entityID,
			Type:      discountType,
			Value:     value,
			ExpiresIn: int(expiresIn),
		})

	case automation.ActionWebhook:
		url, err := requireString(action, "url")
		if err != nil {
			return err
		}
		return d.caps.CallWebhook(actx, url, actx.Payload)

	default:
		actx.Logger.Warn().
			Str("event", automation.EventActionUnknown).
			Str("action_type", string(action.Type)).
			Msg("Unknown action type, skipping")
		return nil
	}
}

// dryRunDispatcher logs what would have been dispatched
type dryRunDispatcher struct{}

func (dryRunDispatcher) Dispatch(actx *automation.ActionContext, action automation.Action) error {
	actx.Logger.Info().
		Str("event", automation.EventActionDryRun).
		Str("action_type", string(action.Type)).
		Interface("config", action.Config).
		Msg("Dry run, action not dispatched")
	return nil
}

// resolveRecipient resolves the address a message goes to. An explicit
// recipientPath wins; otherwise the default paths are tried, and with no
// default paths the entity id is used.
func resolveRecipient(actx *automation.ActionContext, action automation.Action, defaults []string) (string, error) {
	if path, ok := configString(action.Config, "recipientPath"); ok {
		if value, found := actx.LookupString(path); found {
			return value, nil
		}
		return "", configError(action, fmt.Sprintf("no recipient at %q", path))
	}

	if len(defaults) == 0 {
		return requireEntity(actx, action)
	}

	for _, path := range defaults {
		if value, found := actx.LookupString(path); found {
			return value, nil
		}
	}
	return "", configError(action, fmt.Sprintf("no recipient at %q", defaults[0]))
}

func requireEntity(actx *automation.ActionContext, action automation.Action) (string, error) {
	if id := actx.EntityID(); id != "" {
		return id, nil
	}
	return "", configError(action, "payload carries no entity id")
}

func requireString(action automation.Action, key string) (string, error) {
	if v, ok := configString(action.Config, key); ok {
		return v, nil
	}
	return "", configError(action, key+" is required")
}

func configError(action automation.Action, msg string) error {
	return automation.NewExecutionError(automation.ErrCodeValidation, fmt.Sprintf("%s: %s", action.Type, msg))
}

func configString(cfg map[string]any, key string) (string, bool) {
	v, ok := cfg[key].(string)
	return v, ok && v != ""
}

func configNumber(cfg map[string]any, key string) (float64, bool) {
	switch v := cfg[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
