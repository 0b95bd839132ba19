package builder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/sicko7947/automation"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// requiredActionConfig lists config keys an action kind cannot run without
var requiredActionConfig = map[automation.ActionKind][]string{
	automation.ActionSendEmail:      {"templateId"},
	automation.ActionSendSMS:        {"message"},
	automation.ActionSendPush:       {"title"},
	automation.ActionAddTag:         {"tag"},
	automation.ActionAddToSegment:   {"segmentId"},
	automation.ActionCreateDiscount: {"type", "value"},
	automation.ActionWebhook:        {"url"},
}

// Validate performs comprehensive validation on a workflow definition.
// Every failure is an *automation.ValidationError.
func Validate(w *automation.Workflow) error {
	if w == nil {
		return &automation.ValidationError{Message: "workflow is nil"}
	}

	if err := validate.Struct(w); err != nil {
		return toValidationError(err)
	}

	if err := ValidateTrigger(w.Trigger); err != nil {
		return err
	}

	for i, cond := range w.Conditions {
		if err := ValidateCondition(cond); err != nil {
			return prefixField(err, fmt.Sprintf("conditions[%d]", i))
		}
	}

	for i, action := range w.Actions {
		if err := ValidateAction(action); err != nil {
			return prefixField(err, fmt.Sprintf("actions[%d]", i))
		}
	}

	return nil
}

// ValidateTrigger checks trigger-specific configuration. Time-based
// triggers need a standard five-field cron expression.
func ValidateTrigger(t automation.Trigger) error {
	if t.Type != automation.TriggerTimeBased {
		return nil
	}

	expr, _ := t.Config["cron"].(string)
	if expr == "" {
		return &automation.ValidationError{Field: "trigger.config.cron", Message: "time_based triggers require a cron expression"}
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return &automation.ValidationError{Field: "trigger.config.cron", Message: err.Error()}
	}
	return nil
}

// ValidateCondition checks that a condition's value fits its operator
func ValidateCondition(c automation.Condition) error {
	if c.Operator != automation.OpIn {
		return nil
	}

	if c.Value == nil {
		return &automation.ValidationError{Field: "value", Message: "in requires a list value"}
	}
	kind := reflect.TypeOf(c.Value).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return &automation.ValidationError{Field: "value", Message: "in requires a list value"}
	}
	return nil
}

// ValidateAction checks that an action carries the config it needs
func ValidateAction(a automation.Action) error {
	for _, key := range requiredActionConfig[a.Type] {
		v, ok := a.Config[key]
		if !ok || v == nil || v == "" {
			return &automation.ValidationError{Field: "config." + key, Message: fmt.Sprintf("%s requires %s", a.Type, key)}
		}
	}

	if a.Type == automation.ActionWebhook {
		url, _ := a.Config["url"].(string)
		if err := validate.Var(url, "required,http_url"); err != nil {
			return &automation.ValidationError{Field: "config.url", Message: "url must be an http(s) URL"}
		}
	}

	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &automation.ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	msg := fmt.Sprintf("failed on '%s'", fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("failed on '%s=%s'", fe.Tag(), fe.Param())
	}
	return &automation.ValidationError{Field: field, Message: msg}
}

func prefixField(err error, prefix string) error {
	var ve *automation.ValidationError
	if errors.As(err, &ve) {
		return &automation.ValidationError{Field: prefix + "." + ve.Field, Message: ve.Message}
	}
	return err
}
