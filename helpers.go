package automation

import (
	"strconv"
)

// ToPtr returns a pointer to the given value.
// This is useful for creating pointers to literals or converting values to pointers.
func ToPtr[T any](v T) *T {
	return &v
}

// entityIDKeys are checked in order when extracting the acting entity from a payload
var entityIDKeys = []string{"customerId", "customer_id", "userId", "user_id", "entityId", "entity_id", "id"}

// EntityID extracts the id of the entity an event is about (usually the
// customer). Returns "" when the payload carries none.
func EntityID(payload map[string]any) string {
	for _, key := range entityIDKeys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		switch id := v.(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		case int:
			return strconv.Itoa(id)
		case int64:
			return strconv.FormatInt(id, 10)
		}
	}
	return ""
}

// cloneMap deep-copies a JSON-like map
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies nested maps and slices; scalars are returned as is
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// ClonePayload returns a deep copy of an event payload
func ClonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	return cloneMap(payload)
}
