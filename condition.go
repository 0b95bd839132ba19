package automation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// undefined marks a field path that did not resolve. It is distinct from an
// explicit JSON null.
type undefinedValue struct{}

var undefined = undefinedValue{}

// EvaluateConditions reports whether a payload satisfies a condition list.
// An empty list always matches. Results are folded strictly left to right:
// each condition after the first joins the accumulated result with its own
// Logic (AND when unset). The first condition's Logic is ignored.
func EvaluateConditions(conditions []Condition, payload map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}

	result := EvaluateCondition(conditions[0], payload)
	for _, cond := range conditions[1:] {
		next := EvaluateCondition(cond, payload)
		if cond.Logic == LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// EvaluateCondition evaluates one condition. Anything that cannot be
// compared evaluates to false.
func EvaluateCondition(cond Condition, payload map[string]any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	actual := ResolveField(payload, cond.Field)
	expected := normalize(cond.Value)

	switch cond.Operator {
	case OpEquals:
		return strictEqual(actual, expected)
	case OpNotEquals:
		return !strictEqual(actual, expected)
	case OpGreaterThan:
		a, b := toNumber(actual), toNumber(expected)
		return a > b
	case OpLessThan:
		a, b := toNumber(actual), toNumber(expected)
		return a < b
	case OpContains:
		if IsUndefined(actual) || IsUndefined(expected) {
			return false
		}
		return strings.Contains(strings.ToLower(toString(actual)), strings.ToLower(toString(expected)))
	case OpIn:
		items, isList := expected.([]any)
		if !isList {
			return false
		}
		for _, item := range items {
			if strictEqual(actual, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ResolveField walks a dotted path through nested maps, reading numeric
// segments as list indices. A missing key at any step yields undefined.
func ResolveField(payload map[string]any, path string) any {
	if path == "" {
		return undefined
	}

	var current any = payload
	for _, key := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, exists := node[key]
			if !exists {
				return undefined
			}
			current = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return undefined
			}
			current = node[i]
		default:
			return undefined
		}
	}
	return normalize(current)
}

// IsUndefined reports whether a resolved value is the missing-field marker
func IsUndefined(v any) bool {
	_, ok := v.(undefinedValue)
	return ok
}

// normalize maps Go numeric types to float64 and typed slices to []any so
// payloads decoded from JSON and payloads built in code compare the same
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64, undefinedValue, map[string]any, []any:
		return v
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// strictEqual compares scalars by type and value. Maps and slices are only
// ever equal to themselves by identity, which never happens across a
// payload and a definition, so they compare unequal.
func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case undefinedValue:
		return IsUndefined(b)
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return false
	}
}

// toNumber coerces a value to a number. Values that have no numeric reading
// become NaN, which fails every comparison.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case []any:
		switch len(t) {
		case 0:
			return 0
		case 1:
			return toNumber(normalize(t[0]))
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// toString renders a value the way it would read in a text comparison
func toString(v any) string {
	switch t := v.(type) {
	case undefinedValue:
		return ""
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			if item == nil {
				continue
			}
			parts[i] = toString(normalize(item))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
