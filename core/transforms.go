package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	TransformToNumber      = "toNumber"
	TransformToString      = "toString"
	TransformNullIfEmpty   = "nullIfEmpty"
	TransformDefaultIfNull = "defaultIfNull"
	TransformTrim          = "trim"
	TransformLowercase     = "lowercase"
	TransformUppercase     = "uppercase"
	TransformToBoolean     = "toBoolean"
	TransformToInteger     = "toInteger"
)

// TransformFunc converts one value. fallback is the rule default (nil when
// the rule has none). Implementations are pure and never fail.
type TransformFunc func(value any, fallback any) any

type transformEntry struct {
	fn TransformFunc
	// keepsAbsent marks transforms that leave an absent source absent
	// instead of producing an explicit null.
	keepsAbsent bool
}

var builtinTransforms = map[string]transformEntry{
	TransformToNumber:      {fn: toNumberTransform},
	TransformToString:      {fn: toStringTransform},
	TransformNullIfEmpty:   {fn: nullIfEmptyTransform, keepsAbsent: true},
	TransformDefaultIfNull: {fn: defaultIfNullTransform},
	TransformTrim:          {fn: trimTransform, keepsAbsent: true},
	TransformLowercase:     {fn: lowercaseTransform, keepsAbsent: true},
	TransformUppercase:     {fn: uppercaseTransform, keepsAbsent: true},
	TransformToBoolean:     {fn: toBooleanTransform},
	TransformToInteger:     {fn: toIntegerTransform},
}

// LookupTransform resolves a transform id against the built-in table.
func LookupTransform(id string) (TransformFunc, bool) {
	entry, ok := builtinTransforms[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	return entry.fn, true
}

// TransformIDs lists the registered transform ids, sorted.
func TransformIDs() []string {
	ids := make([]string, 0, len(builtinTransforms))
	for id := range builtinTransforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// applyTransform runs the named transform over a value that may be absent.
// The returned found flag follows keepsAbsent for absent input.
func applyTransform(id string, value any, found bool, fallback any) (any, bool, bool) {
	entry, ok := builtinTransforms[strings.TrimSpace(id)]
	if !ok {
		return nil, false, false
	}
	if !found {
		if entry.keepsAbsent {
			return nil, false, true
		}
		return entry.fn(nil, fallback), true, true
	}
	return entry.fn(value, fallback), true, true
}

func toNumberTransform(value any, _ any) any {
	number, ok := toFloatValue(value)
	if !ok {
		return nil
	}
	return number
}

func toIntegerTransform(value any, _ any) any {
	number, ok := toFloatValue(value)
	if !ok {
		return nil
	}
	return int64(number)
}

func toStringTransform(value any, _ any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(typed)
	case map[string]any, []any:
		payload, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(payload)
	default:
		return fmt.Sprint(typed)
	}
}

func nullIfEmptyTransform(value any, _ any) any {
	if text, ok := value.(string); ok && text == "" {
		return nil
	}
	return value
}

func defaultIfNullTransform(value any, fallback any) any {
	if value == nil {
		return fallback
	}
	return value
}

func trimTransform(value any, _ any) any {
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return value
}

func lowercaseTransform(value any, _ any) any {
	if text, ok := value.(string); ok {
		return strings.ToLower(text)
	}
	return value
}

func uppercaseTransform(value any, _ any) any {
	if text, ok := value.(string); ok {
		return strings.ToUpper(text)
	}
	return value
}

func toBooleanTransform(value any, _ any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case bool:
		return typed
	case string:
		switch strings.TrimSpace(strings.ToLower(typed)) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		default:
			return nil
		}
	default:
		number, ok := toFloatValue(value)
		if !ok {
			return nil
		}
		return number != 0
	}
}

func toFloatValue(value any) (float64, bool) {
	var number float64
	switch typed := value.(type) {
	case int:
		number = float64(typed)
	case int8:
		number = float64(typed)
	case int16:
		number = float64(typed)
	case int32:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case uint:
		number = float64(typed)
	case uint8:
		number = float64(typed)
	case uint16:
		number = float64(typed)
	case uint32:
		number = float64(typed)
	case uint64:
		number = float64(typed)
	case float32:
		number = float64(typed)
	case float64:
		number = typed
	case bool:
		if typed {
			number = 1
		}
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		number = parsed
	case string:
		candidate := strings.TrimSpace(typed)
		if candidate == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(candidate, 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	default:
		return 0, false
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}
