// Package args reads typed values out of a command's ArgumentSet.
//
// Missing, null or mistyped values fall back to the caller's default. Numeric
// values of any width (including json.Number) coerce to the requested integer
// type. Only Require* accessors fail, and they do so before the caller has
// performed any side effect.
package args

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/gate4ai/hostbridge/shared/schema"
)

var (
	ErrMissing  = errors.New("required argument missing")
	ErrMistyped = errors.New("argument has wrong type")
)

// Get returns the value stored under key converted to T, or def.
// Supported T: int, int32, int64, float64, bool, string, []string.
func Get[T any](a schema.ArgumentSet, key string, def T) T {
	raw, ok := a[key]
	if !ok || raw == nil {
		return emptyIfNil(def)
	}
	var out any
	switch any(def).(type) {
	case int64:
		v, ok := toInt64(raw)
		if !ok {
			return def
		}
		out = v
	case int:
		v, ok := toInt64(raw)
		if !ok {
			return def
		}
		out = int(v)
	case int32:
		v, ok := toInt64(raw)
		if !ok || v > math.MaxInt32 || v < math.MinInt32 {
			return def
		}
		out = int32(v)
	case float64:
		v, ok := toFloat64(raw)
		if !ok {
			return def
		}
		out = v
	case bool:
		v, ok := raw.(bool)
		if !ok {
			return def
		}
		out = v
	case string:
		v, ok := raw.(string)
		if !ok {
			return def
		}
		out = v
	case []string:
		v, ok := toStringList(raw)
		if !ok {
			return emptyIfNil(def)
		}
		out = v
	default:
		v, ok := raw.(T)
		if !ok {
			return def
		}
		return v
	}
	return out.(T)
}

// Int64 is Get specialised for the common 64-bit case.
func Int64(a schema.ArgumentSet, key string, def int64) int64 {
	return Get(a, key, def)
}

// StringList returns the list under key, or an empty list.
func StringList(a schema.ArgumentSet, key string) []string {
	return Get[[]string](a, key, nil)
}

// OptionalString returns nil when key is absent, null or not a string.
func OptionalString(a schema.ArgumentSet, key string) *string {
	v, ok := a[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// RequireString fails with ErrMissing for absent/null values and ErrMistyped
// for non-string values.
func RequireString(a schema.ArgumentSet, key string) (string, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrMistyped, key, raw)
	}
	return v, nil
}

// Decode parses a JSON object into an ArgumentSet keeping numbers exact.
// Empty or null input yields an empty set.
func Decode(data []byte) (schema.ArgumentSet, error) {
	set := schema.ArgumentSet{}
	if len(data) == 0 || string(data) == "null" {
		return set, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if set == nil {
		set = schema.ArgumentSet{}
	}
	return set, nil
}

func emptyIfNil[T any](def T) T {
	if l, ok := any(def).([]string); ok && l == nil {
		return any([]string{}).(T)
	}
	return def
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return floatToInt64(f)
		}
	}
	return 0, false
}

// floatToInt64 truncates f, rejecting values outside the int64 range.
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(raw); ok {
		return float64(i), true
	}
	return 0, false
}

func toStringList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
