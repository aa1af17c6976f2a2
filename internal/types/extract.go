package types

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// FIELD EXTRACTION UTILITIES
// =============================================================================
//
// Model output is decoded into map[string]interface{} and each field is pulled
// out independently, so one malformed field only costs that field's default.
// Values arrive as the encoding/json generic types: string, float64, bool,
// []interface{}, map[string]interface{} or nil.

// ExtractString extracts a string from a decoded JSON value.
// Returns ("", false) for nil, objects and arrays.
func ExtractString(arg interface{}) (string, bool) {
	switch v := arg.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// ExtractBool extracts a boolean. Accepts real booleans and the strings
// "true"/"false"/"yes"/"no" in any case.
func ExtractBool(arg interface{}) (bool, bool) {
	switch v := arg.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

// ExtractFloat64 extracts a number. Accepts numbers and numeric strings.
func ExtractFloat64(arg interface{}) (float64, bool) {
	switch v := arg.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ExtractStringList extracts a list of strings. Non-string elements are
// rendered with fmt; a bare string becomes a one-element list.
func ExtractStringList(arg interface{}) ([]string, bool) {
	switch v := arg.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out, true
	case []string:
		return append([]string{}, v...), true
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, true
		}
		return []string{v}, true
	default:
		return nil, false
	}
}

// FieldString returns obj[key] as a string, or def.
func FieldString(obj map[string]interface{}, key, def string) string {
	if s, ok := ExtractString(obj[key]); ok {
		return s
	}
	return def
}

// FieldBool returns obj[key] as a bool, or def.
func FieldBool(obj map[string]interface{}, key string, def bool) bool {
	if b, ok := ExtractBool(obj[key]); ok {
		return b
	}
	return def
}

// FieldFloat64 returns obj[key] as a float64, or def.
func FieldFloat64(obj map[string]interface{}, key string, def float64) float64 {
	if f, ok := ExtractFloat64(obj[key]); ok {
		return f
	}
	return def
}

// FieldStringList returns obj[key] as a string list, or an empty list.
func FieldStringList(obj map[string]interface{}, key string) []string {
	if l, ok := ExtractStringList(obj[key]); ok {
		return l
	}
	return []string{}
}
