package epr

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order, mirroring original_source's parse_date.
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", "2006-01-02T15:04:05Z07:00", time.RFC3339}

// ParseDate parses an EPR field of unknown shape (a date string in one of
// a few common layouts) into a UTC time, mirroring original_source's
// parse_date. ok is false when value is empty or unparseable.
func ParseDate(value any) (t time.Time, ok bool) {
	if value == nil {
		return time.Time{}, false
	}
	text := fmt.Sprintf("%v", value)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// FieldString returns GetField's result coerced to a trimmed string, or ""
// if absent or not string-like.
func FieldString(payload map[string]any, keys ...string) string {
	v := GetField(payload, keys...)
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return strings.TrimSpace(s)
}

// FieldBool coerces GetField's result to a bool, mirroring Python's
// truthiness test in original_source's bool(get_field(...)).
func FieldBool(payload map[string]any, keys ...string) bool {
	v := GetField(payload, keys...)
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && strings.ToLower(b) != "false"
	default:
		return v != nil
	}
}

// unwrapSingleResource mirrors original_source's _unwrap_single_resource:
// a bare resource, the first item of a list, or the first entry of a FHIR
// Bundle are all acceptable single-resource shapes.
func unwrapSingleResource(data any) map[string]any {
	if data == nil {
		return nil
	}
	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
		if m, ok := v[0].(map[string]any); ok {
			return m
		}
		return nil
	case map[string]any:
		if entries, ok := v["entry"]; ok {
			list, _ := entries.([]any)
			if len(list) == 0 {
				return nil
			}
			entry, _ := list[0].(map[string]any)
			if resource, ok := entry["resource"].(map[string]any); ok {
				return resource
			}
			return entry
		}
		return v
	default:
		return nil
	}
}

// unwrapList mirrors original_source's _unwrap_list.
func unwrapList(data any) []map[string]any {
	if data == nil {
		return nil
	}
	switch v := data.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		if entries, ok := v["entry"]; ok {
			list, _ := entries.([]any)
			out := make([]map[string]any, 0, len(list))
			for _, e := range list {
				entry, _ := e.(map[string]any)
				if resource, ok := entry["resource"].(map[string]any); ok {
					out = append(out, resource)
				} else if entry != nil {
					out = append(out, entry)
				}
			}
			return out
		}
		return []map[string]any{v}
	default:
		return nil
	}
}

// GetField returns the first non-nil value among keys, mirroring
// original_source's get_field helper for FHIR's varying key names.
func GetField(payload map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
