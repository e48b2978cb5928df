package booking

import (
	"strings"

	"salesops_backend/internal/aliases"
)

// Attribution is the resolved who-and-where of a booking.
type Attribution struct {
	// SetterRaw is the free-text setter name as determined from the payload:
	// the explicit setter field when present, otherwise the name a social
	// handle lookup produced. This is what gets persisted on the event;
	// alias display normalization is a read-time step.
	SetterRaw string
	// SetterName is the canonical display name after alias resolution, ""
	// when no setter could be determined at all.
	SetterName string

	Source string

	UTM map[string]string

	// Responses is the flattened union of form responses and platform user
	// fields, response values winning on key collision.
	Responses map[string]any
}

var setterKeys = []string{"utm_setter", "setter", "setter-name", "setter_name"}

var handleKeys = []string{"instagram", "ig_handle", "ig-handle", "handle"}

// ResolveAttribution derives setter, source and UTM parameters from the raw
// payload maps. Resolution is pure; alias tables arrive as a snapshot.
//
// Setter precedence: explicit setter fields in responses, then user fields,
// then tracking metadata; failing those, a social-handle field matched
// against the alias table. Unknown explicit setters pass through so manual
// cleanup stays possible downstream.
func ResolveAttribution(responses, userFields, metadata map[string]any, snap aliases.Snapshot) Attribution {
	flatResponses := flattenValues(responses)
	flatUserFields := flattenValues(userFields)
	flatMetadata := flattenValues(metadata)

	merged := make(map[string]any, len(flatUserFields)+len(flatResponses))
	for k, v := range flatUserFields {
		merged[k] = v
	}
	for k, v := range flatResponses {
		merged[k] = v
	}

	utm := collectUTM(flatMetadata)
	for k, v := range collectUTM(merged) {
		utm[k] = v
	}

	attr := Attribution{UTM: utm, Responses: merged}

	raw := firstString(setterKeys, flatResponses, flatUserFields, flatMetadata)
	if raw != "" {
		attr.SetterRaw = raw
		attr.SetterName = snap.ResolveSetter(raw)
	} else if handle := firstString(handleKeys, flatResponses, flatUserFields, flatMetadata); handle != "" {
		if canonical, ok := snap.ResolveHandle(aliases.NormalizeHandle(handle)); ok {
			attr.SetterRaw = canonical
			attr.SetterName = canonical
		}
	}

	attr.Source = firstString([]string{"source"}, merged, flatMetadata)
	if attr.Source == "" {
		attr.Source = utm["utm_source"]
	}

	return attr
}

// flattenValues unwraps the {label, value, isHidden} envelopes some platforms
// put around form answers, keyed by lowercased field name.
func flattenValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = unwrapValue(v)
	}
	return out
}

func unwrapValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return unwrapValue(inner)
		}
	}
	return v
}

func collectUTM(in map[string]any) map[string]string {
	out := make(map[string]string)
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		if !strings.HasPrefix(key, "utm_") {
			continue
		}
		if s := stringValue(v); s != "" {
			out[key] = s
		}
	}
	return out
}

// firstString scans the key candidates against each map in priority order.
func firstString(keys []string, maps ...map[string]any) string {
	for _, m := range maps {
		for _, key := range keys {
			if s := stringValue(m[key]); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
