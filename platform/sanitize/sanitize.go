// Package sanitize provides text sanitization and redaction utilities.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
// This is a defense-in-depth measure; frontend should also escape output.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	// Decode common HTML entities
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a string for safe text storage by stripping HTML
// and normalizing whitespace. Use for user-provided text fields like
// notes and cancellation reasons.
func Text(s string) string {
	return StripHTML(s)
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

const redactedValue = "[REDACTED]"

// sensitiveHeaders are header names whose values must never reach the audit log.
var sensitiveHeaders = map[string]struct{}{
	"authorization":              {},
	"cookie":                     {},
	"set-cookie":                 {},
	"x-api-key":                  {},
	"x-webhook-api-key":          {},
	"calendly-webhook-signature": {},
	"x-cal-signature-256":        {},
	"proxy-authorization":        {},
}

// RedactHeaders returns a copy of the header map with secret-bearing values
// replaced, suitable for persisting on audit rows.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		if _, sensitive := sensitiveHeaders[strings.ToLower(key)]; sensitive {
			out[key] = redactedValue
			continue
		}
		out[key] = value
	}
	return out
}

// MaskEmail obscures the local part of an email address for log output,
// keeping the first character and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + "***" + email[at:]
}
