package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"simple tag", "<b>bold</b>", "bold"},
		{"script tag", "<script>alert('x')</script>ok", "alert('x')ok"},
		{"encoded tag", "&lt;img src=x&gt;note", "note"},
		{"entities", "a &amp; b &quot;c&quot;", `a & b "c"`},
		{"whitespace", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextPtr(t *testing.T) {
	if got := TextPtr(nil); got != nil {
		t.Errorf("TextPtr(nil) = %v, want nil", got)
	}
	in := "<i>reason</i>"
	if got := TextPtr(&in); got == nil || *got != "reason" {
		t.Errorf("TextPtr = %v, want sanitized value", got)
	}
}

func TestRedactHeaders(t *testing.T) {
	in := map[string]string{
		"Content-Type":               "application/json",
		"Authorization":              "Bearer token",
		"Calendly-Webhook-Signature": "t=1,v1=abc",
		"X-Cal-Signature-256":        "deadbeef",
		"User-Agent":                 "Calendly",
	}

	out := RedactHeaders(in)

	if out["Content-Type"] != "application/json" || out["User-Agent"] != "Calendly" {
		t.Errorf("harmless headers changed: %v", out)
	}
	for _, key := range []string{"Authorization", "Calendly-Webhook-Signature", "X-Cal-Signature-256"} {
		if out[key] != "[REDACTED]" {
			t.Errorf("%s = %q, want redacted", key, out[key])
		}
	}
	if in["Authorization"] != "Bearer token" {
		t.Error("input map must not be mutated")
	}
	if RedactHeaders(nil) != nil {
		t.Error("nil input should stay nil")
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"pat@example.test", "p***@example.test"},
		{"ab@x.test", "a***@x.test"},
		{"a@x.test", "a@x.test"}, // too short to mask
		{"not-an-email", "not-an-email"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
