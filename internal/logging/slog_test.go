package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "json")
	logger.Debug("hidden")
	logger.Info("shown", CaseID("1001"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"case_id":"1001"`) {
		t.Errorf("expected JSON case_id attribute, got %s", out)
	}

	buf.Reset()
	New(&buf, true, "text").Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text debug record, got %s", buf.String())
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	WithComponent(WithTool(WithOperation(base, "reconcile"), "cms_add_session_notes"), "reconciler").Info("run")

	out := buf.String()
	for _, want := range []string{"operation=reconcile", "tool=cms_add_session_notes", "component=reconciler"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("ledger.append"), KeyOperation, "ledger.append"},
		{"tool", Tool("cms_check_pending"), KeyTool, "cms_check_pending"},
		{"case", CaseID("1001"), KeyCaseID, "1001"},
		{"entry", EntryID("5f1c"), KeyEntryID, "5f1c"},
		{"email type", EmailType("follow-up"), KeyEmailType, "follow-up"},
		{"test mode", TestMode(true), KeyTestMode, "true"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("cms unavailable"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "cms unavailable" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "cms unavailable")
	}

	// Empty Group has empty key
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email    string
		hasValue bool
	}{
		{"attorney@lawfirm.example", true},
		{"clerk@court.example", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if !tt.hasValue {
				if result != "" {
					t.Errorf("AnonymizeEmail(%q) = %q, want empty string", tt.email, result)
				}
				return
			}
			// "recipient:" + 16 hex chars
			if len(result) != 26 {
				t.Errorf("AnonymizeEmail(%q) length = %d, want 26", tt.email, len(result))
			}
			if !strings.HasPrefix(result, "recipient:") {
				t.Errorf("AnonymizeEmail(%q) should start with 'recipient:', got %q", tt.email, result)
			}
		})
	}

	if AnonymizeEmail("Clerk@Court.example ") != AnonymizeEmail("clerk@court.example") {
		t.Error("AnonymizeEmail should ignore case and surrounding space")
	}
	if AnonymizeEmail("a@court.example") == AnonymizeEmail("b@court.example") {
		t.Error("Different emails should produce different hashes")
	}
}

func TestRecipient(t *testing.T) {
	attr := Recipient("attorney@lawfirm.example")
	if attr.Key != KeyRecipientHash {
		t.Errorf("Recipient key = %q, want %q", attr.Key, KeyRecipientHash)
	}
	if strings.Contains(attr.Value.String(), "lawfirm") {
		t.Errorf("Recipient leaked the address: %q", attr.Value.String())
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"attorney@lawfirm.example", "lawfirm.example"},
		{"invalid", ""},
		{"", ""},
		{"@", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	attr := Domain("attorney@lawfirm.example")
	if attr.Key != "recipient_domain" {
		t.Errorf("Domain key = %q, want %q", attr.Key, "recipient_domain")
	}
	if attr.Value.String() != "lawfirm.example" {
		t.Errorf("Domain value = %q, want %q", attr.Value.String(), "lawfirm.example")
	}
}
