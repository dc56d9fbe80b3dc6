package instrumentation

import "testing"

func TestExtractRecipientDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"clerk@court.example", "court.example"},
		{"attorney@sub.lawfirm.example", "sub.lawfirm.example"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"@", "unknown"},
		{"user@", "unknown"},
		{"@domain.com", "domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractRecipientDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractRecipientDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEmailType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"follow-up", EmailTypeFollowUp},
		{"follow_up", EmailTypeFollowUp},
		{"Follow-Up", EmailTypeFollowUp},
		{"status_request", EmailTypeStatusRequest},
		{" test ", EmailTypeTest},
		{"affidavit_filed", EmailTypeOther},
		{"", EmailTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeEmailType(tt.in); got != tt.want {
				t.Errorf("NormalizeEmailType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
