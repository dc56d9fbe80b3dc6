package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transcon/cmsledger/internal/ledger"
)

func TestNoteText(t *testing.T) {
	tests := []struct {
		name  string
		entry ledger.PendingEntry
		want  string
	}{
		{
			name:  "follow up with hyphen",
			entry: ledger.PendingEntry{EmailType: "follow-up", Recipient: "attorney@lawfirm.example"},
			want:  "FOLLOW UP EMAIL SENT TO ATTORNEY@LAWFIRM.EXAMPLE",
		},
		{
			name:  "follow up with underscore",
			entry: ledger.PendingEntry{EmailType: "follow_up", Recipient: "a@b.example"},
			want:  "FOLLOW UP EMAIL SENT TO A@B.EXAMPLE",
		},
		{
			name:  "status request",
			entry: ledger.PendingEntry{EmailType: "status_request", Recipient: "clerk@court.example"},
			want:  "STATUS REQUEST SENT TO CLERK@COURT.EXAMPLE",
		},
		{
			name:  "general",
			entry: ledger.PendingEntry{EmailType: "general", Recipient: "a@b.example"},
			want:  "EMAIL SENT TO A@B.EXAMPLE",
		},
		{
			name:  "other type",
			entry: ledger.PendingEntry{EmailType: "bulk_reminder", Recipient: "a@b.example"},
			want:  "BULK REMINDER SENT TO A@B.EXAMPLE",
		},
		{
			name: "test mode redirected",
			entry: ledger.PendingEntry{
				EmailType:         "test_bulk_status_request",
				Recipient:         "qa@transcon.example",
				IntendedRecipient: "attorney@lawfirm.example",
				TestMode:          true,
			},
			want: "🧪 TEST MODE: BULK STATUS REQUEST - QA@TRANSCON.EXAMPLE (INTENDED FOR ATTORNEY@LAWFIRM.EXAMPLE)",
		},
		{
			name:  "test mode without redirect",
			entry: ledger.PendingEntry{EmailType: "follow-up", Recipient: "qa@transcon.example", TestMode: true},
			want:  "🧪 TEST MODE: FOLLOW UP - QA@TRANSCON.EXAMPLE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NoteText(tt.entry))
		})
	}
}

func TestNoteText_MarkerOnlyInTestMode(t *testing.T) {
	for _, emailType := range []string{"follow-up", "status_request", "test_bulk_status_request", ""} {
		prod := NoteText(ledger.PendingEntry{EmailType: emailType, Recipient: "a@b.example"})
		test := NoteText(ledger.PendingEntry{EmailType: emailType, Recipient: "a@b.example", TestMode: true})
		assert.False(t, strings.Contains(prod, TestModeMarker), "production note %q", prod)
		assert.True(t, strings.HasPrefix(test, TestModeMarker), "test note %q", test)
	}
}
