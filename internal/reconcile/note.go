package reconcile

import (
	"fmt"
	"strings"

	"github.com/transcon/cmsledger/internal/ledger"
)

// TestModeMarker starts every note written for a test-mode email.
const TestModeMarker = "🧪 TEST MODE"

// NoteText returns the CMS note body for a pending entry.
//
//	follow-up          FOLLOW UP EMAIL SENT TO <RECIPIENT>
//	status_request     STATUS REQUEST SENT TO <RECIPIENT>
//	other types        <TYPE> SENT TO <RECIPIENT>
//	test mode          🧪 TEST MODE: <TYPE> - <RECIPIENT> (INTENDED FOR <ADDRESS>)
func NoteText(e ledger.PendingEntry) string {
	recipient := strings.ToUpper(e.Recipient)

	if e.TestMode {
		if e.IntendedRecipient != "" {
			recipient = fmt.Sprintf("%s (INTENDED FOR %s)", recipient, strings.ToUpper(e.IntendedRecipient))
		}
		return fmt.Sprintf("%s: %s - %s", TestModeMarker, typeLabel(e.EmailType), recipient)
	}

	switch normalizeType(e.EmailType) {
	case "follow_up":
		return "FOLLOW UP EMAIL SENT TO " + recipient
	case "status_request":
		return "STATUS REQUEST SENT TO " + recipient
	case "", "general":
		return "EMAIL SENT TO " + recipient
	default:
		return typeLabel(e.EmailType) + " SENT TO " + recipient
	}
}

func normalizeType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "-", "_")
}

// typeLabel turns "test_bulk_status_request" into "BULK STATUS REQUEST".
func typeLabel(t string) string {
	t = strings.TrimPrefix(normalizeType(t), "test_")
	if t == "" || t == "general" {
		return "EMAIL"
	}
	return strings.ToUpper(strings.ReplaceAll(t, "_", " "))
}
