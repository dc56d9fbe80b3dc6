package instrumentation

import "strings"

// Cardinality helpers for metric labels. Recipient addresses and case ids
// never become label values; email types are folded into a fixed set.

// ExtractRecipientDomain returns the domain of an email address, or
// "unknown" when the address has no usable domain.
//
// Example:
//
//	ExtractRecipientDomain("clerk@court.example")  // "court.example"
//	ExtractRecipientDomain("invalid")              // "unknown"
func ExtractRecipientDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Known email types. Anything else is reported as EmailTypeOther.
const (
	EmailTypeFollowUp      = "follow_up"
	EmailTypeStatusRequest = "status_request"
	EmailTypeTest          = "test"
	EmailTypeOther         = "other"
)

// NormalizeEmailType maps a caller supplied email type to a bounded label.
func NormalizeEmailType(emailType string) string {
	t := strings.ToLower(strings.TrimSpace(emailType))
	t = strings.ReplaceAll(t, "-", "_")
	switch t {
	case EmailTypeFollowUp, EmailTypeStatusRequest, EmailTypeTest:
		return t
	default:
		return EmailTypeOther
	}
}

// Operation names used in metrics and spans.
const (
	OperationSend      = "send"
	OperationAddNote   = "add_note"
	OperationRecord    = "record"
	OperationReconcile = "reconcile"
)
