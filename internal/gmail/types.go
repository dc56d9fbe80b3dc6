package gmail

import (
	"fmt"

	"github.com/transcon/cmsledger/internal/ledger"
)

// EmailMessage represents an email to be sent
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// Outgoing is one case email handed to Sender.
type Outgoing struct {
	To        string
	Cc        []string
	Subject   string
	Body      string
	IsHTML    bool
	CaseID    string
	ProcessID string
	EmailType string
}

// SendResult describes a delivered and recorded email.
type SendResult struct {
	MessageID string
	Entry     ledger.PendingEntry
}

// UntrackedSendError is returned when Gmail accepted the email but recording
// it as pending failed. The email was delivered; the operator has to record
// it by hand.
type UntrackedSendError struct {
	MessageID string
	CaseID    string
	Recipient string
	Err       error
}

// Error implements the error interface
func (e *UntrackedSendError) Error() string {
	return fmt.Sprintf("email %s for case %s was sent to %s but not recorded as pending (record it with 'cmsledger record'): %v",
		e.MessageID, e.CaseID, e.Recipient, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *UntrackedSendError) Unwrap() error {
	return e.Err
}
