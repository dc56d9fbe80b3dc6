package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/logging"
	"github.com/transcon/cmsledger/internal/tracker"
)

// MessageSender delivers one email and returns its message ID.
type MessageSender interface {
	SendEmail(ctx context.Context, msg *EmailMessage) (string, error)
}

// Recorder records a delivered email as pending.
type Recorder interface {
	RecordSent(ctx context.Context, sent tracker.SentEmail) (ledger.PendingEntry, error)
}

// Sender delivers case emails and records each one before reporting success.
type Sender struct {
	client    MessageSender
	recorder  Recorder
	testMode  bool
	testEmail string
	logger    *slog.Logger
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithTestMode redirects every email to testEmail.
func WithTestMode(testEmail string) SenderOption {
	return func(s *Sender) {
		s.testMode = true
		s.testEmail = strings.TrimSpace(testEmail)
	}
}

// WithSenderLogger sets the logger.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSender returns a Sender.
func NewSender(client MessageSender, recorder Recorder, opts ...SenderOption) *Sender {
	s := &Sender{client: client, recorder: recorder, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "sender")
	return s
}

// TestMode reports whether emails are redirected.
func (s *Sender) TestMode() bool { return s.testMode }

// Send delivers out and records it as pending. A nil error means both
// happened. When the delivery succeeded but recording failed the error is an
// *UntrackedSendError carrying the message ID.
func (s *Sender) Send(ctx context.Context, out Outgoing) (SendResult, error) {
	to := strings.TrimSpace(out.To)
	if to == "" {
		return SendResult{}, fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(out.CaseID) == "" {
		return SendResult{}, fmt.Errorf("case ID is required")
	}
	if s.testMode && s.testEmail == "" {
		return SendResult{}, fmt.Errorf("test mode is on but no test email is configured")
	}

	msg := &EmailMessage{
		To:      []string{to},
		Cc:      out.Cc,
		Subject: out.Subject,
		Body:    out.Body,
		IsHTML:  out.IsHTML,
	}
	sent := tracker.SentEmail{
		ProcessID: out.ProcessID,
		Recipient: to,
		CaseID:    out.CaseID,
		EmailType: out.EmailType,
	}
	if s.testMode {
		msg.To = []string{s.testEmail}
		msg.Cc = nil
		msg.Subject = fmt.Sprintf("[TEST MODE - Original To: %s] %s", to, out.Subject)
		sent.Recipient = s.testEmail
		sent.IntendedRecipient = to
		sent.TestMode = true
	}

	// Validate before delivery so a bad record never follows a real send.
	probe := sent
	if probe.EmailType == "" {
		probe.EmailType = tracker.DefaultEmailType
	}
	if err := probe.Validate(); err != nil {
		return SendResult{}, err
	}

	messageID, err := s.client.SendEmail(ctx, msg)
	if err != nil {
		return SendResult{}, err
	}

	entry, err := s.recorder.RecordSent(ctx, sent)
	if err != nil {
		s.logger.Error("email sent but not recorded as pending",
			slog.String("message_id", messageID),
			logging.CaseID(out.CaseID),
			logging.Recipient(sent.Recipient),
			logging.Err(err))
		return SendResult{}, &UntrackedSendError{
			MessageID: messageID,
			CaseID:    out.CaseID,
			Recipient: sent.Recipient,
			Err:       err,
		}
	}

	s.logger.Info("email sent",
		slog.String("message_id", messageID),
		logging.EntryID(entry.ID),
		logging.CaseID(entry.CaseID),
		logging.TestMode(entry.TestMode))
	return SendResult{MessageID: messageID, Entry: entry}, nil
}
