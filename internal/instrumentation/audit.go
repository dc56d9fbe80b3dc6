package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/transcon/cmsledger/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging.
type ToolInvocation struct {
	Tool string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID, ti.SpanID = spanIDs(ctx)
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// NoteAttempt captures one attempt to add a CMS note for a pending entry.
//
// Recipient is PII. LogAttrs hashes it unless the audit logger is
// configured to include PII.
type NoteAttempt struct {
	EntryID   string
	CaseID    string
	Recipient string
	TestMode  bool

	// Result is one of NoteResultAdded, NoteResultRejected, NoteResultCommitFailed.
	Result   string
	Error    string
	Duration time.Duration

	TraceID string
}

// LogAttrs returns the audit attributes for the attempt.
func (na *NoteAttempt) LogAttrs(includePII bool) []slog.Attr {
	recipient := logging.AnonymizeEmail(na.Recipient)
	if includePII {
		recipient = na.Recipient
	}
	attrs := []slog.Attr{
		slog.String("entry_id", na.EntryID),
		slog.String("case_id", na.CaseID),
		slog.String("recipient", recipient),
		slog.String("recipient_domain", ExtractRecipientDomain(na.Recipient)),
		slog.Bool("test_mode", na.TestMode),
		slog.String("result", na.Result),
		slog.Duration("duration", na.Duration),
	}
	if na.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", na.TraceID))
	}
	if na.Error != "" {
		attrs = append(attrs, slog.String("error", na.Error))
	}
	return attrs
}

// AuditLogger writes audit records for tool calls and CMS note attempts.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With("component", "audit"),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a completed tool invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	args := attrsToArgs(ti.LogAttrs())
	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}

// LogNoteAttempt logs the outcome of one CMS note attempt.
func (al *AuditLogger) LogNoteAttempt(na *NoteAttempt) {
	if al == nil || !al.enabled {
		return
	}
	args := attrsToArgs(na.LogAttrs(al.includePII))
	if na.Result == NoteResultAdded {
		al.logger.Info("cms_note_added", args...)
	} else {
		al.logger.Warn("cms_note_failed", args...)
	}
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

func spanIDs(ctx context.Context) (string, string) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
