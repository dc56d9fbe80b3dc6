package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("cms_check_pending")
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.Complete(true, nil)
	if !ti.Success || ti.Error != "" || ti.Status() != StatusSuccess {
		t.Errorf("unexpected success state: %+v", ti)
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}

	failed := NewToolInvocation("cms_add_session_notes").Complete(false, errors.New("cms unavailable"))
	if failed.Success || failed.Error != "cms unavailable" || failed.Status() != StatusError {
		t.Errorf("unexpected failure state: %+v", failed)
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("cms_bulk_stats").WithSpanContext(context.Background())
	if ti.TraceID != "" || ti.SpanID != "" {
		t.Errorf("expected empty ids, got %q %q", ti.TraceID, ti.SpanID)
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})

	al.LogToolInvocation(NewToolInvocation("cms_check_pending").Complete(true, nil))
	al.LogToolInvocation(NewToolInvocation("cms_record_sent").Complete(false, errors.New("bad input")))

	out := buf.String()
	if !strings.Contains(out, "tool_executed") || !strings.Contains(out, "tool_failed") {
		t.Errorf("missing audit messages: %s", out)
	}
	if !strings.Contains(out, "component=audit") {
		t.Errorf("missing component attribute: %s", out)
	}
}

func TestAuditLogger_LogNoteAttempt_PII(t *testing.T) {
	attempt := &NoteAttempt{
		EntryID:   "5f1c",
		CaseID:    "1001",
		Recipient: "attorney@lawfirm.example",
		Result:    NoteResultAdded,
	}

	logger, buf := newBufferLogger()
	NewAuditLogger(logger, AuditLoggingConfig{Enabled: true}).LogNoteAttempt(attempt)
	out := buf.String()
	if strings.Contains(out, "attorney@lawfirm.example") {
		t.Errorf("recipient leaked without IncludePII: %s", out)
	}
	if !strings.Contains(out, "recipient_domain=lawfirm.example") || !strings.Contains(out, "cms_note_added") {
		t.Errorf("unexpected output: %s", out)
	}

	logger, buf = newBufferLogger()
	NewAuditLogger(logger, AuditLoggingConfig{Enabled: true, IncludePII: true}).LogNoteAttempt(attempt)
	if !strings.Contains(buf.String(), "recipient=attorney@lawfirm.example") {
		t.Errorf("expected full recipient with IncludePII: %s", buf.String())
	}
}

func TestAuditLogger_LogNoteAttempt_Failure(t *testing.T) {
	logger, buf := newBufferLogger()
	NewAuditLogger(logger, AuditLoggingConfig{Enabled: true}).LogNoteAttempt(&NoteAttempt{
		EntryID: "5f1c",
		CaseID:  "1001",
		Result:  NoteResultRejected,
		Error:   "case not found",
	})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "cms_note_failed") {
		t.Errorf("expected warning record: %s", out)
	}
	if !strings.Contains(out, `error="case not found"`) {
		t.Errorf("missing error attribute: %s", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation("x").Complete(true, nil))
	al.LogNoteAttempt(&NoteAttempt{Result: NoteResultAdded})
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogNoteAttempt(&NoteAttempt{})
}
