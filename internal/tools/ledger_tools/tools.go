package ledger_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/reconcile"
	"github.com/transcon/cmsledger/internal/server"
	"github.com/transcon/cmsledger/internal/tools/batch"
	"github.com/transcon/cmsledger/internal/tools/common"
	"github.com/transcon/cmsledger/internal/tracker"
)

// RegisterLedgerTools registers the ledger tools with the MCP server. Write
// tools are skipped when readOnly is set.
func RegisterLedgerTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	checkPendingTool := mcp.NewTool("cms_check_pending",
		mcp.WithDescription("List sent emails that do not have a CMS note yet, oldest first"),
	)
	s.AddTool(checkPendingTool, common.InstrumentedToolHandler("cms_check_pending", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckPending(ctx, sc)
		}))

	bulkStatsTool := mcp.NewTool("cms_bulk_stats",
		mcp.WithDescription("Show emails sent this session and in total, pending and processed counts, and test mode state"),
	)
	s.AddTool(bulkStatsTool, common.InstrumentedToolHandler("cms_bulk_stats", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBulkStats(ctx, sc)
		}))

	if readOnly {
		return nil
	}

	recordSentTool := mcp.NewTool("cms_record_sent",
		mcp.WithDescription("Record an email that was already sent so it gets a CMS note on the next reconcile"),
		mcp.WithString("recipient",
			mcp.Required(),
			mcp.Description("Email address the message was delivered to"),
		),
		mcp.WithString("case_id",
			mcp.Required(),
			mcp.Description("Case ID (string) or array of case IDs; one pending entry is recorded per case"),
		),
		mcp.WithString("process_id",
			mcp.Description("Process ID from the case sheet"),
		),
		mcp.WithString("email_type",
			mcp.Description("Kind of email, e.g. 'follow_up' or 'status_request' (default: 'general')"),
		),
		mcp.WithBoolean("test_mode",
			mcp.Description("Whether the email was sent in test mode (default: server test mode)"),
		),
		mcp.WithString("intended_recipient",
			mcp.Description("Original recipient of a test-mode email that was redirected"),
		),
	)
	s.AddTool(recordSentTool, common.InstrumentedToolHandler("cms_record_sent", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRecordSent(ctx, request, sc)
		}))

	addNotesTool := mcp.NewTool("cms_add_session_notes",
		mcp.WithDescription("Add a CMS note for every pending email and move confirmed ones to the processed log"),
	)
	s.AddTool(addNotesTool, common.InstrumentedToolHandler("cms_add_session_notes", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddSessionNotes(ctx, sc)
		}))

	if sc.Sender() != nil {
		sendTool := mcp.NewTool("cms_send_email",
			mcp.WithDescription("Send a case email through Gmail and record it as pending. In test mode the email goes to the test address."),
			mcp.WithString("to",
				mcp.Required(),
				mcp.Description("Recipient email address"),
			),
			mcp.WithString("subject",
				mcp.Required(),
				mcp.Description("Email subject"),
			),
			mcp.WithString("body",
				mcp.Required(),
				mcp.Description("Email body"),
			),
			mcp.WithString("case_id",
				mcp.Required(),
				mcp.Description("Case ID the email belongs to"),
			),
			mcp.WithString("process_id",
				mcp.Description("Process ID from the case sheet"),
			),
			mcp.WithString("email_type",
				mcp.Description("Kind of email (default: 'general')"),
			),
			mcp.WithBoolean("isHTML",
				mcp.Description("Whether the body is HTML (default: false)"),
			),
		)
		s.AddTool(sendTool, common.InstrumentedToolHandler("cms_send_email", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleSendEmail(ctx, request, sc)
			}))
	}

	return nil
}

func handleCheckPending(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	pending, err := sc.Reporter().Pending(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read pending emails: %v", err)), nil
	}
	if len(pending) == 0 {
		return mcp.NewToolResultText("All emails have CMS notes!"), nil
	}
	return jsonResult(map[string]interface{}{
		"pending_count": len(pending),
		"pending":       pending,
	})
}

func handleBulkStats(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	stats, err := sc.Reporter().Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute statistics: %v", err)), nil
	}
	return jsonResult(stats)
}

func handleRecordSent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	recipient := common.GetStringArg(args, "recipient")
	if recipient == "" {
		return mcp.NewToolResultError("'recipient' field is required"), nil
	}
	caseIDs, err := batch.ParseStringOrArray(args["case_id"], "case_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	template := tracker.SentEmail{
		ProcessID:         common.GetStringArg(args, "process_id"),
		Recipient:         recipient,
		IntendedRecipient: common.GetStringArg(args, "intended_recipient"),
		EmailType:         common.GetStringArg(args, "email_type"),
		TestMode:          common.GetBoolArg(args, "test_mode", sc.Session().TestMode),
	}

	results := batch.Process(caseIDs, func(caseID string) (string, error) {
		sent := template
		sent.CaseID = caseID
		entry, err := sc.Tracker().RecordSent(ctx, sent)
		if err != nil {
			return "", err
		}
		return entry.ID, nil
	})

	summary := batch.Summarize(results)
	if summary.Successful == 0 {
		return mcp.NewToolResultError(batch.FormatResults(results)), nil
	}
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleAddSessionNotes(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	r := sc.Reconciler()
	if r == nil {
		return mcp.NewToolResultError("CMS is not configured; set --cms-url to add notes"), nil
	}

	out, err := r.ProcessPending(ctx)
	if errors.Is(err, reconcile.ErrReconcileInProgress) {
		return mcp.NewToolResultError("A reconcile pass is already running; try again when it finishes"), nil
	}
	if err != nil && out.Attempted == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add CMS notes: %v", err)), nil
	}

	result, jsonErr := jsonResult(out)
	if jsonErr != nil {
		return nil, jsonErr
	}
	if err != nil || out.Failed > 0 {
		result.IsError = true
	}
	return result, nil
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	out := gmail.Outgoing{
		To:        common.GetStringArg(args, "to"),
		Subject:   common.GetStringArg(args, "subject"),
		Body:      common.GetStringArg(args, "body"),
		IsHTML:    common.GetBoolArg(args, "isHTML", false),
		CaseID:    common.GetStringArg(args, "case_id"),
		ProcessID: common.GetStringArg(args, "process_id"),
		EmailType: common.GetStringArg(args, "email_type"),
	}
	for _, field := range []struct{ name, value string }{
		{"to", out.To}, {"subject", out.Subject}, {"body", out.Body}, {"case_id", out.CaseID},
	} {
		if field.value == "" {
			return mcp.NewToolResultError(fmt.Sprintf("'%s' field is required", field.name)), nil
		}
	}

	res, err := sc.Sender().Send(ctx, out)
	if err != nil {
		var untracked *gmail.UntrackedSendError
		if errors.As(err, &untracked) {
			return mcp.NewToolResultError(untracked.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"message_id": res.MessageID,
		"entry_id":   res.Entry.ID,
		"recipient":  res.Entry.Recipient,
		"test_mode":  res.Entry.TestMode,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
