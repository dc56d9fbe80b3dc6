// Package ledger_tools exposes the CMS note ledger through MCP tools.
//
// Read tools (always registered):
//   - cms_check_pending: list sent emails that still need a CMS note
//   - cms_bulk_stats: session and lifetime send statistics
//
// Write tools (registered only when the server is not read-only):
//   - cms_record_sent: record an email sent outside the tool for one or more cases
//   - cms_add_session_notes: add CMS notes for every pending email
//   - cms_send_email: send a case email through Gmail and record it (requires Gmail)
//
// Example usage:
//
//	cms_record_sent(recipient: "attorney@lawfirm.example", case_id: ["1001", "1002"], email_type: "follow_up")
//	cms_add_session_notes()
package ledger_tools
