// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for cmsledger.
//
// # Metrics
//
// Ledger:
//   - ledger_pending_recorded_total: sent emails recorded as pending, by test_mode and status
//   - ledger_cms_notes_total: CMS note attempts by result (added, rejected, commit_failed)
//   - ledger_pending_entries: entries still pending after the last reconcile run
//   - ledger_reconcile_runs_total / ledger_reconcile_duration_seconds
//
// External APIs:
//   - external_api_operations_total: Gmail and CMS calls by service, operation, status
//   - external_api_operation_duration_seconds
//
// Server:
//   - http_requests_total / http_request_duration_seconds
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds
//
// Recipient addresses and case ids never become metric labels.
//
// # Tracing
//
// Spans are created for reconcile runs, each CMS note (cms.add_note), Gmail
// sends (gmail.send) and MCP tool invocations (tool.<name>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: cmsledger)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordNote(ctx, instrumentation.NoteResultAdded, false)
package instrumentation
