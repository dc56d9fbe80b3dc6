package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrTestMode  = "test_mode"
	attrEmailType = "email_type"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// External API metrics (Gmail, CMS)
	apiOperationsTotal   metric.Int64Counter
	apiOperationDuration metric.Float64Histogram

	// Ledger metrics
	pendingRecordedTotal metric.Int64Counter
	notesTotal           metric.Int64Counter
	pendingEntries       metric.Int64Gauge
	reconcileRunsTotal   metric.Int64Counter
	reconcileDuration    metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the email_type label to ledger metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.apiOperationsTotal, err = meter.Int64Counter(
		"external_api_operations_total",
		metric.WithDescription("Total number of Gmail and CMS API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operations_total counter: %w", err)
	}

	m.apiOperationDuration, err = meter.Float64Histogram(
		"external_api_operation_duration_seconds",
		metric.WithDescription("Gmail and CMS API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operation_duration_seconds histogram: %w", err)
	}

	m.pendingRecordedTotal, err = meter.Int64Counter(
		"ledger_pending_recorded_total",
		metric.WithDescription("Total number of sent emails recorded as pending"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_pending_recorded_total counter: %w", err)
	}

	m.notesTotal, err = meter.Int64Counter(
		"ledger_cms_notes_total",
		metric.WithDescription("CMS note attempts by result"),
		metric.WithUnit("{note}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_cms_notes_total counter: %w", err)
	}

	m.pendingEntries, err = meter.Int64Gauge(
		"ledger_pending_entries",
		metric.WithDescription("Pending entries left after the last reconcile run"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_pending_entries gauge: %w", err)
	}

	m.reconcileRunsTotal, err = meter.Int64Counter(
		"ledger_reconcile_runs_total",
		metric.WithDescription("Total number of reconcile runs by status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_reconcile_runs_total counter: %w", err)
	}

	m.reconcileDuration, err = meter.Float64Histogram(
		"ledger_reconcile_duration_seconds",
		metric.WithDescription("Reconcile run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger_reconcile_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAPIOperation records a call to an external service.
//
// Parameters:
//   - service: ServiceGmail or ServiceCMS
//   - operation: OperationSend, OperationAddNote
//   - status: StatusSuccess or StatusError
//   - duration: Time taken for the call
func (m *Metrics) RecordAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.apiOperationsTotal == nil || m.apiOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.apiOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordPendingRecorded counts one attempt to record a sent email.
func (m *Metrics) RecordPendingRecorded(ctx context.Context, emailType string, testMode bool, status string) {
	if m == nil || m.pendingRecordedTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Bool(attrTestMode, testMode),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrEmailType, NormalizeEmailType(emailType)))
	}

	m.pendingRecordedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNote counts one CMS note attempt. Result is one of NoteResultAdded,
// NoteResultRejected, NoteResultCommitFailed.
func (m *Metrics) RecordNote(ctx context.Context, result string, testMode bool) {
	if m == nil || m.notesTotal == nil {
		return
	}

	m.notesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
		attribute.Bool(attrTestMode, testMode),
	))
}

// RecordReconcileRun records a completed reconcile run and the number of
// entries still pending afterwards.
func (m *Metrics) RecordReconcileRun(ctx context.Context, status string, remaining int, duration time.Duration) {
	if m == nil || m.reconcileRunsTotal == nil || m.reconcileDuration == nil || m.pendingEntries == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.reconcileRunsTotal.Add(ctx, 1, attrs)
	m.reconcileDuration.Record(ctx, duration.Seconds(), attrs)
	m.pendingEntries.Record(ctx, int64(remaining))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
