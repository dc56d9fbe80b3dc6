// Package server holds the long-running side of cmsledger.
//
// ServerContext owns the ledger store and the services built on it (tracker,
// reconciler, reporter, sender) and is shared by CLI commands, MCP tools and
// background jobs. HTTPServer exposes the MCP streamable HTTP transport with
// health endpoints, MetricsServer serves Prometheus metrics on a separate
// port, and AutoReconciler runs reconciliation passes on a schedule.
//
// # Health endpoints
//
//   - /healthz: liveness
//   - /readyz: readiness, including a read of the ledger
//   - /healthz/detailed: uptime, test mode and the current pending count
package server
