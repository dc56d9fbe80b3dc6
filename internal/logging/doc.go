// Package logging provides structured logging utilities for cmsledger.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email anonymization)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "reconcile")
//	logger.Info("note added",
//	    logging.CaseID(entry.CaseID),
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("email recorded",
//	    logging.Recipient(entry.Recipient))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Recipient addresses are hashed to prevent PII leakage while allowing correlation
//   - CMS and OAuth tokens are never logged directly
package logging
