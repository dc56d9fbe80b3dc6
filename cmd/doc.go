// Package cmd implements the command-line interface for cmsledger.
//
// This package provides the following commands:
//   - send: Send a case email through Gmail and record it as pending
//   - record: Record an email that was sent outside cmsledger
//   - pending: List sent emails that still need a CMS note
//   - reconcile: Add CMS notes for every pending email
//   - stats: Show session and lifetime statistics
//   - auth: Cache a Google OAuth token for sending
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The ledger location, CMS connection and test mode are persistent flags
// shared by every command, each with an environment variable fallback.
package cmd
