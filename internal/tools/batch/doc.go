// Package batch holds helpers for MCP tools that act on several case IDs in
// one call: parsing a string-or-array argument, running an operation per
// case with partial failures, and formatting the aggregated result.
package batch
