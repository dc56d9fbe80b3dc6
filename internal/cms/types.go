package cms

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by NewClient when no base URL is set.
var ErrNotConfigured = errors.New("cms: base URL not configured")

// noteRequest is the JSON body of a note creation request.
type noteRequest struct {
	Note     string `json:"note"`
	TestMode bool   `json:"test_mode"`
}

// noteResponse is the subset of the CMS reply the client reads.
type noteResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// CMSError represents a failed CMS operation.
type CMSError struct {
	// Op is the operation that failed (e.g. "add_note")
	Op string

	// CaseID is the case the operation targeted
	CaseID string

	// StatusCode is the HTTP status, zero when no response was received
	StatusCode int

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *CMSError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cms %s (case: %s, status: %d): %v", e.Op, e.CaseID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cms %s (case: %s): %v", e.Op, e.CaseID, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *CMSError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same call later may succeed.
func (e *CMSError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
