package reconcile

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=adder.go -destination=mocks/mock_note_adder.go -package=mocks

// NoteAdder adds a note to a case in the CMS. A nil error means the CMS
// confirmed the note.
type NoteAdder interface {
	AddNote(ctx context.Context, caseID, noteText string, testMode bool) error
}
