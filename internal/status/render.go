package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/reconcile"
)

// AllClearMessage is printed when nothing is pending.
const AllClearMessage = "All emails have CMS notes!"

// maxPerType limits how many entries of one email type RenderPending lists.
const maxPerType = 10

// RenderPending writes the pending list grouped by email type.
func RenderPending(w io.Writer, pending []ledger.PendingEntry) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(w, "✅ "+AllClearMessage)
		return err
	}

	var order []string
	byType := make(map[string][]ledger.PendingEntry)
	testCount := 0
	for _, e := range pending {
		if _, ok := byType[e.EmailType]; !ok {
			order = append(order, e.EmailType)
		}
		byType[e.EmailType] = append(byType[e.EmailType], e)
		if e.TestMode {
			testCount++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️  %d email(s) still need CMS notes\n", len(pending))
	for _, t := range order {
		items := byType[t]
		fmt.Fprintf(&b, "\n📧 %s (%d pending):\n", t, len(items))
		for i, e := range items {
			if i == maxPerType {
				fmt.Fprintf(&b, "  ... and %d more\n", len(items)-maxPerType)
				break
			}
			fmt.Fprintf(&b, "  • Case %s → %s (sent %s)\n", e.CaseID, e.Recipient, e.SentAt.Local().Format("2006-01-02 15:04"))
		}
	}
	if testCount > 0 {
		fmt.Fprintf(&b, "\n🧪 Test emails pending: %d\n", testCount)
	}
	if prod := len(pending) - testCount; prod > 0 {
		fmt.Fprintf(&b, "📧 Production emails pending: %d\n", prod)
	}
	b.WriteString("\nRun 'cmsledger reconcile' to add the notes.\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderStats writes the statistics block.
func RenderStats(w io.Writer, s Stats) error {
	var b strings.Builder
	b.WriteString("📊 Bulk email statistics\n")
	fmt.Fprintf(&b, "  Sent this session:   %d\n", s.SentThisSession)
	fmt.Fprintf(&b, "  Sent total:          %d\n", s.SentTotal)
	fmt.Fprintf(&b, "  Pending CMS notes:   %d\n", s.PendingCount)
	fmt.Fprintf(&b, "  Processed:           %d\n", s.ProcessedCount)
	fmt.Fprintf(&b, "  CMS notes added:     %d\n", s.NotesAddedCount)
	fmt.Fprintf(&b, "  Test emails sent:    %d\n", s.TestEmailsSent)
	if s.TestModeOn {
		fmt.Fprintf(&b, "  🧪 Test mode:         ON (%s)\n", s.TestEmail)
	} else {
		b.WriteString("  Test mode:           OFF\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderOutcome writes the summary of a reconcile pass.
func RenderOutcome(w io.Writer, o reconcile.Outcome) error {
	var b strings.Builder
	if o.Attempted == 0 {
		b.WriteString("✅ " + AllClearMessage + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "📝 CMS notes: %d attempted, %d added, %d failed\n", o.Attempted, o.Succeeded, o.Failed)
	if o.Skipped > 0 {
		fmt.Fprintf(&b, "   %d already recorded by another run\n", o.Skipped)
	}
	for _, f := range o.Failures {
		fmt.Fprintf(&b, "  ❌ Case %s → %s: %s\n", f.Entry.CaseID, f.Entry.Recipient, f.Reason)
	}
	if o.Failed > 0 {
		b.WriteString("\nFailed entries stay pending. Run 'cmsledger reconcile' again to retry.\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
