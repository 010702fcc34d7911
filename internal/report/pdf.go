// Package report renders incident and directory exports (PDF and CSV) and
// archives each generated document in the artifact store.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"safetrack.org/internal/incident"
)

const (
	labelWidth = 45
	timeLayout = "2006-01-02 15:04 MST"
)

// WriteIncidentPDF renders a single incident report document.
func WriteIncidentPDF(w io.Writer, inc incident.Incident) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(fmt.Sprintf("Incident %s", inc.ID), false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, "Incident Report", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(120, 120, 120)
	doc.CellFormat(0, 5, inc.ID, "", 1, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, inc.Title, "", 1, "L", false, 0, "")
	doc.Ln(2)

	field := func(label, value string) {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(labelWidth, 6, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 6, value, "", "L", false)
	}

	field("Reported by", inc.ReportedBy)
	field("Severity", string(inc.Severity))
	field("Category", string(inc.Category))
	field("Priority", string(inc.Priority))
	field("Status", string(inc.Status))
	field("Occurred at", inc.OccurredAt.Format(timeLayout))
	field("Created at", inc.CreatedAt.Format(timeLayout))
	if inc.Deleted && inc.DeletedAt != nil {
		field("Deleted at", fmt.Sprintf("%s by %s", inc.DeletedAt.Format(timeLayout), inc.DeletedBy))
	}
	if desc := strings.TrimSpace(inc.Description); desc != "" {
		doc.Ln(2)
		field("Description", desc)
	}

	if len(inc.History) > 0 {
		doc.Ln(4)
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 7, "Stage History", "", 1, "L", false, 0, "")

		doc.SetFont("Helvetica", "B", 9)
		doc.SetFillColor(235, 235, 235)
		doc.CellFormat(40, 6, "When", "1", 0, "L", true, 0, "")
		doc.CellFormat(30, 6, "Stage", "1", 0, "L", true, 0, "")
		doc.CellFormat(40, 6, "Actor", "1", 0, "L", true, 0, "")
		doc.CellFormat(0, 6, "Note", "1", 1, "L", true, 0, "")

		doc.SetFont("Helvetica", "", 9)
		for _, entry := range inc.History {
			doc.CellFormat(40, 6, entry.At.Format(timeLayout), "1", 0, "L", false, 0, "")
			doc.CellFormat(30, 6, string(entry.Stage), "1", 0, "L", false, 0, "")
			doc.CellFormat(40, 6, entry.Actor, "1", 0, "L", false, 0, "")
			doc.CellFormat(0, 6, entry.Note, "1", 1, "L", false, 0, "")
		}
	}

	return doc.Output(w)
}
