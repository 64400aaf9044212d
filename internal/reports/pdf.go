package reports

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	rowHeight  = 7.0
	keyWidth   = 120.0
	countWidth = 40.0
)

// RenderPDF draws the summary as an A4 document.
func RenderPDF(summary *Summary) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Ticket report", true)
	pdf.SetCreator("go-helpdesk", true)
	pdf.SetCreationDate(summary.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Ticket report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	period := fmt.Sprintf("Period: %s to %s (UTC)",
		summary.From.Format("2006-01-02 15:04"), summary.To.Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, period, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total tickets: %d", summary.Total), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	sections := []struct {
		title   string
		heading string
		rows    []Bucket
	}{
		{"Tickets per day", "Day", summary.ByDay},
		{"Tickets per agent", "Agent", summary.ByAgent},
		{"Tickets per status", "Status", summary.ByStatus},
		{"Tickets per disposition", "Disposition", summary.ByDisposition},
	}

	for _, sec := range sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, sec.title, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(keyWidth, rowHeight, sec.heading, "1", 0, "L", true, 0, "")
		pdf.CellFormat(countWidth, rowHeight, "Tickets", "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		if len(sec.rows) == 0 {
			pdf.CellFormat(keyWidth+countWidth, rowHeight, "No tickets", "1", 1, "L", false, 0, "")
		}
		for _, b := range sec.rows {
			pdf.CellFormat(keyWidth, rowHeight, tr(b.Key), "1", 0, "L", false, 0, "")
			pdf.CellFormat(countWidth, rowHeight, strconv.FormatInt(b.Count, 10), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name for a report covering summary's range.
func FileName(summary *Summary) string {
	return fmt.Sprintf("tickets-%s-%s.pdf", summary.From.Format(dayLayout), summary.To.Format(dayLayout))
}
