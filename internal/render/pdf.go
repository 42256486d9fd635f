package render

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/noah-isme/backend-struk/internal/receipt"
)

const (
	pageMargin  = 20.0
	columnWidth = 90.0
	rowHeight   = 4.6
)

// PDF writes the receipt as a single A4 page with the receipt column centred
// between 20 mm margins and a generation footer.
func PDF(w io.Writer, r receipt.Receipt, now time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Receipt - "+r.Merchant), false)
	pdf.SetSubject(tr("Receipt for "+r.Amounts.Total.StringFixed(2)+" from "+r.Merchant), false)
	pdf.SetAuthor("Receipt Generator", false)
	pdf.SetCreator("Receipt Generator", false)
	pdf.SetKeywords("receipt, invoice", false)

	footer := "Generated on " + now.Format("1/2/2006, 3:04:05 PM")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, footer, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pageWidth, pageHeight := pdf.GetPageSize()
	left := (pageWidth - columnWidth) / 2
	pdf.SetTextColor(34, 34, 34)

	lines := Lines(r)
	top := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	boxHeight := min(float64(len(lines))*rowHeight+8, pageHeight-top-pageMargin+4)
	pdf.Rect(left-4, top-4, columnWidth+8, boxHeight, "D")

	for _, line := range lines {
		style := ""
		if line.Bold {
			style = "B"
		}
		pdf.SetFont("Courier", style, 9)
		align := "L"
		if line.Align == Center {
			align = "C"
		}
		pdf.SetX(left)
		pdf.CellFormat(columnWidth, rowHeight, tr(line.Text), "", 1, align, false, 0, "")
	}
	return pdf.Output(w)
}
