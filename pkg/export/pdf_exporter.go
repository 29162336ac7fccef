package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfLandscapeColumns = 7
	pdfHeaderHeight     = 8.0
	pdfRowHeight        = 7.0
	pdfCellPadding      = 2.0
	pdfEllipsis         = "..."
)

// PDFExporter lays the dataset out as a paged table. Wide tables switch to
// landscape and the column header repeats on every page.
type PDFExporter struct {
	// Now stamps the "Generated" line; defaults to time.Now.
	Now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Now: time.Now}
}

// Render builds the document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	orientation := "P"
	if len(data.Headers) >= pdfLandscapeColumns {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	widths := data.widths(pageWidth - left - right)
	limit := pageHeight - bottom

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	columnHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], pdfHeaderHeight, fit(pdf, tr(header), widths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Generated "+now().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	columnHeader()

	pdf.SetFillColor(253, 236, 200)
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeight > limit {
			pdf.AddPage()
			columnHeader()
			pdf.SetFillColor(253, 236, 200)
		}
		shade := data.shaded(row)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(row[header]), widths[i]), "1", 0, "", shade, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Summary) > 0 {
		pdf.Ln(6)
		for _, line := range data.Summary {
			if pdf.GetY()+pdfRowHeight > limit {
				pdf.AddPage()
			}
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(55, 6, tr(line.Label), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 6, tr(line.Value), "", 1, "", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fit trims text so it fits a cell of the given width in the current font.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	room := width - pdfCellPadding
	if pdf.GetStringWidth(text) <= room {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+pdfEllipsis) > room {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + pdfEllipsis
}
