package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/shopledger/shopledger/internal/reports"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 6.0
	pdfWideColumn = 7
)

// WritePDF lays the table out on A4 pages, switching to landscape for wide
// tables. The header row repeats on every page.
func WritePDF(w io.Writer, table reports.Table, generated time.Time) error {
	orientation := "P"
	if len(table.Columns) > pdfWideColumn {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pdfMargin
	widths := columnWidths(table.Columns, usable)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(200, 200, 200)
		for i, col := range table.Columns {
			pdf.CellFormat(widths[i], 7, fit(pdf, tr(col.Title), widths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 && len(table.Columns) > 0 {
			header()
		}
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(usable, 10, tr(table.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(usable, 6, fmt.Sprintf("Generated: %s", generated.Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(table.Columns) > 0 {
		header()
	}
	for _, record := range table.Rows {
		for i := range table.Columns {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			align := "L"
			if table.Columns[i].Numeric {
				align = "R"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(value), widths[i]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(table.Rows) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(usable, 8, "No records for the selected filters.", "1", 1, "C", false, 0, "")
	}

	if len(table.Footer) > 0 {
		pdf.Ln(5)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(90, 8, "Summary", "1", 1, "L", true, 0, "")
		for _, pair := range table.Footer {
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(55, 7, tr(pair[0]), "1", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(35, 7, pair[1], "1", 1, "R", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// columnWidths gives numeric columns a fixed share and splits the rest evenly
// across text columns.
func columnWidths(cols []reports.Column, usable float64) []float64 {
	widths := make([]float64, len(cols))
	if len(cols) == 0 {
		return widths
	}
	const numericWidth = 24.0
	var numeric, textCols int
	for _, c := range cols {
		if c.Numeric {
			numeric++
		} else {
			textCols++
		}
	}
	textWidth := 0.0
	if textCols > 0 {
		textWidth = (usable - float64(numeric)*numericWidth) / float64(textCols)
	}
	if textCols == 0 || textWidth < 15 {
		even := usable / float64(len(cols))
		for i := range widths {
			widths[i] = even
		}
		return widths
	}
	for i, c := range cols {
		if c.Numeric {
			widths[i] = numericWidth
		} else {
			widths[i] = textWidth
		}
	}
	return widths
}

// fit truncates already translated cp1252 text so it fits inside a cell of
// the given width. The encoding is single byte, so cutting bytes is safe.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}
