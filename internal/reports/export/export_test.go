package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shopledger/shopledger/internal/reports"
)

func sampleTable() reports.Table {
	return reports.Table{
		Title: "Profit & Loss",
		Columns: []reports.Column{
			{Title: "Bill No"}, {Title: "Party"}, {Title: "Revenue", Numeric: true}, {Title: "Margin %", Numeric: true},
		},
		Rows: [][]string{
			{"INV-1", "Asha Stores", "1180.00", "49.15"},
			{"INV-2", "Café Dāsa, Bengaluru", "0.00", "0.00"},
		},
		Footer: [][2]string{{"Total Revenue", "1180.00"}, {"Invoices", "2"}},
	}
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, sampleTable()))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	require.Equal(t, []string{"Bill No", "Party", "Revenue", "Margin %"}, records[0])
	require.Equal(t, "Café Dāsa, Bengaluru", records[2][1])
	require.Equal(t, []string{"Total Revenue", "1180.00"}, records[3])
	require.Len(t, records, 5)
}

func TestSpreadsheetExportsQuoteFormulas(t *testing.T) {
	table := reports.Table{
		Title:   "Accounts",
		Columns: []reports.Column{{Title: "Bill No"}, {Title: "Party"}, {Title: "Due", Numeric: true}},
		Rows: [][]string{
			{"=HYPERLINK(\"http://x\")", "@SUM(A1)", "-20.00"},
			{"+1", "-cmd", "=1+1"},
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, table))
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"'=HYPERLINK(\"http://x\")", "'@SUM(A1)", "-20.00"}, records[1])
	require.Equal(t, []string{"'+1", "'-cmd", "'=1+1"}, records[2])

	buf.Reset()
	require.NoError(t, WriteXLSX(buf, table))
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	party, err := f.GetCellValue("Accounts", "B2")
	require.NoError(t, err)
	require.Equal(t, "'@SUM(A1)", party)
	formula, err := f.GetCellFormula("Accounts", "A2")
	require.NoError(t, err)
	require.Empty(t, formula)
	due, err := f.GetCellValue("Accounts", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "-20", due)
}

func TestWriteXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteXLSX(buf, sampleTable()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{"Profit & Loss"}, f.GetSheetList())
	header, err := f.GetCellValue("Profit & Loss", "A1")
	require.NoError(t, err)
	require.Equal(t, "Bill No", header)

	raw, err := f.GetCellValue("Profit & Loss", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "1180", raw)

	label, err := f.GetCellValue("Profit & Loss", "A5")
	require.NoError(t, err)
	require.Equal(t, "Total Revenue", label)
}

func TestWritePDF(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WritePDF(buf, sampleTable(), time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	wide := sampleTable()
	for i := 0; i < 6; i++ {
		wide.Columns = append(wide.Columns, reports.Column{Title: "Extra", Numeric: true})
	}
	empty := reports.Table{Title: "Empty", Columns: wide.Columns}
	buf.Reset()
	require.NoError(t, WritePDF(buf, empty, time.Now()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFPaginatesLongTables(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 200; i++ {
		table.Rows = append(table.Rows, []string{"INV", strings.Repeat("Long party name ", 5), "10.00", "1.00"})
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WritePDF(buf, table, time.Now()))
	require.Greater(t, bytes.Count(buf.Bytes(), []byte("/Type /Page\n")), 1)
}

func TestFitMeasuresTranslatedText(t *testing.T) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	name := tr(strings.Repeat("Café Dāsa ", 10))
	got := fit(pdf, name, 30)
	require.True(t, strings.HasSuffix(got, "..."))
	require.LessOrEqual(t, pdf.GetStringWidth(got), 28.0)
	require.True(t, strings.HasPrefix(got, tr("Café")))

	short := tr("Café")
	require.Equal(t, short, fit(pdf, short, 30))
}

func TestColumnWidthsFillPage(t *testing.T) {
	cols := sampleTable().Columns
	widths := columnWidths(cols, 190)
	var sum float64
	for _, w := range widths {
		sum += w
	}
	require.InDelta(t, 190, sum, 1e-9)
	require.Equal(t, 24.0, widths[2])
	require.Empty(t, columnWidths(nil, 190))
}

func TestFormatDispatch(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	require.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	require.Equal(t, "aging-20240630-090000.pdf", Filename(reports.KindAging, FormatPDF, time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)))

	buf := &bytes.Buffer{}
	require.ErrorIs(t, Write(buf, Format("docx"), sampleTable(), time.Now()), ErrUnsupportedFormat)
	require.NoError(t, Write(buf, FormatCSV, sampleTable(), time.Now()))
}
