// Package export renders report tables as CSV, XLSX or PDF documents.
//
// PDFs use the core Helvetica font, which only covers cp1252. Characters
// outside it (the rupee sign, Indic scripts) print as "?"; use CSV or XLSX
// when party names need them.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopledger/shopledger/internal/reports"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// Format is an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Filename builds the attachment name for a report export.
func Filename(kind reports.Kind, f Format, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", kind, at.Format("20060102-150405"), f)
}

// Write renders the table in the requested format.
func Write(w io.Writer, f Format, table reports.Table, generated time.Time) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, table)
	case FormatXLSX:
		return WriteXLSX(w, table)
	case FormatPDF:
		return WritePDF(w, table, generated)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
