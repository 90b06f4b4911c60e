package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopledger/shopledger/internal/reports"
)

// WriteCSV serialises the table rows followed by a blank line and the footer
// pairs.
func WriteCSV(w io.Writer, table reports.Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		header = append(header, col.Title)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, record := range table.Rows {
		out := make([]string, len(record))
		for i, value := range record {
			out[i] = safeCell(value, i < len(table.Columns) && table.Columns[i].Numeric)
		}
		if err := writer.Write(out); err != nil {
			return err
		}
	}
	if len(table.Footer) > 0 {
		if err := writer.Write([]string{}); err != nil {
			return err
		}
		for _, pair := range table.Footer {
			if err := writer.Write([]string{safeCell(pair[0], false), safeCell(pair[1], true)}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// safeCell quotes values a spreadsheet would evaluate as a formula. Numeric
// cells that parse as numbers, negatives included, pass through.
func safeCell(value string, numeric bool) string {
	if value == "" {
		return value
	}
	if numeric {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return value
		}
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}
