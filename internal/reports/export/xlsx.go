package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shopledger/shopledger/internal/reports"
)

const maxSheetName = 31

// WriteXLSX renders the table into a single worksheet. Numeric columns are
// stored as numbers so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, table reports.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(table.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	for i, col := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Title); err != nil {
			return err
		}
	}
	if len(table.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
		lastCol, err := excelize.ColumnNumberToName(len(table.Columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return err
		}
	}

	row := 2
	for _, record := range table.Rows {
		for i, value := range record {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if i < len(table.Columns) && table.Columns[i].Numeric {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					if err := f.SetCellFloat(sheet, cell, n, -1, 64); err != nil {
						return err
					}
					if strings.Contains(value, ".") {
						if err := f.SetCellStyle(sheet, cell, cell, amount); err != nil {
							return err
						}
					}
					continue
				}
			}
			if err := f.SetCellStr(sheet, cell, safeCell(value, false)); err != nil {
				return err
			}
		}
		row++
	}

	if len(table.Footer) > 0 {
		row++
		for _, pair := range table.Footer {
			label, _ := excelize.CoordinatesToCellName(1, row)
			value, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellStr(sheet, label, safeCell(pair[0], false)); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, label, label, bold); err != nil {
				return err
			}
			if n, err := strconv.ParseFloat(pair[1], 64); err == nil {
				if err := f.SetCellFloat(sheet, value, n, -1, 64); err != nil {
					return err
				}
			} else if err := f.SetCellStr(sheet, value, safeCell(pair[1], false)); err != nil {
				return err
			}
			row++
		}
	}

	return f.Write(w)
}

// sheetName strips characters Excel rejects and enforces the length limit.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "Report"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
