package report

import (
	"fmt"
	"io"
	"math"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes one worksheet per section, header in the first row.
// Numbers are stored as numbers; NaN cells are left blank.
func WriteXLSX(w io.Writer, sections []Section) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	for i, s := range sections {
		name := sheetName(s.Title)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}

		header := make([]any, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", name, err)
		}

		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = xlsxValue(v)
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	}
	return v
}

// sheetName trims title to the 31 characters a worksheet name allows.
func sheetName(title string) string {
	if len(title) > 31 {
		return title[:31]
	}
	return title
}
