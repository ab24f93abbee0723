package table

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSX renders the table as a single-sheet workbook. Numeric cells are
// written as numbers so spreadsheet tooling can aggregate them; no
// display styling is applied.
func (t *Table) XLSX(sheetName string) ([]byte, error) {
	nrows, err := t.NumRows()
	if err != nil {
		return nil, err
	}
	if sheetName == "" {
		sheetName = "Report"
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	for j, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := 0; i < nrows; i++ {
		for j, h := range t.Header {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			v := t.cell(h, i)
			if isNumeric(v) {
				err = f.SetCellValue(sheetName, cell, toFloat(v))
			} else {
				err = f.SetCellValue(sheetName, cell, rawString(v))
			}
			if err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
