package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jo-hoe/cardreader/internal/backend/database"
)

const (
	XLSXExtension = "xlsx"
	XLSXMimeType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "名片記錄"
)

// WriteXLSX writes a workbook with one sheet holding the same columns as the
// CSV export
func WriteXLSX(w io.Writer, records []database.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, record := range records {
		if err := setRow(f, i+2, Row(record)); err != nil {
			return err
		}
	}

	lastColumn, err := excelize.ColumnNumberToName(len(Header))
	if err != nil {
		return fmt.Errorf("resolve last column: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", lastColumn, 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolve row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
