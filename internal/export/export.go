package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Transactions"

// Write saves t to path. The format follows the extension: .xlsx writes a
// workbook, anything else comma-separated text. Null cells are left empty.
func Write(path string, t *domain.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("Write: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		if err := WriteXLSX(path, t); err != nil {
			return fmt.Errorf("Write: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("Write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	return nil
}

// WriteCSV writes a header row followed by one record per transaction.
func WriteCSV(w io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(w)
	for _, rec := range records(t) {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

// WriteXLSX writes t to a workbook with a single sheet.
func WriteXLSX(path string, t *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	for i, rec := range records(t) {
		cells := make([]interface{}, len(rec))
		for j, v := range rec {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("WriteXLSX: row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}

func records(t *domain.Table) [][]string {
	cols := t.Columns()
	out := make([][]string, 0, t.Len()+1)
	out = append(out, cols)
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		rec := make([]string, len(cols))
		for i, col := range cols {
			rec[i], _ = row.Value(col)
		}
		out = append(out, rec)
	}
	return out
}
