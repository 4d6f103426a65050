package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"MarketLens/internal/model"

	"github.com/xuri/excelize/v2"
)

// WorkbookFileName is the name of the combined Excel export.
const WorkbookFileName = "market_data.xlsx"

const defaultSheet = "Sheet1"

// WriteWorkbook writes one sheet per dataset, in the given order, to path.
// Nothing is written when datasets is empty.
func WriteWorkbook(path string, datasets []*model.Dataset) error {
	if len(datasets) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, ds := range datasets {
		sheet := string(ds.Name)
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, sheet, ds); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, ds *model.Dataset) error {
	cols := Columns(ds)
	header := make([]interface{}, 0, len(cols)+1)
	header = append(header, dateHeader)
	for _, c := range cols {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s headers: %w", sheet, err)
	}

	for i := range ds.Observations {
		o := &ds.Observations[i]
		row := make([]interface{}, 0, len(header))
		row = append(row, o.Date.Format(model.DateLayout))
		for _, c := range cols {
			if p := floatPtr(o.Field(c)); p != nil {
				row = append(row, *p)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i, err)
		}
	}
	return nil
}
