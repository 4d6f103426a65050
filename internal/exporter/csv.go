package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"MarketLens/internal/model"
	"MarketLens/internal/normalizer"
)

const dateHeader = "Date"

var (
	baseColumns     = []string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose, model.FieldVolume}
	extendedColumns = []string{model.FieldAdjustedClose, model.FieldDividendAmount}
)

// Columns returns the value columns written for ds. The adjusted close and
// dividend columns appear only when some observation carries either of them.
func Columns(ds *model.Dataset) []string {
	cols := append([]string(nil), baseColumns...)
	for _, c := range extendedColumns {
		if ds.HasField(c) {
			return append(cols, extendedColumns...)
		}
	}
	return cols
}

// CSVFileName is the cleaned file name for a dataset.
func CSVFileName(name model.DatasetName) string {
	return fmt.Sprintf("cleaned_%s_data.csv", name)
}

// WriteCSV writes ds to path with header Date,open,high,low,close,volume[,adjusted_close,dividend_amount].
// Null values are written as empty cells.
func WriteCSV(path string, ds *model.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := EncodeCSV(file, ds); err != nil {
		return err
	}
	return file.Close()
}

// EncodeCSV writes ds as CSV to w.
func EncodeCSV(w io.Writer, ds *model.Dataset) error {
	cols := Columns(ds)
	writer := csv.NewWriter(w)

	header := append([]string{dateHeader}, cols...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i := range ds.Observations {
		o := &ds.Observations[i]
		row := make([]string, 0, len(header))
		row = append(row, o.Date.Format(model.DateLayout))
		for _, c := range cols {
			row = append(row, formatCell(o.Field(c)))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV loads a file written by WriteCSV.
func ReadCSV(path string, name model.DatasetName) (*model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return DecodeCSV(file, name)
}

// DecodeCSV parses CSV with a Date column and any canonical value columns.
func DecodeCSV(r io.Reader, name model.DatasetName) (*model.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx := -1
	fields := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), dateHeader) {
			dateIdx = i
			continue
		}
		if c, ok := normalizer.CanonicalKey(h); ok {
			fields[i] = c
		}
	}
	if dateIdx < 0 {
		return nil, &model.UpstreamSchemaError{Provider: "csv", Key: dateHeader}
	}

	ds := &model.Dataset{Name: name}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(row) {
			return nil, fmt.Errorf("line %d: missing date", line)
		}
		day, err := model.ParseDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o := model.Observation{Date: day}
		for i, f := range fields {
			if f == "" || i >= len(row) {
				continue
			}
			v, err := normalizer.ParseValue(row[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, &model.UpstreamFieldError{Field: f, Date: row[dateIdx], Value: row[i]})
			}
			o.SetField(f, v)
		}
		ds.Observations = append(ds.Observations, o)
	}
	return ds, nil
}
