package exporter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"MarketLens/internal/model"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetRow is the on-disk layout of one observation. Date is days since the unix epoch.
type ParquetRow struct {
	Dataset        string   `parquet:"name=dataset, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date           int32    `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Open           *float64 `parquet:"name=open, type=DOUBLE, repetitiontype=OPTIONAL"`
	High           *float64 `parquet:"name=high, type=DOUBLE, repetitiontype=OPTIONAL"`
	Low            *float64 `parquet:"name=low, type=DOUBLE, repetitiontype=OPTIONAL"`
	Close          *float64 `parquet:"name=close, type=DOUBLE, repetitiontype=OPTIONAL"`
	Volume         *float64 `parquet:"name=volume, type=DOUBLE, repetitiontype=OPTIONAL"`
	AdjustedClose  *float64 `parquet:"name=adjusted_close, type=DOUBLE, repetitiontype=OPTIONAL"`
	DividendAmount *float64 `parquet:"name=dividend_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
}

const secondsPerDay = 24 * 60 * 60

// memFile is an in-memory source.ParquetFile used for writing only.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// ParquetFileName is the parquet file name for a dataset.
func ParquetFileName(name model.DatasetName) string {
	return fmt.Sprintf("cleaned_%s_data.parquet", name)
}

// CompressionCodec maps a config value to a parquet codec. Unknown values disable compression.
func CompressionCodec(name string) parquet.CompressionCodec {
	switch strings.ToLower(name) {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// ParquetRows converts ds into parquet rows.
func ParquetRows(ds *model.Dataset) []ParquetRow {
	rows := make([]ParquetRow, 0, ds.Len())
	for i := range ds.Observations {
		o := &ds.Observations[i]
		rows = append(rows, ParquetRow{
			Dataset:        string(ds.Name),
			Date:           int32(o.Date.Unix() / secondsPerDay),
			Open:           floatPtr(o.Open),
			High:           floatPtr(o.High),
			Low:            floatPtr(o.Low),
			Close:          floatPtr(o.Close),
			Volume:         floatPtr(o.Volume),
			AdjustedClose:  floatPtr(o.AdjustedClose),
			DividendAmount: floatPtr(o.DividendAmount),
		})
	}
	return rows
}

// EncodeParquet serializes ds into a parquet file held in memory.
func EncodeParquet(ds *model.Dataset, compression string) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(ParquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = CompressionCodec(compression)

	for _, row := range ParquetRows(ds) {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write %s record: %w", ds.Name, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize %s parquet: %w", ds.Name, err)
	}
	return mem.Bytes(), nil
}

// WriteParquet encodes ds and writes it to path.
func WriteParquet(path string, ds *model.Dataset, compression string) ([]byte, error) {
	data, err := EncodeParquet(ds, compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write parquet: %w", err)
	}
	return data, nil
}
