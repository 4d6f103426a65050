// Package exporter persists cleaned datasets as CSV, Parquet and Excel files
// and optionally mirrors them to S3.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MarketLens/internal/config"
	"MarketLens/internal/diag"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
)

// Artifact is one file written by an export.
type Artifact struct {
	Dataset     model.DatasetName
	Path        string
	ContentType string
	Key         string
}

// Options selects the output formats.
type Options struct {
	Dir         string
	CSV         bool
	Parquet     bool
	XLSX        bool
	Compression string
}

// OptionsFromConfig maps the export section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:         cfg.OutputDir,
		CSV:         !cfg.Export.DisableCSV,
		Parquet:     cfg.Export.Parquet,
		XLSX:        cfg.Export.XLSX,
		Compression: cfg.Export.Compression,
	}
}

// Exporter writes the datasets of a pipeline result to disk.
type Exporter struct {
	opts     Options
	uploader *S3Uploader
	sink     diag.Sink
	log      *logger.Entry
}

// New returns an exporter. A nil uploader keeps artifacts local only.
func New(opts Options, uploader *S3Uploader, sink diag.Sink, l *logger.Log) *Exporter {
	if sink == nil {
		sink = diag.Discard
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Exporter{
		opts:     opts,
		uploader: uploader,
		sink:     sink,
		log:      l.WithComponent("exporter"),
	}
}

// Export writes every succeeded dataset of res. A failure on one dataset or
// format does not stop the others; all failures are returned joined.
func (e *Exporter) Export(ctx context.Context, res *model.PipelineResult) ([]Artifact, error) {
	var (
		artifacts []Artifact
		errs      []error
	)
	datasets := res.Succeeded()

	for _, ds := range datasets {
		if e.opts.CSV {
			p := filepath.Join(e.opts.Dir, CSVFileName(ds.Name))
			if err := WriteCSV(p, ds); err != nil {
				errs = append(errs, e.fail(ds.Name, "csv", err))
			} else {
				artifacts = append(artifacts, Artifact{Dataset: ds.Name, Path: p, ContentType: "text/csv"})
			}
		}
		if e.opts.Parquet {
			p := filepath.Join(e.opts.Dir, ParquetFileName(ds.Name))
			if _, err := WriteParquet(p, ds, e.opts.Compression); err != nil {
				errs = append(errs, e.fail(ds.Name, "parquet", err))
			} else {
				artifacts = append(artifacts, Artifact{Dataset: ds.Name, Path: p, ContentType: "application/octet-stream"})
			}
		}
	}

	if e.opts.XLSX && len(datasets) > 0 {
		p := filepath.Join(e.opts.Dir, WorkbookFileName)
		if err := WriteWorkbook(p, datasets); err != nil {
			errs = append(errs, e.fail("", "xlsx", err))
		} else {
			artifacts = append(artifacts, Artifact{Path: p, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"})
		}
	}

	if e.uploader != nil {
		for i := range artifacts {
			key, err := e.upload(ctx, res.StartedAt, artifacts[i])
			if err != nil {
				errs = append(errs, e.fail(artifacts[i].Dataset, "s3", err))
				continue
			}
			artifacts[i].Key = key
		}
	}

	e.log.WithFields(logger.Fields{
		"run_id":    res.RunID,
		"artifacts": len(artifacts),
		"errors":    len(errs),
	}).Info("export finished")
	return artifacts, errors.Join(errs...)
}

func (e *Exporter) upload(ctx context.Context, day time.Time, a Artifact) (string, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", a.Path, err)
	}
	key := e.uploader.Key(day, a.Path)
	if err := e.uploader.Upload(ctx, key, data, a.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

func (e *Exporter) fail(name model.DatasetName, format string, err error) error {
	err = fmt.Errorf("%s export: %w", format, err)
	e.sink.Emit(diag.Event{Dataset: name, Stage: diag.StagePersist, Err: err})
	return err
}
