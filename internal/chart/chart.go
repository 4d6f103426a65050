// Package chart renders cleaned datasets as standalone HTML line charts.
package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"MarketLens/internal/calculator"
	"MarketLens/internal/config"
	"MarketLens/internal/diag"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/browser"
)

// Chart modes.
const (
	ModeIndividual = "individual"
	ModeCombined   = "combined"
)

const (
	timestampLayout = "20060102_150405"
	emptyValue      = "-"
)

// Options controls what is rendered and where.
type Options struct {
	Dir           string
	Mode          string
	MovingAverage int
	OpenBrowser   bool
}

// OptionsFromConfig maps the chart section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:           cfg.OutputDir,
		Mode:          cfg.Chart.Mode,
		MovingAverage: cfg.Chart.MovingAverage,
		OpenBrowser:   cfg.Chart.OpenBrowser,
	}
}

// Renderer writes chart files.
type Renderer struct {
	Now  func() time.Time
	Open func(path string) error

	opts Options
	sink diag.Sink
	log  *logger.Entry
}

func New(opts Options, sink diag.Sink, l *logger.Log) *Renderer {
	if sink == nil {
		sink = diag.Discard
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Renderer{
		Now:  time.Now,
		Open: browser.OpenFile,
		opts: opts,
		sink: sink,
		log:  l.WithComponent("chart"),
	}
}

// Labels returns the chart title and y-axis name for a dataset.
func Labels(name model.DatasetName) (title, yAxis string) {
	if name == model.DatasetGold {
		return "Gold Daily Price Chart", "Gold Price (USD)"
	}
	return name.Title() + " Price Chart", "Value"
}

// Render draws datasets in the configured mode and returns the written paths.
// Empty datasets are skipped; nothing to draw is not an error.
func (r *Renderer) Render(datasets []*model.Dataset) ([]string, error) {
	var drawable []*model.Dataset
	for _, ds := range datasets {
		if ds.Empty() {
			if ds != nil {
				r.log.WithFields(logger.Fields{"dataset": string(ds.Name)}).Info("nothing to draw")
			}
			continue
		}
		drawable = append(drawable, ds)
	}
	if len(drawable) == 0 {
		return nil, nil
	}

	stamp := r.Now().Format(timestampLayout)
	var paths []string
	if r.opts.Mode == ModeCombined {
		p := filepath.Join(r.opts.Dir, fmt.Sprintf("combined_%s.html", stamp))
		if err := writeFile(p, func(w io.Writer) error { return r.combined(drawable).Render(w) }); err != nil {
			r.sink.Emit(diag.Event{Stage: diag.StageRender, Err: err})
			return nil, err
		}
		paths = append(paths, p)
	} else {
		for _, ds := range drawable {
			p := filepath.Join(r.opts.Dir, fmt.Sprintf("%s_%s.html", ds.Name, stamp))
			line, err := r.individual(ds)
			if err == nil {
				err = writeFile(p, line.Render)
			}
			if err != nil {
				r.sink.Emit(diag.Event{Dataset: ds.Name, Stage: diag.StageRender, Err: err})
				return paths, err
			}
			paths = append(paths, p)
		}
	}

	r.log.WithFields(logger.Fields{"files": len(paths), "mode": r.opts.Mode}).Info("charts written")
	if r.opts.OpenBrowser {
		for _, p := range paths {
			if err := r.Open(p); err != nil {
				r.log.WithError(err).WithFields(logger.Fields{"path": p}).Warn("failed to open chart")
			}
		}
	}
	return paths, nil
}

func (r *Renderer) individual(ds *model.Dataset) (*charts.Line, error) {
	title, yAxis := Labels(ds.Name)
	line := newLine(title, yAxis, "category")

	dates := make([]string, 0, ds.Len())
	closes := make([]opts.LineData, 0, ds.Len())
	for i := range ds.Observations {
		o := &ds.Observations[i]
		dates = append(dates, o.Date.Format(model.DateLayout))
		closes = append(closes, opts.LineData{Value: o.Close.Decimal.InexactFloat64()})
	}
	line.SetXAxis(dates).AddSeries("Close", closes)

	if r.opts.MovingAverage > 0 {
		ma, err := calculator.MovingAverage(ds, r.opts.MovingAverage)
		if err != nil {
			return nil, err
		}
		items := make([]opts.LineData, len(ma))
		for i, v := range ma {
			if v.Valid {
				items[i] = opts.LineData{Value: v.Decimal.Round(4).InexactFloat64()}
			} else {
				items[i] = opts.LineData{Value: emptyValue}
			}
		}
		line.AddSeries(fmt.Sprintf("MA%d", r.opts.MovingAverage), items)
	}
	return line, nil
}

func (r *Renderer) combined(datasets []*model.Dataset) *charts.Line {
	line := newLine("Market Overview", "Value", "time")
	for _, ds := range datasets {
		items := make([]opts.LineData, 0, ds.Len())
		for i := range ds.Observations {
			o := &ds.Observations[i]
			items = append(items, opts.LineData{Value: []interface{}{
				o.Date.Format(model.DateLayout),
				o.Close.Decimal.InexactFloat64(),
			}})
		}
		line.AddSeries(ds.Name.Title(), items)
	}
	return line
}

func newLine(title, yAxis, xType string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date", Type: xType}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxis}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	return line
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
