package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DatasetName identifies one of the tracked time series.
type DatasetName string

const (
	DatasetGold  DatasetName = "gold"
	DatasetTesla DatasetName = "tesla"
	DatasetSP500 DatasetName = "sp500"
)

// AllDatasets lists the datasets in their canonical processing order.
var AllDatasets = []DatasetName{DatasetGold, DatasetTesla, DatasetSP500}

// Title returns a human readable label for charts and reports.
func (n DatasetName) Title() string {
	switch n {
	case DatasetGold:
		return "Gold"
	case DatasetTesla:
		return "Tesla"
	case DatasetSP500:
		return "S&P 500"
	default:
		return string(n)
	}
}

// Canonical field names shared by every provider after mapping.
const (
	FieldOpen           = "open"
	FieldHigh           = "high"
	FieldLow            = "low"
	FieldClose          = "close"
	FieldVolume         = "volume"
	FieldAdjustedClose  = "adjusted_close"
	FieldDividendAmount = "dividend_amount"
)

// CanonicalFields is the full column set, in output order.
var CanonicalFields = []string{
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume,
	FieldAdjustedClose, FieldDividendAmount,
}

// RawRecord is one upstream observation after the provider field table was applied.
// Values are still the provider's text.
type RawRecord struct {
	Seq    int
	Date   string
	Fields map[string]string
}

// Observation is a single normalized bar. Date is a calendar date at UTC midnight.
type Observation struct {
	Date           time.Time
	Open           decimal.NullDecimal
	High           decimal.NullDecimal
	Low            decimal.NullDecimal
	Close          decimal.NullDecimal
	Volume         decimal.NullDecimal
	AdjustedClose  decimal.NullDecimal
	DividendAmount decimal.NullDecimal
}

// Field returns the value stored under a canonical field name.
func (o *Observation) Field(name string) decimal.NullDecimal {
	switch name {
	case FieldOpen:
		return o.Open
	case FieldHigh:
		return o.High
	case FieldLow:
		return o.Low
	case FieldClose:
		return o.Close
	case FieldVolume:
		return o.Volume
	case FieldAdjustedClose:
		return o.AdjustedClose
	case FieldDividendAmount:
		return o.DividendAmount
	}
	return decimal.NullDecimal{}
}

// SetField stores v under a canonical field name. Unknown names are ignored.
func (o *Observation) SetField(name string, v decimal.NullDecimal) {
	switch name {
	case FieldOpen:
		o.Open = v
	case FieldHigh:
		o.High = v
	case FieldLow:
		o.Low = v
	case FieldClose:
		o.Close = v
	case FieldVolume:
		o.Volume = v
	case FieldAdjustedClose:
		o.AdjustedClose = v
	case FieldDividendAmount:
		o.DividendAmount = v
	}
}

// Dataset holds the observations of one series. After cleaning the
// observations are strictly ascending by date.
type Dataset struct {
	Name         DatasetName
	Observations []Observation
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Observations)
}

// Empty reports whether there is nothing to draw or persist.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// HasField reports whether any observation carries the given field.
func (d *Dataset) HasField(name string) bool {
	for i := range d.Observations {
		if d.Observations[i].Field(name).Valid {
			return true
		}
	}
	return false
}

// Last returns the most recent observation of a sorted dataset.
func (d *Dataset) Last() (Observation, bool) {
	if d.Empty() {
		return Observation{}, false
	}
	return d.Observations[len(d.Observations)-1], true
}

// SortByDate orders observations ascending by date.
func (d *Dataset) SortByDate() {
	sort.SliceStable(d.Observations, func(i, j int) bool {
		return d.Observations[i].Date.Before(d.Observations[j].Date)
	})
}

// PipelineResult collects the outcome of one run over all configured datasets.
type PipelineResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Datasets   map[DatasetName]*Dataset
	Dropped    map[DatasetName]int
	Failures   map[DatasetName]error
}

// NewPipelineResult returns an empty result ready to be filled.
func NewPipelineResult(runID string, startedAt time.Time) *PipelineResult {
	return &PipelineResult{
		RunID:     runID,
		StartedAt: startedAt,
		Datasets:  make(map[DatasetName]*Dataset),
		Dropped:   make(map[DatasetName]int),
		Failures:  make(map[DatasetName]error),
	}
}

// Succeeded returns the cleaned datasets in canonical order.
func (r *PipelineResult) Succeeded() []*Dataset {
	out := make([]*Dataset, 0, len(r.Datasets))
	for _, name := range AllDatasets {
		if ds, ok := r.Datasets[name]; ok {
			out = append(out, ds)
		}
	}
	return out
}
