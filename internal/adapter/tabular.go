package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketLens/internal/collector"
	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/go-gota/gota/dataframe"
)

const dateColumn = "Date"

// TabularAdapter adapts equity and index tables. The window is applied when
// requesting data; rows are not filtered afterwards.
type TabularAdapter struct {
	Dataset    model.DatasetName
	Symbol     string
	WindowDays int
	Interval   string
	Fields     FieldMap
	Fetcher    collector.TableFetcher
	Sink       diag.Sink
}

// NewTabularAdapter returns an adapter requesting windowDays of daily bars.
func NewTabularAdapter(name model.DatasetName, f collector.TableFetcher, symbol string, windowDays int, sink diag.Sink) *TabularAdapter {
	if windowDays <= 0 {
		windowDays = 365
	}
	if sink == nil {
		sink = diag.Discard
	}
	return &TabularAdapter{
		Dataset:    name,
		Symbol:     symbol,
		WindowDays: windowDays,
		Interval:   "1d",
		Fields:     YahooColumns,
		Fetcher:    f,
		Sink:       sink,
	}
}

func (a *TabularAdapter) Name() model.DatasetName { return a.Dataset }
func (a *TabularAdapter) Provider() string        { return a.Fetcher.Name() }

// Request returns the fetch request for a run started at now.
func (a *TabularAdapter) Request(now time.Time) collector.TableRequest {
	return collector.TableRequest{
		Symbol:   a.Symbol,
		From:     model.WindowStart(now, a.WindowDays),
		To:       now,
		Interval: a.Interval,
	}
}

func (a *TabularAdapter) Fetch(ctx context.Context, now time.Time) ([]model.RawRecord, error) {
	df, err := a.Fetcher.FetchTable(ctx, a.Request(now))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.Dataset, err)
	}
	return a.Adapt(df)
}

// Adapt checks the date axis and emits one record per row.
func (a *TabularAdapter) Adapt(df *dataframe.DataFrame) ([]model.RawRecord, error) {
	if df == nil {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: dateColumn, Detail: "no table"}
	}
	if df.Err != nil {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: dateColumn, Detail: df.Err.Error()}
	}

	names := df.Names()
	dateIdx := -1
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), dateColumn) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: dateColumn}
	}

	rows := df.Records()[1:]
	parsed := 0
	for _, row := range rows {
		if _, err := model.ParseDate(row[dateIdx]); err == nil {
			parsed++
		}
	}
	if len(rows) > 0 && parsed == 0 {
		return nil, &model.UpstreamSchemaError{
			Provider: a.Provider(),
			Key:      dateColumn,
			Detail:   "column holds no calendar dates",
		}
	}

	records := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		fields := make(map[string]string, len(names)-1)
		for j, n := range names {
			if j != dateIdx {
				fields[n] = row[j]
			}
		}
		records = append(records, model.RawRecord{Seq: i, Date: row[dateIdx], Fields: a.Fields.Apply(fields)})
	}

	a.Sink.Emit(diag.Event{
		Dataset: a.Dataset,
		Stage:   diag.StageAdapt,
		Fields:  map[string]interface{}{"records": len(records)},
	})
	return records, nil
}
