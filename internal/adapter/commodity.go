package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/collector"
	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Key    string
	Fields FieldMap
}

// Alpha Vantage envelope keys per function.
var alphaVantageEnvelopes = map[string]envelope{
	"daily":           {Key: "Time Series (Daily)", Fields: AlphaVantageDaily},
	"weekly":          {Key: "Weekly Time Series", Fields: AlphaVantageWeekly},
	"weekly_adjusted": {Key: "Weekly Adjusted Time Series", Fields: AlphaVantageWeeklyAdjusted},
}

// Keys Alpha Vantage uses to explain an empty or refused response.
var alphaVantageNotices = []string{"Error Message", "Note", "Information"}

// CommodityAdapter adapts the Alpha Vantage JSON time series.
type CommodityAdapter struct {
	Dataset  model.DatasetName
	Symbol   string
	Function string
	Fetcher  collector.TimeSeriesFetcher
	Sink     diag.Sink
}

// NewCommodityAdapter returns an adapter for the gold series.
func NewCommodityAdapter(f collector.TimeSeriesFetcher, symbol, function string, sink diag.Sink) *CommodityAdapter {
	if function == "" {
		function = "daily"
	}
	if sink == nil {
		sink = diag.Discard
	}
	return &CommodityAdapter{
		Dataset:  model.DatasetGold,
		Symbol:   symbol,
		Function: function,
		Fetcher:  f,
		Sink:     sink,
	}
}

func (a *CommodityAdapter) Name() model.DatasetName { return a.Dataset }
func (a *CommodityAdapter) Provider() string        { return a.Fetcher.Name() }

// Fetch retrieves the series and adapts it relative to now.
func (a *CommodityAdapter) Fetch(ctx context.Context, now time.Time) ([]model.RawRecord, error) {
	body, err := a.Fetcher.FetchTimeSeries(ctx, collector.TimeSeriesRequest{Function: a.Function, Symbol: a.Symbol})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.Dataset, err)
	}
	return a.Adapt(body, now)
}

// Adapt validates the envelope, maps each entry and keeps entries dated
// within the trailing CommodityWindowDays of now, inclusive.
func (a *CommodityAdapter) Adapt(body []byte, now time.Time) ([]model.RawRecord, error) {
	env, ok := alphaVantageEnvelopes[a.Function]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported function %q", a.Dataset, a.Function)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: env.Key, Detail: "response is not a JSON object"}
	}
	raw, ok := top[env.Key]
	if !ok {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: env.Key, Detail: notice(top)}
	}
	var series map[string]map[string]interface{}
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, &model.UpstreamSchemaError{Provider: a.Provider(), Key: env.Key, Detail: err.Error()}
	}

	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	start := model.WindowStart(now, CommodityWindowDays)
	records := make([]model.RawRecord, 0, len(dates))
	outside, rejected := 0, 0
	for _, d := range dates {
		// Unparseable dates pass through; the normalizer reports them.
		if day, err := model.ParseDate(d); err == nil && day.Before(start) {
			outside++
			continue
		}

		fields := env.Fields.Apply(stringify(series[d]))
		if ferr := checkNumeric(fields, d); ferr != nil {
			rejected++
			a.Sink.Emit(diag.Event{Dataset: a.Dataset, Stage: diag.StageAdapt, Err: ferr})
			continue
		}
		records = append(records, model.RawRecord{Seq: len(records), Date: d, Fields: fields})
	}

	a.Sink.Emit(diag.Event{
		Dataset: a.Dataset,
		Stage:   diag.StageAdapt,
		Dropped: rejected,
		Fields:  map[string]interface{}{"records": len(records), "outside_window": outside},
	})
	return records, nil
}

func notice(top map[string]json.RawMessage) string {
	for _, k := range alphaVantageNotices {
		if raw, ok := top[k]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return s
			}
			return string(raw)
		}
	}
	return ""
}

func stringify(entry map[string]interface{}) map[string]string {
	out := make(map[string]string, len(entry))
	for k, v := range entry {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// checkNumeric returns the first non-blank field that does not parse as a decimal.
func checkNumeric(fields map[string]string, date string) error {
	for _, name := range model.CanonicalFields {
		v, ok := fields[name]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := decimal.NewFromString(strings.TrimSpace(v)); err != nil {
			return &model.UpstreamFieldError{Field: name, Date: date, Value: v}
		}
	}
	return nil
}
