package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketLens/internal/collector"
	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runTime = time.Date(2025, 9, 14, 15, 0, 0, 0, time.UTC)

const goldPayload = `{
  "Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "XAUUSD"},
  "Time Series (Daily)": {
    "2025-09-13": {"1. open": "1900.0", "2. high": "1910.0", "3. low": "1890.0", "4. close": "1905.0", "5. volume": "1000"},
    "2025-09-12": {"1. open": "1895.0", "2. high": "1905.0", "3. low": "1885.0", "4. close": "1890.0", "5. volume": "1200"}
  }
}`

func TestFieldMap_Apply(t *testing.T) {
	got := YahooColumns.Apply(map[string]string{
		"Open": "1", "Adj Close": "2", "Dividends": "0", " VOLUME ": "3",
	})
	assert.Equal(t, map[string]string{"open": "1", "adjusted_close": "2", "volume": "3"}, got)
}

func TestCommodity_ScenarioA(t *testing.T) {
	f := &collector.MockTimeSeries{Payload: []byte(goldPayload)}
	a := NewCommodityAdapter(f, "XAUUSD", "", nil)

	records, err := a.Fetch(context.Background(), runTime)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2025-09-12", records[0].Date)
	assert.Equal(t, "1890.0", records[0].Fields[model.FieldClose])
	assert.Equal(t, "2025-09-13", records[1].Date)
	assert.Equal(t, map[string]string{
		"open": "1900.0", "high": "1910.0", "low": "1890.0", "close": "1905.0", "volume": "1000",
	}, records[1].Fields)
	assert.Equal(t, 1, records[1].Seq)

	require.Len(t, f.Requests, 1)
	assert.Equal(t, collector.TimeSeriesRequest{Function: "daily", Symbol: "XAUUSD"}, f.Requests[0])
}

func TestCommodity_WindowBoundary(t *testing.T) {
	body := []byte(`{"Time Series (Daily)": {
	  "2024-09-14": {"4. close": "2500"},
	  "2024-09-13": {"4. close": "2490"},
	  "2025-09-14": {"4. close": "2600"}
	}}`)
	a := NewCommodityAdapter(&collector.MockTimeSeries{}, "XAUUSD", "daily", nil)

	records, err := a.Adapt(body, runTime)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// 365 days back is kept, 366 days back is not.
	assert.Equal(t, "2024-09-14", records[0].Date)
	assert.Equal(t, "2025-09-14", records[1].Date)
}

func TestCommodity_MissingEnvelope(t *testing.T) {
	a := NewCommodityAdapter(&collector.MockTimeSeries{}, "XAUUSD", "daily", nil)

	_, err := a.Adapt([]byte(`{"Meta Data": {}}`), runTime)
	var se *model.UpstreamSchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Time Series (Daily)", se.Key)
	assert.Contains(t, err.Error(), "Time Series (Daily)")

	_, err = a.Adapt([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`), runTime)
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Detail, "rate limit")

	_, err = a.Adapt([]byte(`not json`), runTime)
	require.True(t, errors.As(err, &se))
}

func TestCommodity_NonNumericField(t *testing.T) {
	body := []byte(`{"Time Series (Daily)": {
	  "2025-09-13": {"1. open": "1900.0", "4. close": "n/a"},
	  "2025-09-12": {"1. open": "1895.0", "4. close": "1890.0"}
	}}`)
	sink := &diag.MemorySink{}
	a := NewCommodityAdapter(&collector.MockTimeSeries{}, "XAUUSD", "daily", sink)

	records, err := a.Adapt(body, runTime)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-09-12", records[0].Date)

	errs := sink.Errors(model.DatasetGold, diag.StageAdapt)
	require.Len(t, errs, 1)
	var fe *model.UpstreamFieldError
	require.True(t, errors.As(errs[0], &fe))
	assert.Equal(t, "close", fe.Field)
	assert.Equal(t, "2025-09-13", fe.Date)
}

func TestCommodity_WeeklyAdjusted(t *testing.T) {
	body := []byte(`{"Weekly Adjusted Time Series": {
	  "2025-09-12": {"1. open": "10", "2. high": "11", "3. low": "9", "4. close": "10.5",
	                 "5. adjusted close": "10.4", "6. volume": "500", "7. dividend amount": "0.0000"}
	}}`)
	a := NewCommodityAdapter(&collector.MockTimeSeries{}, "IBM", "weekly_adjusted", nil)

	records, err := a.Adapt(body, runTime)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "10.4", records[0].Fields[model.FieldAdjustedClose])
	assert.Equal(t, "0.0000", records[0].Fields[model.FieldDividendAmount])
	assert.Equal(t, "500", records[0].Fields[model.FieldVolume])
}

func TestCommodity_TransportFailure(t *testing.T) {
	f := &collector.MockTimeSeries{Err: &model.TransportFailure{Provider: "alphavantage", StatusCode: 500}}
	a := NewCommodityAdapter(f, "XAUUSD", "daily", nil)

	_, err := a.Fetch(context.Background(), runTime)
	var tf *model.TransportFailure
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, 500, tf.StatusCode)
}

func TestCommodity_UnparseableDatePassesThrough(t *testing.T) {
	body := []byte(`{"Time Series (Daily)": {"someday": {"4. close": "1"}}}`)
	a := NewCommodityAdapter(&collector.MockTimeSeries{}, "XAUUSD", "daily", nil)
	records, err := a.Adapt(body, runTime)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "someday", records[0].Date)
}

func TestTabular_RequestWindow(t *testing.T) {
	f := &collector.MockTable{Table: collector.TableFromRows([]string{"Date", "Close"}, nil)}
	for _, days := range []int{365, 730} {
		a := NewTabularAdapter(model.DatasetTesla, f, "TSLA", days, nil)
		_, err := a.Fetch(context.Background(), runTime)
		require.NoError(t, err)

		req, ok := f.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "TSLA", req.Symbol)
		assert.Equal(t, model.DateOf(runTime).AddDate(0, 0, -days), req.From)
		assert.Equal(t, runTime, req.To)
		assert.Equal(t, "1d", req.Interval)
	}
}

func TestTabular_ScenarioB(t *testing.T) {
	df := collector.TableFromRows(collector.YahooColumns, [][]string{
		{"2025-09-12", "", "260", "248", "255.25", "255.25", "1000"},
		{"2025-09-15", "250.5", "262", "249", "", "", "2000"},
	})
	a := NewTabularAdapter(model.DatasetTesla, &collector.MockTable{Table: df}, "TSLA", 365, nil)

	records, err := a.Fetch(context.Background(), runTime)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[0].Fields[model.FieldOpen])
	assert.Equal(t, "255.25", records[0].Fields[model.FieldClose])
	assert.Equal(t, "", records[1].Fields[model.FieldClose])
	assert.Equal(t, "2000", records[1].Fields[model.FieldVolume])
}

func TestTabular_DateAxis(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		rows    [][]string
		wantErr bool
	}{
		{"missing column", []string{"Open", "Close"}, [][]string{{"1", "2"}}, true},
		{"no dates parse", []string{"Date", "Close"}, [][]string{{"soon", "2"}, {"later", "3"}}, true},
		{"lower case header", []string{"date", "close"}, [][]string{{"2025-09-12", "2"}}, false},
		{"one bad date", []string{"Date", "Close"}, [][]string{{"2025-09-12", "2"}, {"bad", "3"}}, false},
		{"empty table", []string{"Date", "Close"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewTabularAdapter(model.DatasetSP500, &collector.MockTable{}, "^GSPC", 365, nil)
			_, err := a.Adapt(collector.TableFromRows(tt.header, tt.rows))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *model.UpstreamSchemaError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, "Date", se.Key)
		})
	}
}

func TestTabular_NilTable(t *testing.T) {
	a := NewTabularAdapter(model.DatasetSP500, &collector.MockTable{}, "^GSPC", 365, nil)
	_, err := a.Adapt(nil)
	var se *model.UpstreamSchemaError
	assert.True(t, errors.As(err, &se))
}
