package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketLens/internal/collector"
	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runTime = time.Date(2025, 9, 14, 15, 0, 0, 0, time.UTC)

const goldPayload = `{"Time Series (Daily)": {
  "2025-09-13": {"1. open": "1900.0", "2. high": "1910.0", "3. low": "1890.0", "4. close": "1905.0", "5. volume": "1000"},
  "2025-09-12": {"1. open": "1895.0", "2. high": "1905.0", "3. low": "1885.0", "4. close": "1890.0", "5. volume": "1200"}
}}`

func teslaTable() *collector.MockTable {
	return &collector.MockTable{Table: collector.TableFromRows(collector.YahooColumns, [][]string{
		{"2025-09-15", "250.5", "262", "249", "", "", "2000"},
		{"2025-09-12", "", "260", "248", "255.25", "255.25", "1000"},
	})}
}

func newPipeline(src Sources, sink diag.Sink) *Pipeline {
	p := New(BuildAdapters(model.AllDatasets, src, sink), sink, nil)
	p.Now = func() time.Time { return runTime }
	return p
}

func TestRun_AllDatasets(t *testing.T) {
	sink := &diag.MemorySink{}
	p := newPipeline(Sources{
		TimeSeries:      &collector.MockTimeSeries{Payload: []byte(goldPayload)},
		Table:           teslaTable(),
		CommoditySymbol: "XAUUSD",
		Datasets: map[model.DatasetName]DatasetSpec{
			model.DatasetTesla: {Symbol: "TSLA", WindowDays: 365},
			model.DatasetSP500: {Symbol: "^GSPC", WindowDays: 730},
		},
	}, sink)

	res := p.Run(context.Background())
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Datasets, 3)

	gold := res.Datasets[model.DatasetGold]
	require.Len(t, gold.Observations, 2)
	assert.Equal(t, "1890", gold.Observations[0].Close.Decimal.String())
	assert.Equal(t, 0, res.Dropped[model.DatasetGold])

	tesla := res.Datasets[model.DatasetTesla]
	require.Len(t, tesla.Observations, 1)
	assert.False(t, tesla.Observations[0].Open.Valid)
	assert.Equal(t, 1, res.Dropped[model.DatasetTesla])

	assert.Len(t, res.Succeeded(), 3)
	assert.Equal(t, model.DatasetGold, res.Succeeded()[0].Name)

	var cleanEvents int
	for _, e := range sink.Events() {
		if e.Stage == diag.StageClean {
			cleanEvents++
		}
	}
	assert.Equal(t, 3, cleanEvents)
}

func TestRun_ScenarioC(t *testing.T) {
	av := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer av.Close()

	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":-14400},
		  "timestamp":[1757683800],
		  "indicators":{"quote":[{"open":[1],"high":[2],"low":[0.5],"close":[1.5],"volume":[10]}]}}]}}`))
	}))
	defer yahoo.Close()

	sink := &diag.MemorySink{}
	p := newPipeline(Sources{
		TimeSeries:      collector.NewAlphaVantageClient(av.URL, "key", collector.TransportOptions{}),
		Table:           collector.NewYahooClient(yahoo.URL, collector.TransportOptions{}),
		CommoditySymbol: "XAUUSD",
		Datasets: map[model.DatasetName]DatasetSpec{
			model.DatasetTesla: {Symbol: "TSLA", WindowDays: 365},
			model.DatasetSP500: {Symbol: "^GSPC", WindowDays: 365},
		},
	}, sink)

	res := p.Run(context.Background())

	require.Contains(t, res.Failures, model.DatasetGold)
	var tf *model.TransportFailure
	require.True(t, errors.As(res.Failures[model.DatasetGold], &tf))
	assert.Equal(t, 500, tf.StatusCode)
	assert.True(t, strings.Contains(res.Failures[model.DatasetGold].Error(), "500"))

	assert.NotContains(t, res.Datasets, model.DatasetGold)
	require.Contains(t, res.Datasets, model.DatasetTesla)
	require.Contains(t, res.Datasets, model.DatasetSP500)
	assert.Len(t, res.Datasets[model.DatasetSP500].Observations, 1)

	assert.Len(t, sink.Errors(model.DatasetGold, diag.StageFetch), 1)
}

func TestRun_SchemaFailureIsolated(t *testing.T) {
	p := newPipeline(Sources{
		TimeSeries: &collector.MockTimeSeries{Payload: []byte(`{"Information": "invalid api key"}`)},
		Table:      &collector.MockTable{Table: collector.TableFromRows([]string{"Open"}, [][]string{{"1"}})},
		Datasets:   map[model.DatasetName]DatasetSpec{},
	}, nil)

	res := p.Run(context.Background())
	assert.Empty(t, res.Datasets)
	require.Len(t, res.Failures, 3)
	for name, err := range res.Failures {
		var se *model.UpstreamSchemaError
		assert.True(t, errors.As(err, &se), "%s: %v", name, err)
	}
}

func TestRun_EmptyWindowIsSchemaError(t *testing.T) {
	old := `{"Time Series (Daily)": {"2020-01-02": {"4. close": "1500"}}}`
	p := New(BuildAdapters([]model.DatasetName{model.DatasetGold}, Sources{
		TimeSeries: &collector.MockTimeSeries{Payload: []byte(old)},
	}, nil), nil, nil)
	p.Now = func() time.Time { return runTime }

	res := p.Run(context.Background())
	var se *model.UpstreamSchemaError
	require.True(t, errors.As(res.Failures[model.DatasetGold], &se))
	assert.Equal(t, "records", se.Key)
}
