package collector

import (
	"context"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// TimeSeriesRequest asks a JSON time-series provider for one symbol.
type TimeSeriesRequest struct {
	Function string // daily, weekly or weekly_adjusted
	Symbol   string
}

// TableRequest asks a tabular provider for a trailing window of daily bars.
type TableRequest struct {
	Symbol   string
	From     time.Time
	To       time.Time
	Interval string // 1d or 1wk
}

// TimeSeriesFetcher returns the raw JSON payload of a time-series endpoint.
type TimeSeriesFetcher interface {
	FetchTimeSeries(ctx context.Context, req TimeSeriesRequest) ([]byte, error)
	Name() string
}

// TableFetcher returns bars as a string-typed table with a Date column.
type TableFetcher interface {
	FetchTable(ctx context.Context, req TableRequest) (*dataframe.DataFrame, error)
	Name() string
}
