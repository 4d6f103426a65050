package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const alphaVantageProvider = "alphavantage"

// Alpha Vantage function names keyed by the short names used in config.
var alphaVantageFunctions = map[string]string{
	"daily":           "TIME_SERIES_DAILY",
	"weekly":          "TIME_SERIES_WEEKLY",
	"weekly_adjusted": "TIME_SERIES_WEEKLY_ADJUSTED",
}

// AlphaVantageClient implements TimeSeriesFetcher for the Alpha Vantage query API.
type AlphaVantageClient struct {
	BaseURL string
	APIKey  string
	tr      *transport
}

// NewAlphaVantageClient creates a client. baseURL defaults to the public endpoint.
func NewAlphaVantageClient(baseURL, apiKey string, opts TransportOptions) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}
	return &AlphaVantageClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		tr:      newTransport(alphaVantageProvider, opts),
	}
}

func (c *AlphaVantageClient) Name() string { return alphaVantageProvider }

// FetchTimeSeries returns the response body untouched. Provider error bodies
// arrive with status 200 and are left for the adapter to diagnose.
func (c *AlphaVantageClient) FetchTimeSeries(ctx context.Context, req TimeSeriesRequest) ([]byte, error) {
	fn := req.Function
	if fn == "" {
		fn = "daily"
	}
	function, ok := alphaVantageFunctions[fn]
	if !ok {
		return nil, fmt.Errorf("alphavantage: unsupported function %q", fn)
	}

	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", req.Symbol)
	q.Set("datatype", "json")
	q.Set("apikey", c.APIKey)
	if function == "TIME_SERIES_DAILY" {
		q.Set("outputsize", "full")
	}
	return c.tr.get(ctx, c.BaseURL+"?"+q.Encode(), nil)
}
