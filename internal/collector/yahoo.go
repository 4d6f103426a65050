package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const yahooProvider = "yahoo"

// Table columns produced by YahooClient, in order.
var YahooColumns = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// YahooClient implements TableFetcher using the Yahoo Finance chart API.
type YahooClient struct {
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	tr        *transport
}

// NewYahooClient creates a new Yahoo Finance client.
func NewYahooClient(baseURL string, opts TransportOptions) *YahooClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		tr: newTransport(yahooProvider, opts),
	}
}

func (c *YahooClient) Name() string { return yahooProvider }

func (c *YahooClient) yahooSymbol(symbol string) string {
	if mapped, ok := c.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func formatValue(vals []*float64, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	return strconv.FormatFloat(*vals[i], 'f', -1, 64)
}

// FetchTable requests [From, To] and returns one string row per reported bar.
// Missing quote values become empty cells.
func (c *YahooClient) FetchTable(ctx context.Context, req TableRequest) (*dataframe.DataFrame, error) {
	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}
	to := req.To
	if to.IsZero() {
		to = time.Now()
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&period1=%d&period2=%d&events=div",
		c.BaseURL, url.PathEscape(c.yahooSymbol(req.Symbol)), interval, req.From.Unix(), to.Unix())

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0")
	body, err := c.tr.get(ctx, u, header)
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &model.UpstreamSchemaError{Provider: yahooProvider, Key: "chart", Detail: err.Error()}
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, &model.UpstreamSchemaError{Provider: yahooProvider, Key: "chart.result"}
	}

	result := chart.Chart.Result[0]
	n := len(result.Timestamp)
	cols := make([][]string, len(YahooColumns))
	for i := range cols {
		cols[i] = make([]string, 0, n)
	}
	var quoteOpen, quoteHigh, quoteLow, quoteClose, quoteVolume, adj []*float64
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		quoteOpen, quoteHigh, quoteLow, quoteClose, quoteVolume = q.Open, q.High, q.Low, q.Close, q.Volume
	}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	for i, ts := range result.Timestamp {
		// Timestamps mark the session open; shift into exchange time before taking the date.
		day := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		cols[0] = append(cols[0], day.Format(model.DateLayout))
		cols[1] = append(cols[1], formatValue(quoteOpen, i))
		cols[2] = append(cols[2], formatValue(quoteHigh, i))
		cols[3] = append(cols[3], formatValue(quoteLow, i))
		cols[4] = append(cols[4], formatValue(quoteClose, i))
		cols[5] = append(cols[5], formatValue(adj, i))
		cols[6] = append(cols[6], formatValue(quoteVolume, i))
	}

	return NewTable(YahooColumns, cols), nil
}

// NewTable builds a string-typed table from column-major values.
func NewTable(names []string, cols [][]string) *dataframe.DataFrame {
	ss := make([]series.Series, len(names))
	for i, name := range names {
		ss[i] = series.New(cols[i], series.String, name)
	}
	df := dataframe.New(ss...)
	return &df
}

// TableFromRows builds a string-typed table from a header and rows.
func TableFromRows(header []string, rows [][]string) *dataframe.DataFrame {
	cols := make([][]string, len(header))
	for _, row := range rows {
		for i := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cols[i] = append(cols[i], v)
		}
	}
	for i := range cols {
		if cols[i] == nil {
			cols[i] = []string{}
		}
	}
	return NewTable(header, cols)
}
