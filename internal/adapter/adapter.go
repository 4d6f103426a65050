// Package adapter turns provider payloads into raw records keyed by canonical field names.
package adapter

import (
	"context"
	"time"

	"MarketLens/internal/model"
)

// CommodityWindowDays is the trailing window applied to the commodity series.
const CommodityWindowDays = 365

// SourceAdapter fetches one dataset and translates the provider payload.
// It fails fast on malformed responses; record level problems are reported
// through the adapter's diag.Sink and the record is skipped.
type SourceAdapter interface {
	Name() model.DatasetName
	Provider() string
	Fetch(ctx context.Context, now time.Time) ([]model.RawRecord, error)
}
