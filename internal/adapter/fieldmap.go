package adapter

import (
	"strings"

	"MarketLens/internal/model"
)

// FieldMap translates provider field names into canonical field names.
// Provider names are matched case-insensitively.
type FieldMap map[string]string

// Provider tables. One declarative table per upstream shape; Apply is the
// only code that interprets them.
var (
	AlphaVantageDaily = FieldMap{
		"1. open":   model.FieldOpen,
		"2. high":   model.FieldHigh,
		"3. low":    model.FieldLow,
		"4. close":  model.FieldClose,
		"5. volume": model.FieldVolume,
	}

	AlphaVantageWeekly = AlphaVantageDaily

	AlphaVantageWeeklyAdjusted = FieldMap{
		"1. open":            model.FieldOpen,
		"2. high":            model.FieldHigh,
		"3. low":             model.FieldLow,
		"4. close":           model.FieldClose,
		"5. adjusted close":  model.FieldAdjustedClose,
		"6. volume":          model.FieldVolume,
		"7. dividend amount": model.FieldDividendAmount,
	}

	YahooColumns = FieldMap{
		"open":      model.FieldOpen,
		"high":      model.FieldHigh,
		"low":       model.FieldLow,
		"close":     model.FieldClose,
		"adj close": model.FieldAdjustedClose,
		"volume":    model.FieldVolume,
	}
)

// Apply returns the canonical view of a provider record. Fields absent from
// the table are dropped; blank values are kept so the normalizer can null them.
func (m FieldMap) Apply(fields map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range fields {
		if canonical, ok := m.lookup(k); ok {
			out[canonical] = v
		}
	}
	return out
}

func (m FieldMap) lookup(name string) (string, bool) {
	if c, ok := m[name]; ok {
		return c, true
	}
	c, ok := m[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}
