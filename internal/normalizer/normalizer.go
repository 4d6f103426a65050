// Package normalizer merges raw records into a dataset with one observation per date.
package normalizer

import (
	"sort"
	"strings"
	"time"

	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
)

// aliases resolves alternative spellings that reach the normalizer
// from sources without a dedicated field table.
var aliases = map[string]string{
	"adj close":       model.FieldAdjustedClose,
	"adj_close":       model.FieldAdjustedClose,
	"adjclose":        model.FieldAdjustedClose,
	"dividend amount": model.FieldDividendAmount,
	"dividends":       model.FieldDividendAmount,
}

var canonical = func() map[string]bool {
	m := make(map[string]bool, len(model.CanonicalFields))
	for _, f := range model.CanonicalFields {
		m[f] = true
	}
	return m
}()

// Normalizer turns records into a deduplicated, unsorted dataset.
type Normalizer struct {
	Sink diag.Sink
}

// New returns a Normalizer reporting record-level problems to sink.
func New(sink diag.Sink) *Normalizer {
	if sink == nil {
		sink = diag.Discard
	}
	return &Normalizer{Sink: sink}
}

// Normalize maps keys onto the canonical columns, parses dates and numbers,
// and resolves duplicate dates in favour of the record with the greatest Seq.
// Bad records are reported and skipped. Empty input is an UpstreamSchemaError.
// Observation order in the result is not meaningful.
func (n *Normalizer) Normalize(name model.DatasetName, records []model.RawRecord) (*model.Dataset, error) {
	if len(records) == 0 {
		return nil, &model.UpstreamSchemaError{Provider: string(name), Key: "records", Detail: "no records to normalize"}
	}

	type slot struct {
		seq int
		obs model.Observation
	}
	index := make(map[time.Time]int, len(records))
	slots := make([]slot, 0, len(records))
	rejected := 0

	for _, rec := range records {
		day, err := model.ParseDate(rec.Date)
		if err != nil {
			rejected++
			n.Sink.Emit(diag.Event{Dataset: name, Stage: diag.StageNormalize, Err: err})
			continue
		}

		obs := model.Observation{Date: day}
		var ferr error
		seen := make(map[string]bool, len(rec.Fields))
		exact := make(map[string]bool, len(rec.Fields))
		for _, k := range sortedKeys(rec.Fields) {
			field, ok := CanonicalKey(k)
			if !ok {
				continue
			}
			// A canonical key beats its aliases; among aliases the first in key order wins.
			isExact := strings.ToLower(strings.TrimSpace(k)) == field
			if exact[field] || (!isExact && seen[field]) {
				continue
			}
			v := rec.Fields[k]
			val, err := ParseValue(v)
			if err != nil {
				ferr = &model.UpstreamFieldError{Field: field, Date: rec.Date, Value: v}
				break
			}
			obs.SetField(field, val)
			seen[field] = true
			exact[field] = isExact
		}
		if ferr != nil {
			rejected++
			n.Sink.Emit(diag.Event{Dataset: name, Stage: diag.StageNormalize, Err: ferr})
			continue
		}

		if i, ok := index[day]; ok {
			if rec.Seq >= slots[i].seq {
				slots[i] = slot{seq: rec.Seq, obs: obs}
			}
			continue
		}
		index[day] = len(slots)
		slots = append(slots, slot{seq: rec.Seq, obs: obs})
	}

	ds := &model.Dataset{Name: name, Observations: make([]model.Observation, len(slots))}
	for i, s := range slots {
		ds.Observations[i] = s.obs
	}

	n.Sink.Emit(diag.Event{
		Dataset: name,
		Stage:   diag.StageNormalize,
		Dropped: rejected,
		Fields: map[string]interface{}{
			"records":    len(records),
			"duplicates": len(records) - rejected - len(slots),
		},
	})
	return ds, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalKey lower-cases a key and resolves it to a canonical field name.
func CanonicalKey(k string) (string, bool) {
	k = strings.ToLower(strings.TrimSpace(k))
	if canonical[k] {
		return k, true
	}
	if c, ok := aliases[k]; ok {
		return c, true
	}
	return "", false
}

// ParseValue reads a decimal. Blank, NaN and null are absent values.
func ParseValue(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
