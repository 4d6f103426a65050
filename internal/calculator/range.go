package calculator

import (
	"errors"

	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
)

// PeriodRange scans the most recent lookback observations and returns the
// high and low. A missing high or low falls back to the close. A lookback of
// zero or less scans the whole dataset.
func PeriodRange(ds *model.Dataset, lookback int) (high, low decimal.Decimal, err error) {
	n := ds.Len()
	if n == 0 {
		return decimal.Zero, decimal.Zero, errors.New("no observations provided")
	}
	start := 0
	if lookback > 0 && n > lookback {
		start = n - lookback
	}
	for i := start; i < n; i++ {
		o := &ds.Observations[i]
		h, l := o.Close.Decimal, o.Close.Decimal
		if o.High.Valid {
			h = o.High.Decimal
		}
		if o.Low.Valid {
			l = o.Low.Decimal
		}
		if i == start || h.GreaterThan(high) {
			high = h
		}
		if i == start || l.LessThan(low) {
			low = l
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0..1.
func RangePosition(current, high, low decimal.Decimal) (float64, error) {
	if high.Equal(low) {
		return 0.5, nil
	}
	if high.LessThan(low) {
		return 0, errors.New("high must be >= low")
	}
	pos := current.Sub(low).Div(high.Sub(low)).InexactFloat64()
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
