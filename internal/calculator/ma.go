package calculator

import (
	"errors"

	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(values) < period {
		return decimal.Zero, errors.New("not enough data for SMA calculation")
	}
	sum := decimal.Zero
	for i := len(values) - period; i < len(values); i++ {
		sum = sum.Add(values[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// MovingAverage returns the trailing simple moving average of close for every
// observation of a cleaned dataset. The first period-1 entries are null.
func MovingAverage(ds *model.Dataset, period int) ([]decimal.NullDecimal, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	closes := extractCloses(ds)
	out := make([]decimal.NullDecimal, len(closes))
	if len(closes) < period {
		return out, nil
	}

	p := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, c := range closes {
		sum = sum.Add(c)
		if i >= period {
			sum = sum.Sub(closes[i-period])
		}
		if i >= period-1 {
			out[i] = decimal.NewNullDecimal(sum.Div(p))
		}
	}
	return out, nil
}

// extractCloses assumes the dataset was cleaned, so every close is present.
func extractCloses(ds *model.Dataset) []decimal.Decimal {
	closes := make([]decimal.Decimal, 0, ds.Len())
	for i := range ds.Observations {
		closes = append(closes, ds.Observations[i].Close.Decimal)
	}
	return closes
}
