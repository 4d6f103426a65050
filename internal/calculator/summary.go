// Package calculator derives statistics from cleaned datasets.
package calculator

import (
	"errors"
	"time"

	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
)

// Summary describes a cleaned dataset over its whole window.
type Summary struct {
	Dataset    model.DatasetName
	Count      int
	FirstDate  time.Time
	LastDate   time.Time
	FirstClose decimal.Decimal
	LastClose  decimal.Decimal
	ChangePct  decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Position   float64
	RSI        float64
}

var hundred = decimal.NewFromInt(100)

// Summarize computes the window statistics of a cleaned, sorted dataset.
func Summarize(ds *model.Dataset) (Summary, error) {
	if ds.Empty() {
		return Summary{}, errors.New("no observations provided")
	}
	first := ds.Observations[0]
	last, _ := ds.Last()

	s := Summary{
		Dataset:    ds.Name,
		Count:      ds.Len(),
		FirstDate:  first.Date,
		LastDate:   last.Date,
		FirstClose: first.Close.Decimal,
		LastClose:  last.Close.Decimal,
	}
	if !s.FirstClose.IsZero() {
		s.ChangePct = s.LastClose.Sub(s.FirstClose).Div(s.FirstClose).Mul(hundred).Round(2)
	}

	var err error
	if s.High, s.Low, err = PeriodRange(ds, 0); err != nil {
		return Summary{}, err
	}
	if s.Position, err = RangePosition(s.LastClose, s.High, s.Low); err != nil {
		return Summary{}, err
	}
	if s.RSI, err = CalculateRSI(ds, DefaultRSIPeriod); err != nil {
		return Summary{}, err
	}
	return s, nil
}
