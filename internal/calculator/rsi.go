package calculator

import (
	"errors"

	"MarketLens/internal/model"
)

// DefaultRSIPeriod is the lookback used by Summarize.
const DefaultRSIPeriod = 14

// CalculateRSI computes the Wilder-smoothed RSI of close over the given period.
// Requires at least period+1 observations. Returns 50.0 if data is insufficient.
func CalculateRSI(ds *model.Dataset, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if ds.Len() < period+1 {
		return 50.0, nil
	}

	decs := extractCloses(ds)
	closes := make([]float64, len(decs))
	for i, d := range decs {
		closes[i] = d.InexactFloat64()
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}
