// Package cleaner is the last gate before persistence and charting.
package cleaner

import (
	"MarketLens/internal/diag"
	"MarketLens/internal/model"
)

// Cleaner drops incomplete observations and orders the rest by date.
type Cleaner struct {
	Sink diag.Sink
}

func New(sink diag.Sink) *Cleaner {
	if sink == nil {
		sink = diag.Discard
	}
	return &Cleaner{Sink: sink}
}

// Clean returns a new dataset holding every observation with a date and a
// close, strictly ascending by date, plus the number of observations removed.
// The input is not modified. Clean never fails; an empty result means
// there is nothing to render.
func (c *Cleaner) Clean(ds *model.Dataset) (*model.Dataset, int) {
	if ds == nil {
		return &model.Dataset{}, 0
	}
	out := &model.Dataset{Name: ds.Name, Observations: make([]model.Observation, 0, len(ds.Observations))}
	for _, o := range ds.Observations {
		if o.Date.IsZero() || !o.Close.Valid {
			continue
		}
		out.Observations = append(out.Observations, o)
	}
	out.SortByDate()
	dropped := len(ds.Observations) - len(out.Observations)

	c.Sink.Emit(diag.Event{
		Dataset: ds.Name,
		Stage:   diag.StageClean,
		Dropped: dropped,
		Fields:  map[string]interface{}{"observations": len(out.Observations)},
	})
	return out, dropped
}

// Clean runs a Cleaner without diagnostics.
func Clean(ds *model.Dataset) (*model.Dataset, int) {
	return New(nil).Clean(ds)
}
