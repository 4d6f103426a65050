package cleaner

import (
	"math/rand"
	"testing"
	"time"

	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(date string, closeVal string) model.Observation {
	d, _ := time.Parse(model.DateLayout, date)
	o := model.Observation{Date: d}
	if closeVal != "" {
		o.Close = decimal.NewNullDecimal(decimal.RequireFromString(closeVal))
	}
	return o
}

func TestClean_ScenarioA(t *testing.T) {
	ds := &model.Dataset{Name: model.DatasetGold, Observations: []model.Observation{
		obs("2025-09-13", "1905.0"),
		obs("2025-09-12", "1890.0"),
	}}
	out, dropped := Clean(ds)
	assert.Equal(t, 0, dropped)
	require.Len(t, out.Observations, 2)
	assert.Equal(t, "2025-09-12", out.Observations[0].Date.Format(model.DateLayout))
	assert.Equal(t, "1890", out.Observations[0].Close.Decimal.String())
	assert.Equal(t, "2025-09-13", out.Observations[1].Date.Format(model.DateLayout))
	assert.Equal(t, "1905", out.Observations[1].Close.Decimal.String())
}

func TestClean_ScenarioB(t *testing.T) {
	noOpen := obs("2025-09-12", "255.25")
	noClose := obs("2025-09-15", "")
	noClose.Open = decimal.NewNullDecimal(decimal.RequireFromString("250.5"))

	sink := &diag.MemorySink{}
	out, dropped := New(sink).Clean(&model.Dataset{Name: model.DatasetTesla, Observations: []model.Observation{noClose, noOpen}})

	assert.Equal(t, 1, dropped)
	require.Len(t, out.Observations, 1)
	assert.False(t, out.Observations[0].Open.Valid)
	assert.Equal(t, "255.25", out.Observations[0].Close.Decimal.String())

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, diag.StageClean, events[0].Stage)
	assert.Equal(t, 1, events[0].Dropped)
	assert.Equal(t, model.DatasetTesla, events[0].Dataset)
}

func TestClean_DropsZeroDate(t *testing.T) {
	zero := model.Observation{Close: decimal.NewNullDecimal(decimal.NewFromInt(1))}
	out, dropped := Clean(&model.Dataset{Observations: []model.Observation{zero, obs("2025-01-01", "2")}})
	assert.Equal(t, 1, dropped)
	assert.Len(t, out.Observations, 1)
}

func TestClean_StrictlyAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var in []model.Observation
	for _, i := range rng.Perm(200) {
		closeVal := ""
		if i%9 != 0 {
			closeVal = "100"
		}
		in = append(in, obs(base.AddDate(0, 0, i).Format(model.DateLayout), closeVal))
	}
	out, dropped := Clean(&model.Dataset{Name: model.DatasetSP500, Observations: in})
	assert.Equal(t, len(in)-len(out.Observations), dropped)
	for i := 1; i < len(out.Observations); i++ {
		assert.True(t, out.Observations[i-1].Date.Before(out.Observations[i].Date))
		assert.True(t, out.Observations[i].Close.Valid)
	}
	// input left untouched
	assert.Len(t, in, 200)
}

func TestClean_EmptyAndNil(t *testing.T) {
	out, dropped := Clean(&model.Dataset{Name: model.DatasetGold})
	assert.Equal(t, 0, dropped)
	assert.True(t, out.Empty())

	out, dropped = Clean(nil)
	assert.Equal(t, 0, dropped)
	assert.True(t, out.Empty())
}
