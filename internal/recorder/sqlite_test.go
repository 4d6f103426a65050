package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"MarketLens/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observation(date, closeVal string) model.Observation {
	d, _ := time.Parse(model.DateLayout, date)
	return model.Observation{
		Date:   d,
		Close:  decimal.NewNullDecimal(decimal.RequireFromString(closeVal)),
		Volume: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
	}
}

func result(runID string, started time.Time, obs ...model.Observation) *model.PipelineResult {
	res := model.NewPipelineResult(runID, started)
	res.FinishedAt = started.Add(time.Second)
	res.Datasets[model.DatasetGold] = &model.Dataset{Name: model.DatasetGold, Observations: obs}
	res.Dropped[model.DatasetGold] = 1
	res.Failures[model.DatasetTesla] = errors.New("transport failure: status 500")
	return res
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "marketlens.db"), nil)
	require.NoError(t, err)
	defer r.Close()

	t0 := time.Date(2025, 9, 13, 22, 30, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(ctx, result("run-1", t0,
		observation("2025-09-11", "1880.5"),
		observation("2025-09-12", "1890"),
	)))
	require.NoError(t, r.RecordRun(ctx, result("run-2", t0.Add(24*time.Hour),
		observation("2025-09-12", "1895.25"),
		observation("2025-09-13", "1905"),
	)))

	hist, err := r.History(ctx, model.DatasetGold)
	require.NoError(t, err)
	require.Len(t, hist.Observations, 3)
	assert.Equal(t, "2025-09-11", hist.Observations[0].Date.Format(model.DateLayout))
	assert.Equal(t, "1895.25", hist.Observations[1].Close.Decimal.String())
	assert.False(t, hist.Observations[1].Open.Valid)
	assert.True(t, hist.Observations[1].Volume.Valid)

	runs, err := r.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)

	var (
		count   int
		errText string
	)
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM dataset_runs WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, r.db.QueryRow(`SELECT error FROM dataset_runs WHERE run_id = ? AND dataset = ?`, "run-1", "tesla").Scan(&errText))
	assert.Contains(t, errText, "500")
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "marketlens.db"), nil)
	require.NoError(t, err)
	defer r.Close()

	t0 := time.Date(2025, 9, 13, 22, 30, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(ctx, result("run-1", t0, observation("2025-09-12", "1890"))))
	assert.Error(t, r.RecordRun(ctx, result("run-1", t0, observation("2025-09-13", "1900"))))

	hist, err := r.History(ctx, model.DatasetGold)
	require.NoError(t, err)
	assert.Len(t, hist.Observations, 1)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordRun(context.Background(), model.NewPipelineResult("x", time.Now())))
	assert.NoError(t, rec.Close())
}
