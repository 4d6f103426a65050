package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"MarketLens/internal/logger"
	"MarketLens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := logger.New()
	require.NoError(t, l.Configure("info", "json", "stdout", 0))
	var buf bytes.Buffer
	l.SetOutput(&buf)

	NewLogSink(l).Emit(Event{Dataset: model.DatasetTesla, Stage: StageClean, Dropped: 2})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tesla", entry["dataset"])
	assert.Equal(t, "clean", entry["stage"])
	assert.Equal(t, float64(2), entry["dropped"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogSink_Error(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := logger.New()
	require.NoError(t, l.Configure("info", "json", "stdout", 0))
	var buf bytes.Buffer
	l.SetOutput(&buf)

	NewLogSink(l).Emit(Event{Dataset: model.DatasetGold, Stage: StageNormalize, Err: errors.New("bad date")})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "bad date", entry["error"])
}

func TestMemorySinkAndMulti(t *testing.T) {
	a, b := &MemorySink{}, &MemorySink{}
	sink := Multi{a, b, Discard}
	sink.Emit(Event{Dataset: model.DatasetGold, Stage: StageAdapt, Err: errors.New("x")})
	sink.Emit(Event{Dataset: model.DatasetGold, Stage: StageClean})

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.Events(), 2)
	assert.Len(t, a.Errors(model.DatasetGold, StageAdapt), 1)
	assert.Empty(t, a.Errors(model.DatasetGold, StageClean))
}
