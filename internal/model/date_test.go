package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
	}{
		{"plain", "2025-09-13"},
		{"padded", "  2025-09-13 "},
		{"with time", "2025-09-13 16:00:00"},
		{"with offset", "2025-09-13 00:00:00-04:00"},
		{"rfc3339", "2025-09-13T09:30:00Z"},
		{"slashes", "2025/09/13"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2025-13-45", "13/09/2025"} {
		_, err := ParseDate(input)
		require.Error(t, err, input)
		var dpe *DateParseError
		assert.True(t, errors.As(err, &dpe), input)
		assert.Equal(t, input, dpe.Value)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2025, 9, 14, 18, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC), WindowStart(now, 365))
	assert.Equal(t, time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC), WindowStart(now, 730))
}

func TestTransportFailure(t *testing.T) {
	err := &TransportFailure{Provider: "alphavantage", StatusCode: 500}
	assert.Contains(t, err.Error(), "500")
	assert.True(t, err.Retryable())

	notFound := &TransportFailure{Provider: "yahoo", StatusCode: 404}
	assert.False(t, notFound.Retryable())

	netErr := errors.New("connection refused")
	wrapped := &TransportFailure{Provider: "yahoo", Err: netErr}
	assert.ErrorIs(t, wrapped, netErr)
	assert.True(t, wrapped.Retryable())
}

func TestDatasetHelpers(t *testing.T) {
	var nilDS *Dataset
	assert.True(t, nilDS.Empty())

	ds := &Dataset{Name: DatasetGold, Observations: []Observation{
		{Date: time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC)},
	}}
	ds.SortByDate()
	last, ok := ds.Last()
	require.True(t, ok)
	assert.Equal(t, 13, last.Date.Day())
	assert.False(t, ds.HasField(FieldAdjustedClose))
	assert.Equal(t, "S&P 500", DatasetSP500.Title())
}
