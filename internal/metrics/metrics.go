// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"errors"
	"sync"
	"time"

	"MarketLens/internal/diag"
	"MarketLens/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PipelineRunsTotal counts completed pipeline runs by outcome.
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketlens_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)

	// DatasetFailuresTotal counts dataset-level failures by error kind.
	DatasetFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketlens_dataset_failures_total",
			Help: "Total number of datasets that failed to produce a result",
		},
		[]string{"dataset", "kind"},
	)

	// RowsDroppedTotal counts records removed by stage.
	RowsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketlens_rows_dropped_total",
			Help: "Total number of records dropped during adaptation, normalization and cleaning",
		},
		[]string{"dataset", "stage"},
	)

	// DatasetObservations is the observation count of the latest cleaned dataset.
	DatasetObservations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketlens_dataset_observations",
			Help: "Number of observations in the latest cleaned dataset",
		},
		[]string{"dataset"},
	)

	// FetchDuration is a histogram of upstream request latencies.
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketlens_fetch_duration_seconds",
			Help:    "Upstream fetch latencies",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)

	// LastSuccess is the unix time of the last run that produced at least one dataset.
	LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketlens_last_success_timestamp",
			Help: "Unix timestamp of the last successful pipeline run",
		},
	)
)

var once sync.Once

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			DatasetFailuresTotal,
			RowsDroppedTotal,
			DatasetObservations,
			FetchDuration,
			LastSuccess,
		)
	})
}

// RecordFetch observes one upstream request.
func RecordFetch(provider, status string, d time.Duration) {
	FetchDuration.WithLabelValues(provider, status).Observe(d.Seconds())
}

// RecordDropped adds n dropped records for a dataset and stage.
func RecordDropped(ds model.DatasetName, stage string, n int) {
	if n <= 0 {
		return
	}
	RowsDroppedTotal.WithLabelValues(string(ds), stage).Add(float64(n))
}

// RecordResult updates every per-run metric from a finished pipeline result.
func RecordResult(res *model.PipelineResult) {
	for name, ds := range res.Datasets {
		DatasetObservations.WithLabelValues(string(name)).Set(float64(ds.Len()))
	}
	for name, err := range res.Failures {
		DatasetFailuresTotal.WithLabelValues(string(name), ErrorKind(err)).Inc()
	}
	switch {
	case len(res.Failures) == 0:
		PipelineRunsTotal.WithLabelValues("success").Inc()
	case len(res.Datasets) > 0:
		PipelineRunsTotal.WithLabelValues("partial").Inc()
	default:
		PipelineRunsTotal.WithLabelValues("failure").Inc()
	}
	if len(res.Datasets) > 0 {
		LastSuccess.Set(float64(res.FinishedAt.Unix()))
	}
}

// ErrorKind classifies a dataset failure for labelling.
func ErrorKind(err error) string {
	var tf *model.TransportFailure
	var se *model.UpstreamSchemaError
	switch {
	case errors.As(err, &tf):
		return "transport"
	case errors.As(err, &se):
		return "schema"
	default:
		return "other"
	}
}

// Sink counts dropped records from pipeline diagnostic events.
type Sink struct{}

func (Sink) Emit(e diag.Event) {
	if e.Err != nil {
		var fe *model.UpstreamFieldError
		var de *model.DateParseError
		if errors.As(e.Err, &fe) || errors.As(e.Err, &de) {
			RowsDroppedTotal.WithLabelValues(string(e.Dataset), e.Stage).Inc()
		}
		return
	}
	if e.Stage == diag.StageClean {
		RecordDropped(e.Dataset, e.Stage, e.Dropped)
	}
}
