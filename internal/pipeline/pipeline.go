// Package pipeline runs fetch, normalize and clean for every configured dataset.
package pipeline

import (
	"context"
	"time"

	"MarketLens/internal/adapter"
	"MarketLens/internal/cleaner"
	"MarketLens/internal/collector"
	"MarketLens/internal/diag"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
	"MarketLens/internal/normalizer"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pipeline owns one adapter per dataset. Datasets are independent: a failure
// in one is recorded in the result and never stops the others.
type Pipeline struct {
	Adapters   []adapter.SourceAdapter
	Normalizer *normalizer.Normalizer
	Cleaner    *cleaner.Cleaner
	Sink       diag.Sink
	Now        func() time.Time

	log *logger.Entry
}

// New wires a pipeline whose stages all report to sink.
func New(adapters []adapter.SourceAdapter, sink diag.Sink, l *logger.Log) *Pipeline {
	if sink == nil {
		sink = diag.Discard
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Pipeline{
		Adapters:   adapters,
		Normalizer: normalizer.New(sink),
		Cleaner:    cleaner.New(sink),
		Sink:       sink,
		Now:        time.Now,
		log:        l.WithComponent("pipeline"),
	}
}

type outcome struct {
	name    model.DatasetName
	ds      *model.Dataset
	dropped int
	err     error
}

// Run processes every dataset concurrently and merges the outcomes.
func (p *Pipeline) Run(ctx context.Context) *model.PipelineResult {
	now := p.Now()
	res := model.NewPipelineResult(uuid.NewString(), now)
	log := p.log.WithFields(logger.Fields{"run_id": res.RunID})
	log.WithFields(logger.Fields{"datasets": len(p.Adapters)}).Info("pipeline run started")

	outcomes := make([]outcome, len(p.Adapters))
	var g errgroup.Group
	for i, a := range p.Adapters {
		i, a := i, a
		g.Go(func() error {
			outcomes[i] = p.runOne(ctx, a, now)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			res.Failures[o.name] = o.err
			log.WithFields(logger.Fields{"dataset": string(o.name)}).WithError(o.err).Error("dataset failed")
			continue
		}
		res.Datasets[o.name] = o.ds
		res.Dropped[o.name] = o.dropped
	}
	res.FinishedAt = p.Now()

	log.WithFields(logger.Fields{
		"succeeded":   len(res.Datasets),
		"failed":      len(res.Failures),
		"duration_ms": res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}).Info("pipeline run finished")
	return res
}

func (p *Pipeline) runOne(ctx context.Context, a adapter.SourceAdapter, now time.Time) outcome {
	name := a.Name()

	records, err := a.Fetch(ctx, now)
	if err != nil {
		p.Sink.Emit(diag.Event{Dataset: name, Stage: diag.StageFetch, Err: err})
		return outcome{name: name, err: err}
	}

	ds, err := p.Normalizer.Normalize(name, records)
	if err != nil {
		p.Sink.Emit(diag.Event{Dataset: name, Stage: diag.StageNormalize, Err: err})
		return outcome{name: name, err: err}
	}

	cleaned, dropped := p.Cleaner.Clean(ds)
	return outcome{name: name, ds: cleaned, dropped: dropped}
}

// DatasetSpec is the per-dataset request configuration.
type DatasetSpec struct {
	Symbol     string
	WindowDays int
}

// Sources are the fetch capabilities adapters are built on.
type Sources struct {
	TimeSeries        collector.TimeSeriesFetcher
	Table             collector.TableFetcher
	CommoditySymbol   string
	CommodityFunction string
	Datasets          map[model.DatasetName]DatasetSpec
}

// BuildAdapters is the standard adapter set: the commodity series from the
// time-series provider, the equity and index series from the table provider.
func BuildAdapters(names []model.DatasetName, src Sources, sink diag.Sink) []adapter.SourceAdapter {
	out := make([]adapter.SourceAdapter, 0, len(names))
	for _, name := range names {
		if name == model.DatasetGold {
			out = append(out, adapter.NewCommodityAdapter(src.TimeSeries, src.CommoditySymbol, src.CommodityFunction, sink))
			continue
		}
		spec := src.Datasets[name]
		out = append(out, adapter.NewTabularAdapter(name, src.Table, spec.Symbol, spec.WindowDays, sink))
	}
	return out
}
