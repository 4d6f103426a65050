package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"MarketLens/internal/calculator"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
	"MarketLens/internal/notifier"
	"MarketLens/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Runner executes one fetch-normalize-clean pass.
type Runner interface {
	Run(ctx context.Context) *model.PipelineResult
}

// Exporter persists a pipeline result.
type Exporter interface {
	Export(ctx context.Context, res *model.PipelineResult) ([]exporter.Artifact, error)
}

// ChartRenderer draws cleaned datasets.
type ChartRenderer interface {
	Render(datasets []*model.Dataset) ([]string, error)
}

// Notifier delivers run reports.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are the collaborators of a refresh run. Exporter, Charts and Notifier may be nil.
type Deps struct {
	Pipeline Runner
	Exporter Exporter
	Charts   ChartRenderer
	Recorder recorder.Recorder
	Notifier Notifier
}

// Report is everything a refresh run produced.
type Report struct {
	Result    *model.PipelineResult
	Summaries map[model.DatasetName]calculator.Summary
	Artifacts []exporter.Artifact
	Charts    []string
	Errors    []error
}

// Scheduler runs the refresh job on a cron schedule or on demand.
type Scheduler struct {
	Cron *cron.Cron
	Deps
	Ctx context.Context

	log    *logger.Entry
	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps, l *logger.Log) *Scheduler {
	if l == nil {
		l = logger.Discard()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(l))),
		),
		Deps: deps,
		Ctx:  ctx,
		log:  l.WithComponent("scheduler"),
	}
}

// Register adds the refresh job on the given cron spec (with seconds field).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow(s.Ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Latest returns the report of the most recent run, or nil.
func (s *Scheduler) Latest() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// LatestResult returns the pipeline result of the most recent run, or nil.
func (s *Scheduler) LatestResult() *model.PipelineResult {
	if r := s.Latest(); r != nil {
		return r.Result
	}
	return nil
}

// RunNow executes the refresh job immediately. Runs never overlap.
func (s *Scheduler) RunNow(ctx context.Context) *Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := s.Pipeline.Run(ctx)
	log := s.log.WithFields(logger.Fields{"run_id": res.RunID})
	report := &Report{Result: res, Summaries: make(map[model.DatasetName]calculator.Summary)}

	for _, ds := range res.Succeeded() {
		sum, err := calculator.Summarize(ds)
		if err != nil {
			continue
		}
		report.Summaries[ds.Name] = sum
	}

	if s.Exporter != nil {
		artifacts, err := s.Exporter.Export(ctx, res)
		report.Artifacts = artifacts
		if err != nil {
			log.WithError(err).Error("export")
			report.Errors = append(report.Errors, err)
		}
	}

	if s.Charts != nil {
		paths, err := s.Charts.Render(res.Succeeded())
		report.Charts = paths
		if err != nil {
			log.WithError(err).Error("render charts")
			report.Errors = append(report.Errors, err)
		}
	}

	if err := s.Recorder.RecordRun(ctx, res); err != nil {
		log.WithError(err).Error("record run")
		report.Errors = append(report.Errors, err)
	}

	metrics.RecordResult(res)

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	s.trySend(ctx, notifier.FormatRunReport(res, report.Summaries))
	return report
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.ToLower(command) {
	case "/run":
		s.RunNow(ctx)
		return ""
	case "/status":
		r := s.Latest()
		if r == nil {
			return "No run has completed yet."
		}
		return notifier.FormatRunReport(r.Result, r.Summaries)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
