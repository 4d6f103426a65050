package main

import (
	"context"
	"fmt"

	"MarketLens/internal/chart"
	"MarketLens/internal/collector"
	"MarketLens/internal/config"
	"MarketLens/internal/diag"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
	"MarketLens/internal/notifier"
	"MarketLens/internal/pipeline"
	"MarketLens/internal/recorder"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/server"
)

type app struct {
	cfg       *config.Config
	log       *logger.Log
	scheduler *scheduler.Scheduler
	notifier  *notifier.TelegramNotifier
	recorder  recorder.Recorder
	history   server.HistorySource
	closed    bool
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Log) (*app, error) {
	sink := diag.Multi{diag.NewLogSink(log), metrics.Sink{}}

	tr := collector.TransportOptions{
		ProxyURL:     cfg.Proxy,
		Timeout:      cfg.HTTP.Timeout,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryBackoff: cfg.HTTP.RetryBackoff,
		Logger:       log,
	}
	avOpts := tr
	avOpts.RequestsPerMinute = cfg.AlphaVantage.RequestsPerMinute
	yahooOpts := tr
	yahooOpts.RequestsPerMinute = cfg.Yahoo.RequestsPerMinute

	specs := make(map[model.DatasetName]pipeline.DatasetSpec)
	for _, name := range cfg.Datasets.Enabled() {
		d := cfg.Datasets.Get(name)
		specs[name] = pipeline.DatasetSpec{Symbol: d.Symbol, WindowDays: d.WindowDays}
	}
	src := pipeline.Sources{
		TimeSeries:        collector.NewAlphaVantageClient(cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, avOpts),
		Table:             collector.NewYahooClient(cfg.Yahoo.BaseURL, yahooOpts),
		CommoditySymbol:   cfg.AlphaVantage.Symbol,
		CommodityFunction: cfg.AlphaVantage.Function,
		Datasets:          specs,
	}
	p := pipeline.New(pipeline.BuildAdapters(cfg.Datasets.Enabled(), src, sink), sink, log)

	var uploader *exporter.S3Uploader
	if cfg.Storage.S3.Enabled {
		u, err := exporter.NewS3Uploader(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 uploader: %w", err)
		}
		uploader = u
	}

	a := &app{cfg: cfg, log: log}

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
			a.history = sr
		}
	}

	deps := scheduler.Deps{
		Pipeline: p,
		Exporter: exporter.New(exporter.OptionsFromConfig(cfg), uploader, sink, log),
		Recorder: a.recorder,
	}
	if !cfg.Chart.Disabled {
		deps.Charts = chart.New(chart.OptionsFromConfig(cfg), sink, log)
	}
	if cfg.Telegram.BotToken != "" {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		deps.Notifier = a.notifier
	}

	a.scheduler = scheduler.NewScheduler(ctx, deps, log)
	return a, nil
}

// serve runs the cron schedule, the bot command loop and the HTTP server until ctx is done.
func (a *app) serve(ctx context.Context) error {
	if err := a.scheduler.Register(a.cfg.Schedule.Cron); err != nil {
		return err
	}
	a.scheduler.Start()
	defer a.scheduler.Stop()

	if a.notifier.Enabled() {
		go a.notifier.StartPolling(ctx, a.scheduler.HandleCommand)
		a.log.Info("telegram polling started")
	}

	if a.cfg.Schedule.RunOnStart {
		a.log.Info("run_on_start enabled, executing refresh now")
		go a.scheduler.RunNow(ctx)
	}

	srv := server.New(a.cfg.Server.Addr, a.cfg.OutputDir, a.scheduler, a.history, a.log)
	return srv.ListenAndServe(ctx)
}

func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.recorder.Close(); err != nil {
		a.log.WithError(err).Warn("close recorder")
	}
}
