package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketLens/internal/config"
	"MarketLens/internal/logger"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"

	"github.com/joho/godotenv"
)

const usage = `Usage: marketlens [run|serve] [flags]

Commands:
  run     fetch, clean, export and chart every enabled dataset once (default)
  serve   run on the configured cron schedule and serve results over HTTP

Flags:
`

func main() {
	log := logger.New()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	cmd, args := splitCommand(os.Args[1:])
	fs := flag.NewFlagSet("marketlens "+cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", defaultConfigPath(), "Path to configuration file")
	outputDir := fs.String("output-dir", "", "Directory for exported files and charts")
	mode := fs.String("mode", "", "Chart mode: individual or combined")
	open := fs.Bool("open", false, "Open rendered charts in the default browser")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	applyFlags(cfg, fs, *outputDir, *mode, *open)

	if err := cfg.Validate(); err != nil {
		var ce *model.ConfigurationError
		if errors.As(err, &ce) {
			log.WithFields(logger.Fields{"key": ce.Key}).WithError(err).Error("Invalid configuration")
		} else {
			log.WithError(err).Error("Invalid configuration")
		}
		os.Exit(2)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAgeDays); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer a.Close()

	log.WithFields(logger.Fields{
		"command":  cmd,
		"datasets": len(cfg.Datasets.Enabled()),
		"output":   cfg.OutputDir,
	}).Info("starting marketlens")

	switch cmd {
	case "run":
		report := a.scheduler.RunNow(ctx)
		code := exitCode(report.Result)
		if code != 0 {
			log.Error("every dataset failed")
		}
		a.Close()
		os.Exit(code)
	case "serve":
		if err := a.serve(ctx); err != nil {
			log.WithError(err).Error("server stopped with error")
			a.Close()
			os.Exit(1)
		}
	default:
		fs.Usage()
		a.Close()
		os.Exit(2)
	}
}

// splitCommand separates an optional leading subcommand from its flags.
func splitCommand(args []string) (string, []string) {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return args[0], args[1:]
	}
	return "run", args
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, outputDir, mode string, open bool) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if mode != "" {
		cfg.Chart.Mode = mode
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "open" {
			cfg.Chart.OpenBrowser = open
		}
	})
}

// exitCode is non-zero only when no dataset succeeded.
func exitCode(res *model.PipelineResult) int {
	if res == nil || (len(res.Datasets) == 0 && len(res.Failures) > 0) {
		return 1
	}
	return 0
}
