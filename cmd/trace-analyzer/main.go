package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/analysis"
	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/report"
)

func main() {
	// Load ENV from .env file, if there is one.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error loading .env file")
	}

	conf := domain.GetDefaultConfig()
	conf.CheckUsage()

	logger, _ := domain.NewLogger(conf)
	os.Exit(execute(conf, logger))
}

// execute runs the analysis and returns the process exit code after the logger has been flushed.
func execute(conf *domain.AnalysisConfig, logger *zap.Logger) int {
	defer func() {
		_ = logger.Sync()
	}()
	logger.Debug("Configuration.", zap.String("config", conf.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, logger); err != nil {
		domain.LogErrorWithoutStacktrace(logger, "Trace analysis failed.", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, conf *domain.AnalysisConfig, logger *zap.Logger) error {
	a, err := analysis.NewAnalysis(conf, logger)
	if err != nil {
		return err
	}

	inputs, err := a.Load(ctx)
	if err != nil {
		return err
	}

	rep, err := a.Run(ctx, inputs)
	if err != nil {
		return err
	}

	if _, err := report.NewWriter(conf.OutputDir, logger).Write(rep, report.NewManifest(rep)); err != nil {
		return err
	}

	if conf.MetricsTextfile != "" {
		return a.Metrics().WriteTextfile(conf.MetricsTextfile)
	}
	return nil
}
