package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/icza/gox/timex"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/loader"
	"github.com/scusemua/trace-analyzer/m/v2/internal/metrics"
	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
)

const (
	PassGPU                  = "gpu"
	PassGPULarge             = "gpu_large"
	PassGPULargeDedicated    = "gpu_large_dedicated"
	PassCPU                  = "cpu"
	PassMemory               = "memory"
	passLoad                 = "load"
	passLifecycle            = "lifecycle"
	passOverlap              = "overlap"
	utilizationMetricPattern = "%s_util_percent"
)

// Inputs are the loaded traces an analysis runs over. Everything except Jobs is optional.
type Inputs struct {
	Jobs     []*trace.Job
	GPU      *utilization.GPUIndex
	CPU      *utilization.HostIndex
	Memory   *utilization.HostIndex
	Capacity overlap.CapacityDirectory

	Files []*loader.LoadStats
}

// UtilizationPass is the result of one aggregation over a utilization trace.
type UtilizationPass struct {
	Name          string
	Options       utilization.Options
	Buckets       *utilization.Buckets
	Stats         *utilization.AggregationStats
	Distributions []*Distribution
}

// Report holds everything one run computed.
type Report struct {
	RunID      string
	StartedAt  time.Time
	Elapsed    time.Duration
	Options    utilization.Options
	Convention overlap.BoundaryConvention

	Jobs             int
	JobsWithAttempts int
	StillRunning     int

	Lifecycle   []*Distribution
	Utilization []*UtilizationPass
	Machines    []*overlap.MachineSummary
	Files       []*loader.LoadStats
}

// Distributions returns the lifecycle distributions followed by those of every utilization pass.
func (r *Report) Distributions() []*Distribution {
	distributions := append([]*Distribution(nil), r.Lifecycle...)
	for _, pass := range r.Utilization {
		distributions = append(distributions, pass.Distributions...)
	}
	return distributions
}

// Analysis runs every pass of one batch analysis under a single run id.
type Analysis struct {
	conf       *domain.AnalysisConfig
	opts       utilization.Options
	convention overlap.BoundaryConvention
	runID      string

	metrics *metrics.PrometheusMetricsWrapper

	logger   *zap.Logger
	sugarLog *zap.SugaredLogger
}

func NewAnalysis(conf *domain.AnalysisConfig, logger *zap.Logger) (*Analysis, error) {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}

	opts, err := utilization.OptionsFromConfig(conf)
	if err != nil {
		return nil, err
	}
	convention, err := overlap.ParseBoundaryConvention(conf.BoundaryConvention)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	wrapper, errs := metrics.NewPrometheusMetricsWrapper(logger)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to register %d metric(s): %w", len(errs), errs[0])
	}

	logger = logger.With(zap.String("run_id", runID))
	return &Analysis{
		conf:       conf,
		opts:       opts,
		convention: convention,
		runID:      runID,
		metrics:    wrapper,
		logger:     logger,
		sugarLog:   logger.Sugar(),
	}, nil
}

func (a *Analysis) RunID() string {
	return a.runID
}

func (a *Analysis) Metrics() *metrics.PrometheusMetricsWrapper {
	return a.metrics
}

// timed runs fn and records how long it took.
func (a *Analysis) timed(pass string, fn func() error) error {
	start := time.Now()
	err := fn()
	a.observePass(pass, start)
	return err
}

func (a *Analysis) observePass(pass string, start time.Time) {
	elapsed := time.Since(start)
	a.metrics.SetPassDuration(a.runID, pass, elapsed.Seconds())
	a.sugarLog.Debugf("Pass \"%s\" took %v.", pass, timex.Round(elapsed, 3))
}

// Load reads every configured input. Only the job log is required.
func (a *Analysis) Load(ctx context.Context) (*Inputs, error) {
	inputs := &Inputs{}
	loader.SetLogger(a.logger)

	err := a.timed(passLoad, func() error {
		jobs, stats, err := loader.LoadJobs(a.conf.JobLogFile, a.conf.SkipMalformed)
		if err != nil {
			return err
		}
		inputs.Jobs = jobs
		inputs.Files = append(inputs.Files, stats)
		a.metrics.AddSkippedRecords(a.runID, "job_log", stats.Skipped)

		if a.conf.GPUUtilFile != "" {
			index, stats, err := loader.LoadGPUUtilization(ctx, a.conf.GPUUtilFile, a.conf.SkipMalformed)
			if err != nil {
				return err
			}
			inputs.GPU = index
			inputs.Files = append(inputs.Files, stats)
			a.metrics.AddSkippedRecords(a.runID, PassGPU, stats.Skipped)
		}

		if a.conf.CPUUtilFile != "" {
			index, stats, err := loader.LoadCPUUtilization(ctx, a.conf.CPUUtilFile, a.conf.SkipMalformed)
			if err != nil {
				return err
			}
			inputs.CPU = index
			inputs.Files = append(inputs.Files, stats)
			a.metrics.AddSkippedRecords(a.runID, PassCPU, stats.Skipped)
		}

		if a.conf.MemUtilFile != "" {
			index, stats, err := loader.LoadMemoryUtilization(ctx, a.conf.MemUtilFile, a.conf.SkipMalformed)
			if err != nil {
				return err
			}
			inputs.Memory = index
			inputs.Files = append(inputs.Files, stats)
			a.metrics.AddSkippedRecords(a.runID, PassMemory, stats.Skipped)
		}

		if a.conf.MachineListFile != "" {
			capacity, err := loader.LoadMachineList(a.conf.MachineListFile)
			if err != nil {
				return err
			}
			inputs.Capacity = capacity
		}
		return nil
	})
	if err != nil {
		domain.LogErrorWithoutStacktrace(a.logger, "Failed to load inputs.", zap.Error(err))
		return nil, err
	}

	return inputs, nil
}

// Run computes the lifecycle distributions, every utilization pass for which a trace was loaded, and
// the per-machine overlap summaries.
func (a *Analysis) Run(ctx context.Context, inputs *Inputs) (*Report, error) {
	report := &Report{
		RunID:      a.runID,
		StartedAt:  time.Now(),
		Options:    a.opts,
		Convention: a.convention,
		Jobs:       len(inputs.Jobs),
		Files:      inputs.Files,
	}

	for _, job := range inputs.Jobs {
		a.metrics.ObserveJob(a.runID, job)
		if job.HasAttempts() {
			report.JobsWithAttempts++
		}
		if job.StillRunning() {
			report.StillRunning++
		}
	}
	a.logger.Info("Starting analysis.", zap.Int("jobs", report.Jobs), zap.Int("jobs_with_attempts", report.JobsWithAttempts),
		zap.Int("still_running", report.StillRunning))

	lifecycleStart := time.Now()
	report.Lifecycle = lifecycleDistributions(inputs.Jobs, a.opts.CanonicalGPUCounts)
	a.observePass(passLifecycle, lifecycleStart)

	if inputs.GPU != nil {
		for _, variant := range a.gpuVariants() {
			pass, err := a.aggregateGPU(ctx, variant.name, variant.opts, inputs)
			if err != nil {
				return nil, err
			}
			report.Utilization = append(report.Utilization, pass)
		}
	} else {
		a.logger.Warn("No GPU utilization trace given; skipping GPU utilization passes.")
	}

	for _, host := range []struct {
		name  string
		index *utilization.HostIndex
	}{{name: PassCPU, index: inputs.CPU}, {name: PassMemory, index: inputs.Memory}} {
		if host.index == nil {
			continue
		}
		pass, err := a.aggregateHost(ctx, host.name, host.index, inputs)
		if err != nil {
			return nil, err
		}
		report.Utilization = append(report.Utilization, pass)
	}

	err := a.timed(passOverlap, func() error {
		scheduled := trace.WithAttempts(inputs.Jobs)
		machines, err := overlap.NewAnalyzer(inputs.Capacity, a.convention, a.opts.Workers, a.logger).Analyze(ctx, scheduled)
		if err != nil {
			return err
		}
		for _, summary := range machines {
			a.metrics.ObserveMachine(a.runID, summary)
		}
		report.Machines = machines
		return nil
	})
	if err != nil {
		domain.LogErrorWithoutStacktrace(a.logger, "Overlap analysis failed.", zap.Error(err))
		return nil, err
	}

	report.Elapsed = time.Since(report.StartedAt)
	a.logger.Info("Analysis complete.", zap.Int("distributions", len(report.Distributions())),
		zap.Int("machines", len(report.Machines)), zap.Duration("elapsed", timex.Round(report.Elapsed, 3)))
	return report, nil
}

type gpuVariant struct {
	name string
	opts utilization.Options
}

// gpuVariants are the configured pass plus the large-job views. The configured pass keeps its name
// even when its filters match one of the views.
func (a *Analysis) gpuVariants() []gpuVariant {
	large := a.opts
	large.OnlyLargeJobs = true
	large.OnlyDedicatedServers = false

	dedicated := large
	dedicated.OnlyDedicatedServers = true

	return []gpuVariant{
		{name: PassGPU, opts: a.opts},
		{name: PassGPULarge, opts: large},
		{name: PassGPULargeDedicated, opts: dedicated},
	}
}

func (a *Analysis) aggregateGPU(ctx context.Context, name string, opts utilization.Options, inputs *Inputs) (*UtilizationPass, error) {
	var pass *UtilizationPass
	err := a.timed(name, func() error {
		buckets, stats, err := utilization.NewAggregator(opts, a.logger).AggregateGPU(ctx, inputs.Jobs, inputs.GPU)
		if err != nil {
			return err
		}
		pass = a.newPass(name, opts, buckets, stats)
		return nil
	})
	if err != nil {
		domain.LogErrorWithoutStacktrace(a.logger, "GPU utilization pass failed.", zap.String("pass", name), zap.Error(err))
		return nil, err
	}
	return pass, nil
}

func (a *Analysis) aggregateHost(ctx context.Context, name string, index *utilization.HostIndex, inputs *Inputs) (*UtilizationPass, error) {
	var pass *UtilizationPass
	err := a.timed(name, func() error {
		buckets, stats, err := utilization.NewAggregator(a.opts, a.logger).AggregateHost(ctx, inputs.Jobs, index)
		if err != nil {
			return err
		}
		pass = a.newPass(name, a.opts, buckets, stats)
		return nil
	})
	if err != nil {
		domain.LogErrorWithoutStacktrace(a.logger, "Host utilization pass failed.", zap.String("pass", name), zap.Error(err))
		return nil, err
	}
	return pass, nil
}

func (a *Analysis) newPass(name string, opts utilization.Options, buckets *utilization.Buckets, stats *utilization.AggregationStats) *UtilizationPass {
	a.metrics.ObserveAggregation(a.runID, name, buckets, stats)
	a.sugarLog.Infof("Utilization pass \"%s\": %v", name, stats)

	return &UtilizationPass{
		Name:          name,
		Options:       opts,
		Buckets:       buckets,
		Stats:         stats,
		Distributions: bucketDistributions(fmt.Sprintf(utilizationMetricPattern, name), buckets),
	}
}
