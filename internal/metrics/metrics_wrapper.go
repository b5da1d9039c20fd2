package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
)

const (
	namespace = "trace_analyzer"
)

var percentBuckets = prometheus.LinearBuckets(0, 10, 11)

var minuteBuckets = []float64{1, 5, 10, 30, 60 /* 1 hr */, 180, 360, 720, 1440 /* 1 day */, 4320, 10080 /* 1 week */, 43200 /* 30 days */}

// PrometheusMetricsWrapper is a simple wrapper around the metrics of one analysis run. The metrics live
// in their own registry; the run exports them once, to a textfile, when it finishes.
type PrometheusMetricsWrapper struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	JobsLoaded     *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec

	// Exclusions counts, per aggregation pass, what was left out and why.
	Exclusions       *prometheus.CounterVec
	SamplesCollected *prometheus.CounterVec

	UtilizationPercent   *prometheus.HistogramVec
	QueueingDelayMinutes *prometheus.HistogramVec
	RunTimeMinutes       *prometheus.HistogramVec

	MachinePeakConcurrency       *prometheus.GaugeVec
	MachineOversubscriptionRatio *prometheus.GaugeVec

	// PassDurationSeconds is the wall-clock time each step of the run took.
	PassDurationSeconds *prometheus.GaugeVec
}

// NewPrometheusMetricsWrapper creates and registers all the metrics encapsulated by the
// PrometheusMetricsWrapper struct.
func NewPrometheusMetricsWrapper(logger *zap.Logger) (*PrometheusMetricsWrapper, []error) {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}

	metricsWrapper := &PrometheusMetricsWrapper{
		logger:   logger,
		registry: prometheus.NewRegistry(),

		// Counter metrics.
		JobsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "loaded_total",
			Help:      "Jobs built from the job log, by final status.",
		}, []string{"run_id", "status"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "records_skipped_total",
			Help:      "Malformed records dropped while loading an input file.",
		}, []string{"run_id", "input"}),
		Exclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "utilization",
			Name:      "exclusions_total",
		}, []string{"run_id", "pass", "reason"}),
		SamplesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "utilization",
			Name:      "samples_total",
		}, []string{"run_id", "pass"}),

		// Histogram metrics.
		UtilizationPercent: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "utilization",
			Name:      "percent",
			Buckets:   percentBuckets,
		}, []string{"run_id", "pass"}),
		QueueingDelayMinutes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "queueing_delay_minutes",
			Buckets:   minuteBuckets,
		}, []string{"run_id", "status"}),
		RunTimeMinutes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_time_minutes",
			Buckets:   minuteBuckets,
		}, []string{"run_id", "status"}),

		// Gauge metrics.
		MachinePeakConcurrency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "machine",
			Name:      "peak_concurrency",
			Help:      "Largest number of attempts that shared the machine at once.",
		}, []string{"run_id", "machine"}),
		MachineOversubscriptionRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "machine",
			Name:      "oversubscription_ratio",
			Help:      "Peak concurrency divided by the machine's GPU count.",
		}, []string{"run_id", "machine"}),
		PassDurationSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "pass_duration_seconds",
		}, []string{"run_id", "pass"}),
	}

	errs := make([]error, 0)
	collectors := map[string]prometheus.Collector{
		"JobsLoaded":                   metricsWrapper.JobsLoaded,
		"RecordsSkipped":               metricsWrapper.RecordsSkipped,
		"Exclusions":                   metricsWrapper.Exclusions,
		"SamplesCollected":             metricsWrapper.SamplesCollected,
		"UtilizationPercent":           metricsWrapper.UtilizationPercent,
		"QueueingDelayMinutes":         metricsWrapper.QueueingDelayMinutes,
		"RunTimeMinutes":               metricsWrapper.RunTimeMinutes,
		"MachinePeakConcurrency":       metricsWrapper.MachinePeakConcurrency,
		"MachineOversubscriptionRatio": metricsWrapper.MachineOversubscriptionRatio,
		"PassDurationSeconds":          metricsWrapper.PassDurationSeconds,
	}
	for name, collector := range collectors {
		if err := metricsWrapper.registry.Register(collector); err != nil {
			metricsWrapper.logger.Error("Failed to register Prometheus metric.", zap.String("metric", name), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return metricsWrapper, errs
	} else {
		return metricsWrapper, nil
	}
}

// ObserveJob records a loaded job and its lifecycle metrics, when known.
func (m *PrometheusMetricsWrapper) ObserveJob(runId string, job *trace.Job) {
	labels := prometheus.Labels{"run_id": runId, "status": job.Status.String()}
	m.JobsLoaded.With(labels).Inc()

	if delay, ok := job.QueueingDelay(); ok {
		m.QueueingDelayMinutes.With(labels).Observe(delay)
	}
	if runTime, ok := job.RunTime(); ok {
		m.RunTimeMinutes.With(labels).Observe(runTime)
	}
}

func (m *PrometheusMetricsWrapper) AddSkippedRecords(runId string, input string, skipped int) {
	m.RecordsSkipped.With(prometheus.Labels{"run_id": runId, "input": input}).Add(float64(skipped))
}

// ObserveAggregation records the exclusion counters and the samples of one utilization pass.
func (m *PrometheusMetricsWrapper) ObserveAggregation(runId string, pass string, buckets *utilization.Buckets, stats *utilization.AggregationStats) {
	for _, exclusion := range stats.Exclusions() {
		m.Exclusions.With(prometheus.Labels{"run_id": runId, "pass": pass, "reason": exclusion.Reason}).Add(float64(exclusion.Count))
	}
	m.SamplesCollected.With(prometheus.Labels{"run_id": runId, "pass": pass}).Add(float64(stats.Samples))

	histogram := m.UtilizationPercent.With(prometheus.Labels{"run_id": runId, "pass": pass})
	for _, key := range buckets.Keys() {
		for _, value := range buckets.Get(key) {
			histogram.Observe(value)
		}
	}
}

// ObserveMachine records the overlap metrics of one machine. Unknown ratios are not exported.
func (m *PrometheusMetricsWrapper) ObserveMachine(runId string, summary *overlap.MachineSummary) {
	labels := prometheus.Labels{"run_id": runId, "machine": summary.Machine}
	m.MachinePeakConcurrency.With(labels).Set(float64(summary.PeakConcurrency))
	if summary.OversubscriptionRatio != nil {
		m.MachineOversubscriptionRatio.With(labels).Set(*summary.OversubscriptionRatio)
	}
}

func (m *PrometheusMetricsWrapper) SetPassDuration(runId string, pass string, seconds float64) {
	m.PassDurationSeconds.With(prometheus.Labels{"run_id": runId, "pass": pass}).Set(seconds)
}

// WriteTextfile writes every metric in the Prometheus text exposition format, for the node exporter's
// textfile collector.
func (m *PrometheusMetricsWrapper) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		m.logger.Error("Failed to write metrics textfile.", zap.String("path", path), zap.Error(err))
		return err
	}

	m.logger.Debug("Wrote metrics textfile.", zap.String("path", path))
	return nil
}
