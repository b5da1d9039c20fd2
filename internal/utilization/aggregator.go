package utilization

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

const (
	DefaultGPUsPerHost       = 8
	DefaultLargeJobThreshold = 8
)

var DefaultCanonicalGPUCounts = []int{1, 4, 8, 16}

type Options struct {
	// OnlyLargeJobs drops jobs requesting fewer than LargeJobThreshold GPUs.
	OnlyLargeJobs bool

	// OnlyDedicatedServers drops attempts spread over more machines than the request needs.
	OnlyDedicatedServers bool

	GPUsPerHost        int
	CanonicalGPUCounts []int
	LargeJobThreshold  int
	Workers            int
}

func DefaultOptions() Options {
	return Options{
		GPUsPerHost:        DefaultGPUsPerHost,
		CanonicalGPUCounts: DefaultCanonicalGPUCounts,
		LargeJobThreshold:  DefaultLargeJobThreshold,
		Workers:            1,
	}
}

// OptionsFromConfig builds aggregation options from the analysis configuration.
func OptionsFromConfig(conf *domain.AnalysisConfig) (Options, error) {
	counts, err := conf.NormalizeGPUCounts()
	if err != nil {
		return Options{}, err
	}

	return Options{
		OnlyLargeJobs:        conf.OnlyLargeJobs,
		OnlyDedicatedServers: conf.OnlyDedicated,
		GPUsPerHost:          conf.GPUsPerHost,
		CanonicalGPUCounts:   counts,
		LargeJobThreshold:    conf.LargeJobThreshold,
		Workers:              conf.Workers,
	}, nil
}

// Aggregator joins job attempts against per-minute utilization readings.
type Aggregator struct {
	opts      Options
	canonical map[int]struct{}

	logger   *zap.Logger
	sugarLog *zap.SugaredLogger
}

func NewAggregator(opts Options, logger *zap.Logger) *Aggregator {
	if opts.GPUsPerHost <= 0 {
		opts.GPUsPerHost = DefaultGPUsPerHost
	}
	if len(opts.CanonicalGPUCounts) == 0 {
		opts.CanonicalGPUCounts = DefaultCanonicalGPUCounts
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}

	aggregator := &Aggregator{
		opts:      opts,
		canonical: make(map[int]struct{}, len(opts.CanonicalGPUCounts)),
		logger:    logger,
		sugarLog:  logger.Sugar(),
	}
	for _, count := range opts.CanonicalGPUCounts {
		aggregator.canonical[count] = struct{}{}
	}

	return aggregator
}

// sampler appends the readings of one placement at one minute to out.
type sampler func(placement *trace.Placement, minute time.Time, key BucketKey, out *Buckets, stats *AggregationStats) error

// AggregateGPU collects the utilization percent of every GPU a job occupied, for every minute its
// attempts ran, grouped by the job's status and GPU class.
//
// A placement naming a GPU slot beyond the recorded row aborts the whole pass with ErrDataIntegrity.
func (a *Aggregator) AggregateGPU(ctx context.Context, jobs []*trace.Job, lookup GPULookup) (*Buckets, *AggregationStats, error) {
	return a.aggregate(ctx, "gpu", jobs, func(placement *trace.Placement, minute time.Time, key BucketKey, out *Buckets, stats *AggregationStats) error {
		readings, ok := lookup.GPUReadings(placement.Machine, minute)
		if !ok {
			stats.MissingSamples++
			return nil
		}

		for _, gpu := range placement.GPUs {
			if gpu.Slot >= len(readings) {
				return domain.Errorf(domain.ErrDataIntegrity, "machine %s at %s reports %d GPU(s), but %s (slot %d) was placed there",
					placement.Machine, tracetime.Format(minute), len(readings), gpu.Name, gpu.Slot)
			}

			reading := readings[gpu.Slot]
			if !reading.Available {
				stats.NAReadings++
				continue
			}
			out.Append(key, reading.Value)
			stats.Samples++
		}
		return nil
	})
}

// AggregateHost collects one host-level reading (CPU or memory percent) per machine and minute of
// every attempt.
func (a *Aggregator) AggregateHost(ctx context.Context, jobs []*trace.Job, lookup HostLookup) (*Buckets, *AggregationStats, error) {
	return a.aggregate(ctx, "host", jobs, func(placement *trace.Placement, minute time.Time, key BucketKey, out *Buckets, stats *AggregationStats) error {
		reading, ok := lookup.HostReading(placement.Machine, minute)
		if !ok {
			stats.MissingSamples++
			return nil
		}
		if !reading.Available {
			stats.NAReadings++
			return nil
		}
		out.Append(key, reading.Value)
		stats.Samples++
		return nil
	})
}

func (a *Aggregator) aggregate(ctx context.Context, kind string, jobs []*trace.Job, sample sampler) (*Buckets, *AggregationStats, error) {
	buckets := NewBuckets(a.opts.CanonicalGPUCounts)
	stats := &AggregationStats{}
	if len(jobs) == 0 {
		return buckets, stats, nil
	}

	workers := min(a.opts.Workers, len(jobs))
	chunkSize := (len(jobs) + workers - 1) / workers

	partialBuckets := make([]*Buckets, workers)
	partialStats := make([]*AggregationStats, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		if lo >= len(jobs) {
			break
		}
		hi := min(lo+chunkSize, len(jobs))

		partialBuckets[w] = NewBuckets(a.opts.CanonicalGPUCounts)
		partialStats[w] = &AggregationStats{}

		out, outStats, chunk := partialBuckets[w], partialStats[w], jobs[lo:hi]
		g.Go(func() error {
			for _, job := range chunk {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := a.walkJob(job, sample, out, outStats); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("Utilization aggregation failed.", zap.String("kind", kind), zap.Error(err))
		return nil, nil, err
	}

	for w := range partialBuckets {
		buckets.Merge(partialBuckets[w])
		if partialStats[w] != nil {
			stats.Merge(partialStats[w])
		}
	}

	a.sugarLog.Debugf("Aggregated %s utilization over %d job(s) with %d worker(s): %v", kind, len(jobs), workers, stats)
	return buckets, stats, nil
}

// admit applies the job-level filters and returns the bucket the job's samples go to.
func (a *Aggregator) admit(job *trace.Job, stats *AggregationStats) (BucketKey, bool) {
	gpus, ok := job.RequestedGPUCount()
	if !ok {
		stats.NoAttempts++
		return BucketKey{}, false
	}
	if _, canonical := a.canonical[gpus]; !canonical {
		stats.NonCanonicalSize++
		return BucketKey{}, false
	}
	if a.opts.OnlyLargeJobs && gpus < a.opts.LargeJobThreshold {
		stats.SmallJob++
		return BucketKey{}, false
	}
	return BucketKey{Status: job.Status, GPUs: gpus}, true
}

// dedicated reports whether an attempt uses no more machines than its request needs.
func (a *Aggregator) dedicated(attempt *trace.Attempt, requested int) bool {
	return attempt.NumMachines()*a.opts.GPUsPerHost <= requested
}

func (a *Aggregator) walkJob(job *trace.Job, sample sampler, out *Buckets, stats *AggregationStats) error {
	stats.JobsConsidered++

	key, ok := a.admit(job, stats)
	if !ok {
		return nil
	}
	stats.JobsIncluded++

	for _, attempt := range job.Attempts {
		if !attempt.Bounded() {
			stats.UnboundedAttempts++
			continue
		}
		if a.opts.OnlyDedicatedServers && !a.dedicated(attempt, key.GPUs) {
			stats.NonDedicated++
			continue
		}

		err := tracetime.EachMinute(*attempt.StartTime, *attempt.EndTime, func(minute time.Time) error {
			for i := range attempt.Placements {
				if err := sample(&attempt.Placements[i], minute, key, out, stats); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
