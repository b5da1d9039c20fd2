package analysis

import (
	"fmt"
	"sort"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/statistics"
)

const (
	MetricRunTime       = "run_time_minutes"
	MetricQueueingDelay = "queueing_delay_minutes"

	GroupAll = "all"
)

// Distribution is one named group of samples, e.g. the run times of killed jobs.
type Distribution struct {
	Metric  string
	Group   string
	Samples []float64
	Summary statistics.Summary
}

func newDistribution(metric string, group string, samples []float64) *Distribution {
	return &Distribution{
		Metric:  metric,
		Group:   group,
		Samples: samples,
		Summary: statistics.Summarize(samples),
	}
}

// HasCDF reports whether there are enough samples to plot a CDF.
func (d *Distribution) HasCDF() bool {
	return statistics.CanSummarize(len(d.Samples))
}

func (d *Distribution) String() string {
	return fmt.Sprintf("%s[%s]: %v", d.Metric, d.Group, d.Summary)
}

func statusGroup(status trace.JobStatus) string {
	return "status=" + status.String()
}

func gpuGroup(gpus int) string {
	return fmt.Sprintf("gpus=%d", gpus)
}

// lifecycleDistributions groups the run time and queueing delay of every job by status and by GPU
// class. Jobs whose metric is unknown contribute nothing to that metric.
func lifecycleDistributions(jobs []*trace.Job, gpuCounts []int) []*Distribution {
	metrics := []struct {
		name  string
		value func(*trace.Job) (float64, bool)
	}{
		{name: MetricRunTime, value: (*trace.Job).RunTime},
		{name: MetricQueueingDelay, value: (*trace.Job).QueueingDelay},
	}

	canonical := make(map[int]struct{}, len(gpuCounts))
	for _, count := range gpuCounts {
		canonical[count] = struct{}{}
	}

	distributions := make([]*Distribution, 0)
	for _, metric := range metrics {
		groups := orderedmap.NewOrderedMap[string, []float64]()
		groups.Set(GroupAll, []float64{})
		for _, status := range trace.Statuses {
			groups.Set(statusGroup(status), []float64{})
		}
		for _, count := range gpuCounts {
			groups.Set(gpuGroup(count), []float64{})
		}

		for _, job := range jobs {
			value, ok := metric.value(job)
			if !ok {
				continue
			}
			appendTo(groups, GroupAll, value)
			appendTo(groups, statusGroup(job.Status), value)
			if gpus, ok := job.RequestedGPUCount(); ok {
				if _, isCanonical := canonical[gpus]; isCanonical {
					appendTo(groups, gpuGroup(gpus), value)
				}
			}
		}

		for el := groups.Front(); el != nil; el = el.Next() {
			distributions = append(distributions, newDistribution(metric.name, el.Key, el.Value))
		}
	}

	return distributions
}

func appendTo(groups *orderedmap.OrderedMap[string, []float64], group string, value float64) {
	samples, _ := groups.Get(group)
	groups.Set(group, append(samples, value))
}

// bucketDistributions turns the buckets of one utilization pass into distributions, one per
// (status, GPU class).
func bucketDistributions(metric string, buckets *utilization.Buckets) []*Distribution {
	keys := append([]utilization.BucketKey(nil), buckets.Keys()...)
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].Status != keys[j].Status {
			return keys[i].Status < keys[j].Status
		}
		return keys[i].GPUs < keys[j].GPUs
	})

	distributions := make([]*Distribution, 0, len(keys))
	for _, key := range keys {
		group := fmt.Sprintf("%s,%s", statusGroup(key.Status), gpuGroup(key.GPUs))
		distributions = append(distributions, newDistribution(metric, group, buckets.Get(key)))
	}
	return distributions
}
