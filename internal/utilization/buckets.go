package utilization

import (
	"fmt"

	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
)

// BucketKey groups samples by the final status of a job and its GPU class.
type BucketKey struct {
	Status trace.JobStatus
	GPUs   int
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%v/%d", k.Status, k.GPUs)
}

// Buckets maps every (status, GPU class) pair to the samples collected for it. Every key is present
// from construction on, so a bucket that received nothing reads as empty rather than missing.
type Buckets struct {
	keys    []BucketKey
	samples map[BucketKey][]float64
}

func NewBuckets(gpuCounts []int) *Buckets {
	b := &Buckets{
		keys:    make([]BucketKey, 0, len(trace.Statuses)*len(gpuCounts)),
		samples: make(map[BucketKey][]float64, len(trace.Statuses)*len(gpuCounts)),
	}
	for _, status := range trace.Statuses {
		for _, gpus := range gpuCounts {
			key := BucketKey{Status: status, GPUs: gpus}
			b.keys = append(b.keys, key)
			b.samples[key] = []float64{}
		}
	}
	return b
}

// Keys returns the keys in status-major order.
func (b *Buckets) Keys() []BucketKey {
	return b.keys
}

// Get returns the samples of a bucket, or an empty slice for a key that was never initialized.
func (b *Buckets) Get(key BucketKey) []float64 {
	if samples, ok := b.samples[key]; ok {
		return samples
	}
	return []float64{}
}

func (b *Buckets) Append(key BucketKey, values ...float64) {
	if _, ok := b.samples[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.samples[key] = append(b.samples[key], values...)
}

// Merge appends every bucket of other after the samples already held.
func (b *Buckets) Merge(other *Buckets) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		b.Append(key, other.samples[key]...)
	}
}

// Total is the number of samples across all buckets.
func (b *Buckets) Total() int {
	total := 0
	for _, samples := range b.samples {
		total += len(samples)
	}
	return total
}
