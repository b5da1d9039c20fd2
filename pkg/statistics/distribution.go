package statistics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MinCDFSamples is the smallest sample count EmpiricalCDF accepts.
const MinCDFSamples = 2

// Summary describes one distribution of samples.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

func (s Summary) String() string {
	return fmt.Sprintf("Summary[N=%d, Mean=%.3f, StdDev=%.3f, Min=%.3f, Median=%.3f, Max=%.3f]",
		s.Count, s.Mean, s.StdDev, s.Min, s.Median, s.Max)
}

// CanSummarize reports whether n samples are enough to build an empirical CDF.
func CanSummarize(n int) bool {
	return n >= MinCDFSamples
}

// EmpiricalCDF returns the samples sorted ascending together with the percentile of each position,
// 100 * i / (n - 1). The input is not modified.
//
// EmpiricalCDF panics when fewer than MinCDFSamples samples are given.
func EmpiricalCDF(samples []float64) ([]float64, []float64) {
	n := len(samples)
	if !CanSummarize(n) {
		panic(fmt.Sprintf("EmpiricalCDF requires at least %d samples, got %d", MinCDFSamples, n))
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	percentiles := make([]float64, n)
	for i := range percentiles {
		percentiles[i] = 100 * float64(i) / float64(n-1)
	}

	return sorted, percentiles
}

// Summarize computes count, mean, population standard deviation, minimum, median and maximum.
// An empty input yields a zero Summary.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	acc := NewAccumulator()
	for _, sample := range samples {
		acc.AddFloat(sample)
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(samples),
		Mean:   acc.Avg().InexactFloat64(),
		StdDev: acc.PopulationStandardDeviation().InexactFloat64(),
		Min:    acc.Min().InexactFloat64(),
		Median: median(sorted),
		Max:    acc.Max().InexactFloat64(),
	}
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return decimal.NewFromFloat(sorted[mid-1]).
		Add(decimal.NewFromFloat(sorted[mid])).
		Div(decimal.NewFromInt(2)).
		InexactFloat64()
}
