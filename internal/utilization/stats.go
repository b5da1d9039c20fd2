package utilization

import "fmt"

// AggregationStats counts what an aggregation pass left out and why. Jobs and attempts removed by a
// filter are kept apart from minutes that simply had no data.
type AggregationStats struct {
	JobsConsidered int `yaml:"jobs_considered"`
	JobsIncluded   int `yaml:"jobs_included"`

	NoAttempts        int `yaml:"no_attempts"`
	NonCanonicalSize  int `yaml:"non_canonical_size"`
	SmallJob          int `yaml:"small_job"`
	NonDedicated      int `yaml:"non_dedicated_attempt"`
	UnboundedAttempts int `yaml:"unbounded_attempt"`
	MissingSamples    int `yaml:"missing_sample"`
	NAReadings        int `yaml:"na_reading"`

	Samples int `yaml:"samples"`
}

func (s *AggregationStats) Merge(other *AggregationStats) {
	s.JobsConsidered += other.JobsConsidered
	s.JobsIncluded += other.JobsIncluded
	s.NoAttempts += other.NoAttempts
	s.NonCanonicalSize += other.NonCanonicalSize
	s.SmallJob += other.SmallJob
	s.NonDedicated += other.NonDedicated
	s.UnboundedAttempts += other.UnboundedAttempts
	s.MissingSamples += other.MissingSamples
	s.NAReadings += other.NAReadings
	s.Samples += other.Samples
}

// Exclusions returns the counters by reason, in a fixed order.
func (s *AggregationStats) Exclusions() []Exclusion {
	return []Exclusion{
		{Reason: "no_attempts", Count: s.NoAttempts},
		{Reason: "non_canonical_size", Count: s.NonCanonicalSize},
		{Reason: "small_job", Count: s.SmallJob},
		{Reason: "non_dedicated_attempt", Count: s.NonDedicated},
		{Reason: "unbounded_attempt", Count: s.UnboundedAttempts},
		{Reason: "missing_sample", Count: s.MissingSamples},
		{Reason: "na_reading", Count: s.NAReadings},
	}
}

type Exclusion struct {
	Reason string
	Count  int
}

func (s *AggregationStats) String() string {
	return fmt.Sprintf("AggregationStats[Jobs=%d/%d, Samples=%d, NoAttempts=%d, NonCanonical=%d, Small=%d, NonDedicated=%d, Unbounded=%d, Missing=%d, NA=%d]",
		s.JobsIncluded, s.JobsConsidered, s.Samples, s.NoAttempts, s.NonCanonicalSize, s.SmallJob,
		s.NonDedicated, s.UnboundedAttempts, s.MissingSamples, s.NAReadings)
}
