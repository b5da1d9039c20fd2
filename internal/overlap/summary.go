package overlap

import (
	"fmt"
	"time"

	"github.com/scusemua/trace-analyzer/m/v2/pkg/statistics"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// MachineSummary describes how one machine was shared by the attempts placed on it. Durations are in
// minutes. Nil fields could not be computed.
type MachineSummary struct {
	Machine               string
	TotalAttempts         int
	CompleteAttempts      int
	PeakConcurrency       int
	Makespan              *float64
	MeanAttemptLength     *float64
	Capacity              *int
	OversubscriptionRatio *float64
}

func (s *MachineSummary) String() string {
	return fmt.Sprintf("MachineSummary[Machine=%s, Attempts=%d, Peak=%d, Makespan=%s, MeanLength=%s, Oversubscription=%s]",
		s.Machine, s.TotalAttempts, s.PeakConcurrency, optional(s.Makespan), optional(s.MeanAttemptLength), optional(s.OversubscriptionRatio))
}

func optional(v *float64) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%.3f", *v)
}

// SummarizeMachine computes the overlap metrics of one machine from its windows.
func SummarizeMachine(machine string, windows []Window, capacity CapacityDirectory, convention BoundaryConvention) *MachineSummary {
	summary := &MachineSummary{
		Machine:         machine,
		TotalAttempts:   len(windows),
		PeakConcurrency: PeakConcurrency(windows, convention),
	}

	var earliest, latest time.Time
	lengths := statistics.NewAccumulator()
	for _, w := range windows {
		if !w.Complete() {
			continue
		}
		if lengths.N() == 0 || w.Start.Before(earliest) {
			earliest = *w.Start
		}
		if lengths.N() == 0 || w.End.After(latest) {
			latest = *w.End
		}
		lengths.AddFloat(tracetime.DurationToMinutes(w.End.Sub(*w.Start)))
	}

	summary.CompleteAttempts = int(lengths.N())
	if lengths.N() > 0 {
		makespan := tracetime.DurationToMinutes(latest.Sub(earliest))
		mean := lengths.Avg().InexactFloat64()
		summary.Makespan = &makespan
		summary.MeanAttemptLength = &mean
	}

	if gpus, ok := capacity.Capacity(machine); ok {
		ratio := float64(summary.PeakConcurrency) / float64(gpus)
		summary.Capacity = &gpus
		summary.OversubscriptionRatio = &ratio
	}

	return summary
}
