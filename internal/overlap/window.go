package overlap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// BoundaryConvention decides how an attempt ending at the same instant another one starts is counted.
type BoundaryConvention int

const (
	// EndFirst processes ends before starts at equal timestamps, so touching windows do not overlap.
	EndFirst BoundaryConvention = iota

	// StartFirst processes starts before ends at equal timestamps, so touching windows overlap.
	StartFirst
)

func (c BoundaryConvention) String() string {
	switch c {
	case EndFirst:
		return domain.BoundaryEndFirst
	case StartFirst:
		return domain.BoundaryStartFirst
	default:
		return fmt.Sprintf("BoundaryConvention(%d)", int(c))
	}
}

func ParseBoundaryConvention(text string) (BoundaryConvention, error) {
	switch strings.TrimSpace(text) {
	case "", domain.BoundaryEndFirst:
		return EndFirst, nil
	case domain.BoundaryStartFirst:
		return StartFirst, nil
	default:
		return EndFirst, domain.Errorf(domain.ErrFormat, "unknown boundary convention \"%s\"", text)
	}
}

// Window is the time one attempt spent on one machine. Either bound may be unknown.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) Complete() bool {
	return w.Start != nil && w.End != nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", tracetime.FormatOptional(w.Start), tracetime.FormatOptional(w.End))
}

// GroupByMachine collects one window per (machine, attempt) placement. Machines keep the order in
// which they were first seen in the job list.
func GroupByMachine(jobs []*trace.Job) *orderedmap.OrderedMap[string, []Window] {
	machines := orderedmap.NewOrderedMap[string, []Window]()
	for _, job := range jobs {
		for _, attempt := range job.Attempts {
			window := Window{Start: attempt.StartTime, End: attempt.EndTime}
			for _, placement := range attempt.Placements {
				windows, _ := machines.Get(placement.Machine)
				machines.Set(placement.Machine, append(windows, window))
			}
		}
	}
	return machines
}

type event struct {
	at    time.Time
	delta int
}

// PeakConcurrency sweeps the complete windows in time order and returns the largest number that were
// open at once. Incomplete windows are ignored.
//
// Under EndFirst every window is half-open, [start, end), so a zero-length window never counts as open
// and a machine whose only window has zero length peaks at 0. Under StartFirst it counts as open at
// its instant.
func PeakConcurrency(windows []Window, convention BoundaryConvention) int {
	events := make([]event, 0, 2*len(windows))
	for _, w := range windows {
		if !w.Complete() {
			continue
		}
		events = append(events, event{at: *w.Start, delta: 1}, event{at: *w.End, delta: -1})
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		if convention == StartFirst {
			return events[i].delta > events[j].delta
		}
		return events[i].delta < events[j].delta
	})

	current, peak := 0, 0
	for _, evt := range events {
		current += evt.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}
