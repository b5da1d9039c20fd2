package overlap_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

var epoch = time.Date(2017, 10, 9, 7, 0, 0, 0, time.UTC)

func minute(n int) *time.Time {
	ts := epoch.Add(time.Duration(n) * time.Minute)
	return &ts
}

func window(start int, end int) overlap.Window {
	return overlap.Window{Start: minute(start), End: minute(end)}
}

func str(s string) *string {
	return &s
}

func textAt(n int) *string {
	return str(tracetime.Format(*minute(n)))
}

func jobOn(start int, end int, machines ...string) *trace.Job {
	details := make([]trace.PlacementRecord, 0, len(machines))
	for _, machine := range machines {
		details = append(details, trace.PlacementRecord{IP: machine, GPUs: []string{"gpu0"}})
	}

	job, err := trace.NewJob(&trace.JobRecord{
		Status:   "Pass",
		Attempts: []trace.AttemptRecord{{StartTime: textAt(start), EndTime: textAt(end), Detail: details}},
	})
	Expect(err).To(BeNil())
	return job
}

var _ = Describe("PeakConcurrency", func() {
	It("should find the largest number of simultaneously open windows", func() {
		windows := []overlap.Window{window(0, 10), window(5, 15), window(20, 30)}
		Expect(overlap.PeakConcurrency(windows, overlap.EndFirst)).To(Equal(2))
		Expect(overlap.PeakConcurrency(windows, overlap.StartFirst)).To(Equal(2))
	})

	It("should not be affected by input order", func() {
		windows := []overlap.Window{window(20, 30), window(5, 15), window(0, 10), window(6, 8)}
		Expect(overlap.PeakConcurrency(windows, overlap.EndFirst)).To(Equal(3))
	})

	It("should treat zero-length windows as empty under end-first", func() {
		lone := []overlap.Window{window(5, 5)}
		Expect(overlap.PeakConcurrency(lone, overlap.EndFirst)).To(Equal(0))
		Expect(overlap.PeakConcurrency(lone, overlap.StartFirst)).To(Equal(1))

		nested := []overlap.Window{window(0, 10), window(5, 5)}
		Expect(overlap.PeakConcurrency(nested, overlap.EndFirst)).To(Equal(1))
		Expect(overlap.PeakConcurrency(nested, overlap.StartFirst)).To(Equal(2))

		summary := overlap.SummarizeMachine("m1", lone, nil, overlap.EndFirst)
		Expect(summary.TotalAttempts).To(Equal(1))
		Expect(summary.PeakConcurrency).To(Equal(0))
		Expect(*summary.Makespan).To(Equal(0.0))
	})

	It("should apply the boundary convention to touching windows", func() {
		windows := []overlap.Window{window(0, 10), window(10, 20)}
		Expect(overlap.PeakConcurrency(windows, overlap.EndFirst)).To(Equal(1))
		Expect(overlap.PeakConcurrency(windows, overlap.StartFirst)).To(Equal(2))
	})

	It("should ignore incomplete windows", func() {
		windows := []overlap.Window{window(0, 10), {Start: minute(2)}, {End: minute(5)}}
		Expect(overlap.PeakConcurrency(windows, overlap.EndFirst)).To(Equal(1))
		Expect(overlap.PeakConcurrency(nil, overlap.EndFirst)).To(Equal(0))
	})
})

var _ = Describe("BoundaryConvention", func() {
	It("should parse the configured names", func() {
		convention, err := overlap.ParseBoundaryConvention(domain.BoundaryStartFirst)
		Expect(err).To(BeNil())
		Expect(convention).To(Equal(overlap.StartFirst))

		convention, err = overlap.ParseBoundaryConvention("")
		Expect(err).To(BeNil())
		Expect(convention).To(Equal(overlap.EndFirst))
		Expect(convention.String()).To(Equal(domain.BoundaryEndFirst))

		_, err = overlap.ParseBoundaryConvention("whatever")
		Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())
	})
})

var _ = Describe("GroupByMachine", func() {
	It("should keep machines in first-seen order with one window per placement", func() {
		jobs := []*trace.Job{
			jobOn(0, 10, "m2", "m1"),
			jobOn(5, 15, "m1"),
			jobOn(20, 30, "m3", "m2"),
		}

		machines := overlap.GroupByMachine(jobs)
		Expect(machines.Keys()).To(Equal([]string{"m2", "m1", "m3"}))

		windows, ok := machines.Get("m1")
		Expect(ok).To(BeTrue())
		Expect(windows).To(HaveLen(2))
		Expect(*windows[1].Start).To(Equal(*minute(5)))
	})
})

var _ = Describe("SummarizeMachine", func() {
	It("should compute makespan, mean length and oversubscription", func() {
		windows := []overlap.Window{window(0, 10), window(5, 15), window(20, 30), {Start: minute(40)}}

		summary := overlap.SummarizeMachine("m1", windows, overlap.CapacityDirectory{"m1": 4}, overlap.EndFirst)
		Expect(summary.TotalAttempts).To(Equal(4))
		Expect(summary.CompleteAttempts).To(Equal(3))
		Expect(summary.PeakConcurrency).To(Equal(2))
		Expect(*summary.Makespan).To(Equal(30.0))
		Expect(*summary.MeanAttemptLength).To(Equal(10.0))
		Expect(*summary.Capacity).To(Equal(4))
		Expect(*summary.OversubscriptionRatio).To(Equal(0.5))
	})

	It("should leave the ratio absent for unknown or empty machines", func() {
		directory := overlap.CapacityDirectory{"m2": 0}

		summary := overlap.SummarizeMachine("m1", []overlap.Window{window(0, 1)}, directory, overlap.EndFirst)
		Expect(summary.OversubscriptionRatio).To(BeNil())

		summary = overlap.SummarizeMachine("m2", []overlap.Window{window(0, 1)}, directory, overlap.EndFirst)
		Expect(summary.Capacity).To(BeNil())
		Expect(summary.OversubscriptionRatio).To(BeNil())
	})

	It("should leave makespan and mean length absent without complete windows", func() {
		summary := overlap.SummarizeMachine("m1", []overlap.Window{{Start: minute(0)}}, nil, overlap.EndFirst)
		Expect(summary.TotalAttempts).To(Equal(1))
		Expect(summary.PeakConcurrency).To(Equal(0))
		Expect(summary.Makespan).To(BeNil())
		Expect(summary.MeanAttemptLength).To(BeNil())
	})
})

var _ = Describe("Analyzer", func() {
	It("should summarize every machine in first-seen order", func() {
		jobs := make([]*trace.Job, 0, 40)
		for i := 0; i < 40; i++ {
			jobs = append(jobs, jobOn(i, i+5, []string{"m9", "m3", "m7", "m1"}[i%4], "shared"))
		}

		analyzer := overlap.NewAnalyzer(overlap.CapacityDirectory{"shared": 8}, overlap.EndFirst, 4, zap.NewNop())
		summaries, err := analyzer.Analyze(context.Background(), jobs)
		Expect(err).To(BeNil())
		Expect(summaries).To(HaveLen(5))

		names := make([]string, 0, len(summaries))
		for _, summary := range summaries {
			names = append(names, summary.Machine)
		}
		Expect(names).To(Equal([]string{"m9", "shared", "m3", "m7", "m1"}))

		shared := summaries[1]
		Expect(shared.TotalAttempts).To(Equal(40))
		Expect(shared.PeakConcurrency).To(Equal(5))
		Expect(*shared.Makespan).To(Equal(44.0))
		Expect(*shared.OversubscriptionRatio).To(Equal(5.0 / 8.0))
		Expect(summaries[0].OversubscriptionRatio).To(BeNil())
	})

	It("should return nothing for an empty job list", func() {
		summaries, err := overlap.NewAnalyzer(nil, overlap.EndFirst, 2, zap.NewNop()).Analyze(context.Background(), nil)
		Expect(err).To(BeNil())
		Expect(summaries).To(BeEmpty())
	})
})
