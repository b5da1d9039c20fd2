package report_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhangjyr/gocsv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/scusemua/trace-analyzer/m/v2/internal/analysis"
	"github.com/scusemua/trace-analyzer/m/v2/internal/loader"
	"github.com/scusemua/trace-analyzer/m/v2/internal/overlap"
	"github.com/scusemua/trace-analyzer/m/v2/internal/report"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/statistics"
)

func distribution(metric string, group string, samples ...float64) *analysis.Distribution {
	return &analysis.Distribution{Metric: metric, Group: group, Samples: samples, Summary: statistics.Summarize(samples)}
}

func sampleReport() *analysis.Report {
	makespan, ratio, capacity := 30.0, 0.25, 8

	return &analysis.Report{
		RunID:      "run-1",
		StartedAt:  time.Date(2017, 10, 9, 7, 0, 0, 0, time.UTC),
		Elapsed:    1500 * time.Millisecond,
		Options:    utilization.DefaultOptions(),
		Convention: overlap.EndFirst,
		Jobs:       3,
		Lifecycle: []*analysis.Distribution{
			distribution(analysis.MetricRunTime, analysis.GroupAll, 30, 10, 20),
			distribution(analysis.MetricRunTime, "status=Killed", 5),
		},
		Utilization: []*analysis.UtilizationPass{{
			Name:          analysis.PassGPU,
			Options:       utilization.DefaultOptions(),
			Stats:         &utilization.AggregationStats{NoAttempts: 1, Samples: 2},
			Distributions: []*analysis.Distribution{distribution("gpu_util_percent", "status=Pass,gpus=1", 50, 100)},
		}},
		Machines: []*overlap.MachineSummary{
			{Machine: "m1", TotalAttempts: 2, CompleteAttempts: 2, PeakConcurrency: 2, Makespan: &makespan, Capacity: &capacity, OversubscriptionRatio: &ratio},
			{Machine: "m2", TotalAttempts: 1},
		},
		Files: []*loader.LoadStats{{Path: "jobs.json", Rows: 3}},
	}
}

var _ = Describe("Report", func() {
	It("should list CDF points only for distributions with at least two samples", func() {
		rows := report.CDFRows(sampleReport().Distributions())

		Expect(rows).To(HaveLen(5))
		Expect(*rows[0]).To(Equal(report.CDFRow{Metric: analysis.MetricRunTime, Group: analysis.GroupAll, Value: 10, Percentile: 0}))
		Expect(*rows[2]).To(Equal(report.CDFRow{Metric: analysis.MetricRunTime, Group: analysis.GroupAll, Value: 30, Percentile: 100}))
		Expect(rows[4].Group).To(Equal("status=Pass,gpus=1"))
	})

	It("should summarize every distribution", func() {
		rows := report.SummaryRows(sampleReport().Distributions())

		Expect(rows).To(HaveLen(3))
		Expect(rows[0].Median).To(Equal(20.0))
		Expect(rows[1].Count).To(Equal(1))
	})

	It("should leave unknown machine values empty", func() {
		rows := report.MachineRows(sampleReport().Machines)

		Expect(rows[0].OversubscriptionRatio).To(Equal("0.25"))
		Expect(rows[0].Capacity).To(Equal("8"))
		Expect(rows[1].MakespanMinutes).To(BeEmpty())
		Expect(rows[1].OversubscriptionRatio).To(BeEmpty())
	})

	It("should write every output file and a manifest listing them", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "out")
		rep := sampleReport()

		paths, err := report.NewWriter(dir, zap.NewNop()).Write(rep, report.NewManifest(rep))
		Expect(err).To(BeNil())
		Expect(paths).To(HaveLen(4))

		file, err := os.Open(filepath.Join(dir, report.MachinesFile))
		Expect(err).To(BeNil())
		defer file.Close()

		machines := []*report.MachineRow{}
		Expect(gocsv.UnmarshalFile(file, &machines)).To(Succeed())
		Expect(machines).To(HaveLen(2))
		Expect(machines[1].Machine).To(Equal("m2"))

		content, err := os.ReadFile(filepath.Join(dir, report.ManifestFile))
		Expect(err).To(BeNil())

		var manifest report.Manifest
		Expect(yaml.Unmarshal(content, &manifest)).To(Succeed())
		Expect(manifest.RunID).To(Equal("run-1"))
		Expect(manifest.StartedAt).To(Equal("2017-10-09 07:00:00"))
		Expect(manifest.ElapsedSeconds).To(Equal(1.5))
		Expect(manifest.BoundaryConvention).To(Equal("end-first"))
		Expect(manifest.GPUCounts).To(Equal([]int{1, 4, 8, 16}))
		Expect(manifest.Passes).To(HaveLen(1))
		Expect(manifest.Passes[0].Stats.NoAttempts).To(Equal(1))
		Expect(manifest.Outputs).To(ConsistOf(paths))
	})
})
