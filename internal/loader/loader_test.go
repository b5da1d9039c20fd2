package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/loader"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

func writeFile(dir string, name string, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

func minuteAt(text string) (t tracetime.Text) {
	Expect(t.UnmarshalText([]byte(text))).To(Succeed())
	return t
}

const jobLog = `[
  {"status": "Pass", "vc": "vc1", "jobid": "application_1", "user": "u1",
   "submitted_time": "2017-10-09 07:00:00 PDT",
   "attempts": [{"start_time": "2017-10-09 07:01:00 PDT", "end_time": "2017-10-09 07:31:00 PDT",
                 "detail": [{"ip": "m1", "gpus": ["gpu0", "gpu1"]}]}]},
  {"status": "Killed", "vc": "vc2", "jobid": "application_2", "user": "u2",
   "submitted_time": "2017-10-09 07:05:00", "attempts": []},
  {"status": "Lost", "vc": "vc2", "jobid": "application_3", "user": "u2",
   "submitted_time": null, "attempts": []}
]`

var _ = Describe("Loader", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
		loader.SetLogger(zap.NewNop())
	})

	Context("job log", func() {
		It("should strip zone suffixes and drop malformed records when asked to", func() {
			path := writeFile(dir, "jobs.json", jobLog)

			jobs, stats, err := loader.LoadJobs(path, true)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
			Expect(stats.Skipped).To(Equal(1))

			delay, ok := jobs[0].QueueingDelay()
			Expect(ok).To(BeTrue())
			Expect(delay).To(Equal(1.0))
			Expect(jobs[1].Status).To(Equal(trace.StatusKilled))
			Expect(jobs[1].HasAttempts()).To(BeFalse())
		})

		It("should abort on a malformed record by default", func() {
			path := writeFile(dir, "jobs.json", jobLog)

			_, _, err := loader.LoadJobs(path, false)
			Expect(errors.Is(err, domain.ErrMalformedRecord)).To(BeTrue())
		})

		It("should reject an empty log and invalid JSON", func() {
			_, err := loader.LoadJobRecords(writeFile(dir, "empty.json", "[]"))
			Expect(errors.Is(err, domain.ErrEmptyTrace)).To(BeTrue())

			_, err = loader.LoadJobRecords(writeFile(dir, "broken.json", "[{"))
			Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())

			_, err = loader.LoadJobRecords("")
			Expect(errors.Is(err, domain.ErrNoPathSpecified)).To(BeTrue())
		})
	})

	Context("GPU utilization", func() {
		It("should index every row and trim unrecorded trailing slots", func() {
			path := writeFile(dir, "gpu.csv", `time,machineId,gpu0_util,gpu1_util,gpu2_util,gpu3_util,gpu4_util,gpu5_util,gpu6_util,gpu7_util
2017-10-09 07:02:00 PDT,m1,10,NA,30,40,,,,
2017-10-09 07:03:00 PDT,m1,11,21,31,41,51,61,71,81
`)

			index, stats, err := loader.LoadGPUUtilization(ctx, path, false)
			Expect(err).To(BeNil())
			Expect(stats.Rows).To(Equal(2))
			Expect(index.Len()).To(Equal(2))

			readings, ok := index.GPUReadings("m1", minuteAt("2017-10-09 07:02:00").Time)
			Expect(ok).To(BeTrue())
			Expect(readings).To(Equal([]utilization.Reading{
				utilization.Available(10), {}, utilization.Available(30), utilization.Available(40),
			}))

			readings, ok = index.GPUReadings("m1", minuteAt("2017-10-09 07:03:00").Time)
			Expect(ok).To(BeTrue())
			Expect(readings).To(HaveLen(8))
		})

		It("should not carry cells over from a previous row", func() {
			path := writeFile(dir, "gpu.csv", `time,machineId,gpu0_util,gpu1_util
2017-10-09 07:02:00,m1,10,20
2017-10-09 07:02:00,m2,15,
`)

			index, _, err := loader.LoadGPUUtilization(ctx, path, false)
			Expect(err).To(BeNil())

			readings, _ := index.GPUReadings("m2", minuteAt("2017-10-09 07:02:00").Time)
			Expect(readings).To(Equal([]utilization.Reading{utilization.Available(15)}))
		})

		It("should fail on a malformed reading unless malformed rows are skipped", func() {
			content := `time,machineId,gpu0_util,gpu1_util
2017-10-09 07:02:00,m1,ten,20
2017-10-09 07:03:00,m1,10,20
`
			_, _, err := loader.LoadGPUUtilization(ctx, writeFile(dir, "gpu.csv", content), false)
			Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("line 2"))

			index, stats, err := loader.LoadGPUUtilization(ctx, writeFile(dir, "gpu.csv", content), true)
			Expect(err).To(BeNil())
			Expect(stats.Skipped).To(Equal(1))
			Expect(index.Len()).To(Equal(1))
		})

		It("should reject an empty cell followed by a recorded one", func() {
			path := writeFile(dir, "gpu.csv", `time,machineId,gpu0_util,gpu1_util
2017-10-09 07:02:00,m1,,20
`)
			_, _, err := loader.LoadGPUUtilization(ctx, path, false)
			Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())
		})
	})

	Context("host utilization", func() {
		It("should load CPU percents and treat empty cells as NA", func() {
			path := writeFile(dir, "cpu.csv", `time,machine_id,cpu_util
2017-10-09 07:02:00 PST,m1,55.5
2017-10-09 07:03:00 PST,m1,
2017-10-09 07:04:00 PST,m1,NA
`)

			index, stats, err := loader.LoadCPUUtilization(ctx, path, false)
			Expect(err).To(BeNil())
			Expect(stats.Rows).To(Equal(3))

			reading, ok := index.HostReading("m1", minuteAt("2017-10-09 07:02:00").Time)
			Expect(ok).To(BeTrue())
			Expect(reading).To(Equal(utilization.Available(55.5)))

			reading, ok = index.HostReading("m1", minuteAt("2017-10-09 07:03:00").Time)
			Expect(ok).To(BeTrue())
			Expect(reading.Available).To(BeFalse())
		})

		It("should derive the percent of memory in use", func() {
			path := writeFile(dir, "mem.csv", `time,machine_id,mem_total,mem_free
2017-10-09 07:02:00,m1,200,50
2017-10-09 07:03:00,m1,0,0
`)

			index, _, err := loader.LoadMemoryUtilization(ctx, path, false)
			Expect(err).To(BeNil())

			reading, _ := index.HostReading("m1", minuteAt("2017-10-09 07:02:00").Time)
			Expect(reading).To(Equal(utilization.Available(75)))

			reading, ok := index.HostReading("m1", minuteAt("2017-10-09 07:03:00").Time)
			Expect(ok).To(BeTrue())
			Expect(reading.Available).To(BeFalse())
		})

		It("should reject rows without a machine id", func() {
			path := writeFile(dir, "cpu.csv", `time,machine_id,cpu_util
2017-10-09 07:02:00,,55.5
`)
			_, _, err := loader.LoadCPUUtilization(ctx, path, false)
			Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())
		})
	})

	Context("machine list", func() {
		It("should build the capacity directory", func() {
			path := writeFile(dir, "machines.csv", `machineId,number of GPUs
m1,8
m2,2.0
m3,0
`)

			directory, err := loader.LoadMachineList(path)
			Expect(err).To(BeNil())
			Expect(directory).To(HaveLen(3))

			capacity, ok := directory.Capacity("m2")
			Expect(ok).To(BeTrue())
			Expect(capacity).To(Equal(2))

			_, ok = directory.Capacity("m3")
			Expect(ok).To(BeFalse())
		})

		It("should reject fractional GPU counts", func() {
			path := writeFile(dir, "machines.csv", `machineId,number of GPUs
m1,1.5
`)
			_, err := loader.LoadMachineList(path)
			Expect(errors.Is(err, domain.ErrFormat)).To(BeTrue())
		})
	})
})
