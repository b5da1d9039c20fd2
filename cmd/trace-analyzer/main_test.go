package main

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/report"
)

const jobLog = `[
  {"status": "Pass", "vc": "vc1", "jobid": "j1", "user": "u1", "submitted_time": "2017-10-09 07:00:00",
   "attempts": [{"start_time": "2017-10-09 07:01:00", "end_time": "2017-10-09 07:04:00",
                 "detail": [{"ip": "m1", "gpus": ["gpu0"]}]}]},
  {"status": "Failed", "vc": "vc1", "jobid": "j2", "user": "u1", "submitted_time": "2017-10-09 07:00:00",
   "attempts": [{"start_time": "2017-10-09 07:02:00", "end_time": "2017-10-09 07:03:00",
                 "detail": [{"ip": "m1", "gpus": ["gpu1"]}]}]}
]`

var _ = Describe("execute", func() {
	var (
		dir    string
		conf   *domain.AnalysisConfig
		logger *zap.Logger
		logs   *observer.ObservedLogs
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		conf = domain.GetDefaultConfig()
		conf.OutputDir = filepath.Join(dir, "out")

		var core zapcore.Core
		core, logs = observer.New(zapcore.InfoLevel)
		logger = zap.New(core)
	})

	It("should log the failure and return a non-zero exit code", func() {
		conf.JobLogFile = filepath.Join(dir, "missing.json")

		Expect(execute(conf, logger)).To(Equal(1))
		Expect(logs.FilterMessage("Trace analysis failed.").Len()).To(Equal(1))
	})

	It("should write the reports and return zero", func() {
		conf.JobLogFile = filepath.Join(dir, "jobs.json")
		Expect(os.WriteFile(conf.JobLogFile, []byte(jobLog), 0644)).To(Succeed())

		Expect(execute(conf, logger)).To(Equal(0))
		Expect(logs.FilterMessage("Trace analysis failed.").Len()).To(Equal(0))
		Expect(filepath.Join(conf.OutputDir, report.SummaryFile)).To(BeAnExistingFile())
		Expect(filepath.Join(conf.OutputDir, report.ManifestFile)).To(BeAnExistingFile())
	})
})
