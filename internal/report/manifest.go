package report

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/scusemua/trace-analyzer/m/v2/internal/analysis"
	"github.com/scusemua/trace-analyzer/m/v2/internal/loader"
	"github.com/scusemua/trace-analyzer/m/v2/internal/utilization"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// Manifest records what a run read, how it was configured and what it wrote.
type Manifest struct {
	RunID              string              `yaml:"run_id"`
	StartedAt          string              `yaml:"started_at"`
	ElapsedSeconds     float64             `yaml:"elapsed_seconds"`
	BoundaryConvention string              `yaml:"boundary_convention"`
	GPUsPerHost        int                 `yaml:"gpus_per_host"`
	GPUCounts          []int               `yaml:"gpu_counts"`
	LargeJobThreshold  int                 `yaml:"large_job_threshold"`
	Jobs               int                 `yaml:"jobs"`
	JobsWithAttempts   int                 `yaml:"jobs_with_attempts"`
	StillRunning       int                 `yaml:"still_running"`
	Machines           int                 `yaml:"machines"`
	Inputs             []*loader.LoadStats `yaml:"inputs"`
	Passes             []*PassManifest     `yaml:"passes"`
	Outputs            []string            `yaml:"outputs"`
}

type PassManifest struct {
	Name                 string                        `yaml:"name"`
	OnlyLargeJobs        bool                          `yaml:"only_large_jobs"`
	OnlyDedicatedServers bool                          `yaml:"only_dedicated_servers"`
	Stats                *utilization.AggregationStats `yaml:"stats"`
}

// NewManifest describes a finished run. Outputs are filled in by the Writer.
func NewManifest(rep *analysis.Report) *Manifest {
	manifest := &Manifest{
		RunID:              rep.RunID,
		StartedAt:          tracetime.Format(rep.StartedAt.UTC()),
		ElapsedSeconds:     rep.Elapsed.Round(time.Millisecond).Seconds(),
		BoundaryConvention: rep.Convention.String(),
		GPUsPerHost:        rep.Options.GPUsPerHost,
		GPUCounts:          rep.Options.CanonicalGPUCounts,
		LargeJobThreshold:  rep.Options.LargeJobThreshold,
		Jobs:               rep.Jobs,
		JobsWithAttempts:   rep.JobsWithAttempts,
		StillRunning:       rep.StillRunning,
		Machines:           len(rep.Machines),
		Inputs:             rep.Files,
		Passes:             make([]*PassManifest, 0, len(rep.Utilization)),
		Outputs:            []string{},
	}

	for _, pass := range rep.Utilization {
		manifest.Passes = append(manifest.Passes, &PassManifest{
			Name:                 pass.Name,
			OnlyLargeJobs:        pass.Options.OnlyLargeJobs,
			OnlyDedicatedServers: pass.Options.OnlyDedicatedServers,
			Stats:                pass.Stats,
		})
	}

	return manifest
}

func WriteManifest(path string, manifest *Manifest) error {
	out, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
