package trace

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
)

type JobStatus int

const (
	StatusPass JobStatus = iota
	StatusKilled
	StatusFailed
)

// Statuses lists every status in the order reports present them.
var Statuses = []JobStatus{StatusPass, StatusKilled, StatusFailed}

func (s JobStatus) String() string {
	switch s {
	case StatusPass:
		return "Pass"
	case StatusKilled:
		return "Killed"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("JobStatus(%d)", int(s))
	}
}

func ParseStatus(text string) (JobStatus, error) {
	switch strings.TrimSpace(text) {
	case "Pass":
		return StatusPass, nil
	case "Killed":
		return StatusKilled, nil
	case "Failed":
		return StatusFailed, nil
	default:
		return 0, domain.Errorf(domain.ErrMalformedRecord, "unknown job status \"%s\"", text)
	}
}

const gpuIDPrefix = "gpu"

// GPUID is a GPU as named in a placement ("gpu3") together with its local slot on the machine.
type GPUID struct {
	Name string
	Slot int
}

func ParseGPUID(text string) (GPUID, error) {
	if !strings.HasPrefix(text, gpuIDPrefix) {
		return GPUID{}, domain.Errorf(domain.ErrFormat, "GPU id \"%s\" does not start with \"%s\"", text, gpuIDPrefix)
	}

	slot, err := strconv.Atoi(text[len(gpuIDPrefix):])
	if err != nil || slot < 0 {
		return GPUID{}, domain.Errorf(domain.ErrFormat, "GPU id \"%s\" has no valid slot number", text)
	}

	return GPUID{Name: text, Slot: slot}, nil
}

// Placement is the set of GPUs an attempt occupied on one machine.
type Placement struct {
	Machine string
	GPUs    []GPUID
}

// Attempt is one scheduling placement of a job. A nil bound was not recorded.
type Attempt struct {
	StartTime  *time.Time
	EndTime    *time.Time
	Placements []Placement
}

// Bounded reports whether both the start and the end of the attempt are known.
func (a *Attempt) Bounded() bool {
	return a.StartTime != nil && a.EndTime != nil
}

func (a *Attempt) NumGPUs() int {
	total := 0
	for _, placement := range a.Placements {
		total += len(placement.GPUs)
	}
	return total
}

// NumMachines counts distinct machines; an attempt may list the same machine twice.
func (a *Attempt) NumMachines() int {
	seen := make(map[string]struct{}, len(a.Placements))
	for _, placement := range a.Placements {
		seen[placement.Machine] = struct{}{}
	}
	return len(seen)
}
