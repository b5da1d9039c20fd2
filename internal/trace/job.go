package trace

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// Job is one scheduled unit of work rebuilt from a JobRecord.
//
// Jobs are never modified after NewJob returns. The derived metrics are computed once there; a metric
// whose inputs include an unrecorded timestamp is absent rather than approximated.
type Job struct {
	Status           JobStatus
	VirtualClusterID string
	JobID            string
	User             string
	SubmittedTime    *time.Time
	Attempts         []*Attempt

	requestedGPUCount *int
	queueingDelay     *float64
	runTime           *float64
}

func NewJob(rec *JobRecord) (*Job, error) {
	status, err := ParseStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", rec.JobID, err)
	}

	submitted, err := parseOptional(rec.SubmittedTime)
	if err != nil {
		return nil, fmt.Errorf("job %s submitted_time: %w", rec.JobID, err)
	}

	job := &Job{
		Status:           status,
		VirtualClusterID: rec.VirtualClusterID,
		JobID:            rec.JobID,
		User:             rec.User,
		SubmittedTime:    submitted,
		Attempts:         make([]*Attempt, 0, len(rec.Attempts)),
	}

	for i := range rec.Attempts {
		attempt, err := newAttempt(&rec.Attempts[i])
		if err != nil {
			return nil, fmt.Errorf("job %s attempt %d: %w", rec.JobID, i, err)
		}
		job.Attempts = append(job.Attempts, attempt)
	}

	job.derive()
	return job, nil
}

func newAttempt(rec *AttemptRecord) (*Attempt, error) {
	start, err := parseOptional(rec.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseOptional(rec.EndTime)
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, domain.Errorf(domain.ErrMalformedRecord, "end_time %s precedes start_time %s",
			tracetime.Format(*end), tracetime.Format(*start))
	}

	attempt := &Attempt{
		StartTime:  start,
		EndTime:    end,
		Placements: make([]Placement, 0, len(rec.Detail)),
	}
	for _, detail := range rec.Detail {
		placement := Placement{Machine: detail.IP, GPUs: make([]GPUID, 0, len(detail.GPUs))}
		seen := make(map[string]struct{}, len(detail.GPUs))
		for _, name := range detail.GPUs {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}

			id, err := ParseGPUID(name)
			if err != nil {
				return nil, fmt.Errorf("machine %s: %w", detail.IP, err)
			}
			placement.GPUs = append(placement.GPUs, id)
		}
		attempt.Placements = append(attempt.Placements, placement)
	}

	return attempt, nil
}

func parseOptional(text *string) (*time.Time, error) {
	if text == nil {
		return nil, nil
	}
	return tracetime.Parse(*text)
}

func (j *Job) derive() {
	if len(j.Attempts) == 0 {
		return
	}

	first := j.Attempts[0]
	last := j.Attempts[len(j.Attempts)-1]

	requested := first.NumGPUs()
	j.requestedGPUCount = &requested

	if first.StartTime != nil && j.SubmittedTime != nil {
		delay := tracetime.DurationToMinutes(first.StartTime.Sub(*j.SubmittedTime))
		j.queueingDelay = &delay
	}

	if first.StartTime != nil && last.EndTime != nil {
		runTime := tracetime.DurationToMinutes(last.EndTime.Sub(*first.StartTime))
		j.runTime = &runTime
	}
}

func (j *Job) HasAttempts() bool {
	return len(j.Attempts) > 0
}

// RequestedGPUCount is the number of GPUs across the first attempt's placements.
func (j *Job) RequestedGPUCount() (int, bool) {
	if j.requestedGPUCount == nil {
		return 0, false
	}
	return *j.requestedGPUCount, true
}

// QueueingDelay is the time, in minutes, from submission to the start of the first attempt.
// Negative values occur in the trace and are kept as they are.
func (j *Job) QueueingDelay() (float64, bool) {
	if j.queueingDelay == nil {
		return 0, false
	}
	return *j.queueingDelay, true
}

// RunTime is the time, in minutes, from the start of the first attempt to the end of the last one.
func (j *Job) RunTime() (float64, bool) {
	if j.runTime == nil {
		return 0, false
	}
	return *j.runTime, true
}

// StillRunning reports whether the last attempt had not ended when the trace was captured.
func (j *Job) StillRunning() bool {
	return len(j.Attempts) > 0 && j.Attempts[len(j.Attempts)-1].EndTime == nil
}

func (j *Job) String() string {
	return fmt.Sprintf("Job[ID=%s, VC=%s, Status=%v, Attempts=%d, Submitted=%s]",
		j.JobID, j.VirtualClusterID, j.Status, len(j.Attempts), tracetime.FormatOptional(j.SubmittedTime))
}

// WithAttempts returns the jobs that have at least one attempt, preserving order.
func WithAttempts(jobs []*Job) []*Job {
	filtered := make([]*Job, 0, len(jobs))
	for _, job := range jobs {
		if job.HasAttempts() {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

// BuildJobs converts every record. Format errors always abort; records violating the data model are
// dropped and counted when skipMalformed is set.
func BuildJobs(records []*JobRecord, skipMalformed bool, logger *zap.Logger) ([]*Job, int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	jobs := make([]*Job, 0, len(records))
	skipped := 0
	for _, rec := range records {
		job, err := NewJob(rec)
		if err != nil {
			if skipMalformed && errors.Is(err, domain.ErrMalformedRecord) {
				logger.Warn("Dropping malformed job record.", zap.String("job_id", rec.JobID), zap.Error(err))
				skipped++
				continue
			}
			return nil, skipped, err
		}
		jobs = append(jobs, job)
	}

	return jobs, skipped, nil
}
