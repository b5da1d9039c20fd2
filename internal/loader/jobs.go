package loader

import (
	"os"

	"github.com/goccy/go-json"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
	"github.com/scusemua/trace-analyzer/m/v2/pkg/tracetime"
)

// LoadJobRecords decodes the job log, a single JSON array of job records, and strips zone suffixes
// from every timestamp.
func LoadJobRecords(path string) ([]*trace.JobRecord, error) {
	if path == "" {
		return nil, domain.ErrNoPathSpecified
	}

	file, err := os.Open(path)
	if err != nil {
		sugarLog.Errorf("Failed to open job log \"%v\": %v", path, err)
		return nil, err
	}
	defer file.Close()

	var records []*trace.JobRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, domain.Errorf(domain.ErrFormat, "job log \"%s\": %v", path, err)
	}
	if len(records) == 0 {
		return nil, domain.Errorf(domain.ErrEmptyTrace, "job log \"%s\"", path)
	}

	for _, rec := range records {
		normalize(rec)
	}
	return records, nil
}

func normalize(rec *trace.JobRecord) {
	stripZone(rec.SubmittedTime)
	for i := range rec.Attempts {
		stripZone(rec.Attempts[i].StartTime)
		stripZone(rec.Attempts[i].EndTime)
	}
}

func stripZone(text *string) {
	if text != nil {
		*text = tracetime.StripZone(*text)
	}
}

// LoadJobs reads the job log and builds a Job for every record. It returns the jobs and the number of
// malformed records that were dropped.
func LoadJobs(path string, skipMalformed bool) ([]*trace.Job, *LoadStats, error) {
	records, err := LoadJobRecords(path)
	if err != nil {
		return nil, nil, err
	}

	jobs, skipped, err := trace.BuildJobs(records, skipMalformed, logger)
	stats := &LoadStats{Path: path, Rows: len(jobs), Skipped: skipped}
	if err != nil {
		return nil, stats, err
	}

	sugarLog.Infof("Loaded %d job(s) from \"%s\"; dropped %d malformed record(s).", len(jobs), path, skipped)
	return jobs, stats, nil
}
