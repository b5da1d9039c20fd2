package trace

import "github.com/goccy/go-json"

// JobRecord is one entry of the job log exactly as the scheduler exported it.
// Timestamps are kept as text here; NewJob is the only place they are interpreted.
type JobRecord struct {
	Status           string          `json:"status"`
	VirtualClusterID string          `json:"vc"`
	JobID            string          `json:"jobid"`
	User             string          `json:"user"`
	SubmittedTime    *string         `json:"submitted_time"`
	Attempts         []AttemptRecord `json:"attempts"`
}

type AttemptRecord struct {
	StartTime *string           `json:"start_time"`
	EndTime   *string           `json:"end_time"`
	Detail    []PlacementRecord `json:"detail"`
}

type PlacementRecord struct {
	IP   string   `json:"ip"`
	GPUs []string `json:"gpus"`
}

func (r *JobRecord) String() string {
	out, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}

	return string(out)
}
