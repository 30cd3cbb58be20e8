package relay

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// JobStatus enumerates the lifecycle of a submitted generation.
type JobStatus string

const (
	JobStatusPending   JobStatus = ""
	JobStatusImmediate JobStatus = "immediate"
	JobStatusQueued    JobStatus = "queued"
	JobStatusPolling   JobStatus = "polling"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusTimedOut:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusImmediate, JobStatusQueued, JobStatusFailed},
	JobStatusImmediate: {JobStatusCompleted},
	JobStatusQueued:    {JobStatusPolling, JobStatusFailed, JobStatusTimedOut},
	JobStatusPolling:   {JobStatusPolling, JobStatusCompleted, JobStatusFailed, JobStatusTimedOut},
}

// Job tracks one submission from POST to terminal state.
type Job struct {
	ID             string          `json:"id"`
	EndpointPath   string          `json:"endpoint_path"`
	Status         JobStatus       `json:"status"`
	SubmitResponse json.RawMessage `json:"submit_response,omitempty"`
	PollURL        string          `json:"poll_url,omitempty"`
	ResultURL      string          `json:"result_url,omitempty"`
	Images         []string        `json:"images,omitempty"`
	SubmitAttempts int             `json:"submit_attempts"`
	Polls          int             `json:"polls"`
	Error          string          `json:"error,omitempty"`
	ErrorKind      ErrorKind       `json:"error_kind,omitempty"`
}

func newJob(endpointPath string) *Job {
	return &Job{ID: uuid.NewString(), EndpointPath: endpointPath}
}

func (j *Job) transition(next JobStatus) error {
	for _, allowed := range allowedTransitions[j.Status] {
		if allowed == next {
			j.Status = next
			return nil
		}
	}
	return fmt.Errorf("relay: job %s cannot move from %q to %q", j.ID, j.Status, next)
}

func (j *Job) complete(images []string) {
	j.Images = images
	j.ResultURL = images[0]
	_ = j.transition(JobStatusCompleted)
}

// fail records err and moves the job to its terminal failure state unless it
// already finished.
func (j *Job) fail(err error) {
	if j.Status == JobStatusCompleted {
		return
	}
	j.Error = err.Error()
	j.ErrorKind = KindOf(err)
	if j.Status.Terminal() {
		return
	}
	next := JobStatusFailed
	if j.ErrorKind == KindPollTimeout {
		next = JobStatusTimedOut
	}
	_ = j.transition(next)
}
