package core

import "time"

// JobState is the lifecycle position of an import job.
type JobState string

const (
	StatePending  JobState = "PENDING"
	StateProgress JobState = "PROGRESS"
	StateSuccess  JobState = "SUCCESS"
	StateFailure  JobState = "FAILURE"
)

// Terminal reports whether no further transitions are allowed.
func (s JobState) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

func (s JobState) rank() int {
	switch s {
	case StatePending:
		return 0
	case StateProgress:
		return 1
	case StateSuccess, StateFailure:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known states.
func (s JobState) Valid() bool {
	return s.rank() >= 0
}

// Job is the unit pushed onto the queue.
type Job struct {
	ID         string    `json:"id"`
	FilePath   string    `json:"file_path"`
	FileName   string    `json:"file_name"`
	ChunkSize  int       `json:"chunk_size"`
	ClientIP   string    `json:"client_ip,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ImportResult is the payload of a successful job.
type ImportResult struct {
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Message   string `json:"message"`
}

// JobSnapshot is the latest known state of a job.
type JobSnapshot struct {
	JobID     string        `json:"job_id"`
	State     JobState      `json:"state"`
	Current   int           `json:"current"`
	Total     int           `json:"total"`
	Percent   int           `json:"percent"`
	Result    *ImportResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PendingSnapshot is what an unseen or freshly admitted job looks like.
func PendingSnapshot(jobID string) JobSnapshot {
	return JobSnapshot{JobID: jobID, State: StatePending}
}

// CanTransition reports whether next may replace s. Terminal states are
// final and a state never moves backwards. PROGRESS may repeat.
func (s JobSnapshot) CanTransition(next JobState) bool {
	if s.State.Terminal() || !next.Valid() {
		return false
	}
	return next.rank() >= s.State.rank()
}

// percentOf returns floor(current*100/total), 0 when total is 0.
func percentOf(current, total int) int {
	if total <= 0 {
		return 0
	}
	if current > total {
		current = total
	}
	return current * 100 / total
}
