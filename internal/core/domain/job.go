package domain

import "time"

// JobState is the lifecycle state of a deferred pipeline execution.
// States only advance forward; completed and failed are terminal.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether moving to the given state respects the
// forward-only state machine.
func (s JobState) CanTransition(to JobState) bool {
	switch s {
	case JobPending:
		return to == JobProcessing || to == JobFailed
	case JobProcessing:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}

// Progress is the coarse completion percentage reported to pollers.
func (s JobState) Progress() int {
	switch s {
	case JobPending:
		return 0
	case JobProcessing:
		return 50
	default:
		return 100
	}
}

// Job is a pollable handle to one deferred pipeline execution.
type Job struct {
	ID         string   `json:"job_id"`
	DocumentID string   `json:"document_id"`
	State      JobState `json:"status"`

	Submission Submission        `json:"-"`
	Result     *ProcessingResult `json:"result,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
