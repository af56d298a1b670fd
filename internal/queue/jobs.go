package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Task is the work a job performs for one recording.
type Task func(ctx context.Context) error

// Job represents the processing of one recording
type Job struct {
	ID          string
	Kind        string
	RecordingID string
	Status      string
	Error       error
	CreatedAt   time.Time
	FinishedAt  time.Time

	task Task
	done chan struct{}
}

// NewJob creates a new job with default values
func NewJob(kind, recordingID string, task Task) *Job {
	return &Job{
		ID:          uuid.New().String(),
		Kind:        kind,
		RecordingID: recordingID,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
		task:        task,
		done:        make(chan struct{}),
	}
}

// Done is closed once the job has completed or failed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Failed reports whether the job ended in error.
func (j *Job) Failed() bool {
	return j.Status == types.StatusFailed
}
