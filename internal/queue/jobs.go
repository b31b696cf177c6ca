package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// Job is one audio file submitted for diarized transcription.
type Job struct {
	ID              string    `json:"id"`
	RequestName     string    `json:"request_name"`
	FilePath        string    `json:"-"`
	KeepSource      bool      `json:"-"`
	TaskID          string    `json:"task_id,omitempty"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	TranscriptionID string    `json:"transcription_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewJob creates a queued job for the file at filePath.
func NewJob(requestName, filePath string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		RequestName: requestName,
		FilePath:    filePath,
		Status:      types.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Done reports whether the job reached a final status.
func (j Job) Done() bool {
	return j.Status == types.StatusCompleted || j.Status == types.StatusFailed
}
