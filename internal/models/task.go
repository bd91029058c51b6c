package models

import "time"

// Task is one subtitle-generation job.
type Task struct {
	ID                   string     `json:"id"`
	Status               string     `json:"status"`
	Progress             float64    `json:"progress"`
	Message              string     `json:"message,omitempty"`
	Filename             string     `json:"filename"`
	FilePath             string     `json:"file_path"`
	Duration             *float64   `json:"duration,omitempty"`
	Result               string     `json:"-"`
	LastPlayedChunkIndex int        `json:"last_played_chunk_index"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Task statuses. Completed and failed are terminal.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// PracticeRecording is one per-segment practice clip owned by a task.
type PracticeRecording struct {
	ID             int64     `json:"id"`
	TaskID         string    `json:"task_id"`
	SegmentIndex   int       `json:"segment_index"`
	StoredFilename string    `json:"stored_filename"`
	CreatedAt      time.Time `json:"created_at"`
}
