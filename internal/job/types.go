package job

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one synthesis request and its tracked lifecycle. OutputFilename is
// set only on completion, Error only on failure; both stay empty while the
// job is queued or processing.
type Job struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	OutputFilename string    `json:"output_filename,omitempty"`
	Error          string    `json:"error,omitempty"`
}
