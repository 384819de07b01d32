package domain

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Job is an asynchronously processed transliteration batch.
type Job struct {
	ID        string           `json:"id"`
	Lines     []string         `json:"lines"`
	Status    JobStatus        `json:"status"`
	Results   []SentenceResult `json:"results,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
