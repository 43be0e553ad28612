package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusError      JobStatus = "error"
)

// ErrorKind classifies a failed job: "detector" means the external model
// failed or timed out, "internal" means a pipeline invariant was broken.
type ErrorKind string

const (
	ErrorKindDetector ErrorKind = "detector"
	ErrorKindInternal ErrorKind = "internal"
)

// Job is one anonymization request. Result holds the JSON array of
// per-paragraph results once status is done.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Status    JobStatus       `json:"status"`
	Text      string          `json:"text"`
	Language  string          `json:"language"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	ErrorKind *string         `json:"error_kind,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
