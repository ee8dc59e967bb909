package domain

import "time"

// Queue names one of the three independent work queues.
type Queue string

const (
	QueueGeneration  Queue = "generation"
	QueuePostprocess Queue = "postprocess"
	QueueLearning    Queue = "learning"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one queued unit of work. Attempts and RunAt drive the per-queue
// retry policy; FailedReason is set once retries are exhausted.
type Job struct {
	ID           string
	Queue        Queue
	Status       JobStatus
	Payload      []byte
	Result       []byte
	Attempts     int
	MaxAttempts  int
	RunAt        time.Time
	FailedReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerationKind discriminates plain generation from edit-variant jobs.
type GenerationKind string

const (
	GenerationKindGenerate     GenerationKind = "generate"
	GenerationKindEditVariants GenerationKind = "edit_variants"
)

// GenerationPayload is the wire shape of a queued generation job. The edit
// fields are only read when Kind is edit_variants.
type GenerationPayload struct {
	Kind            GenerationKind `json:"kind"`
	StyleID         string         `json:"style_id"`
	UserPrompt      string         `json:"user_prompt,omitempty"`
	ProjectID       *string        `json:"project_id,omitempty"`
	ParentID        *string        `json:"parent_id,omitempty"`
	Count           int            `json:"count,omitempty"`
	EditDescription string         `json:"edit_description,omitempty"`
	PreserveAspects []string       `json:"preserve_aspects,omitempty"`
}

// PostprocessOp enumerates post-processing capabilities.
type PostprocessOp string

const (
	PostprocessRemoveBackground PostprocessOp = "remove_background"
	PostprocessVectorize        PostprocessOp = "vectorize"
)

// PostprocessPayload is the wire shape of a queued post-processing job.
type PostprocessPayload struct {
	GenerationID string        `json:"generation_id"`
	Op           PostprocessOp `json:"op"`
}

// LearningPayload is the wire shape of a queued learning job.
type LearningPayload struct {
	StyleID string `json:"style_id"`
}
