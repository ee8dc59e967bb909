// Package queue provides the durable job queue client and the worker loop
// that drains it. Jobs live in Postgres; the queue is the only coupling
// between the request path and the slow provider-facing work.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"styleforge/internal/domain"
)

// Policy is the per-queue retry and concurrency configuration.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Concurrency int
}

// PolicyFor returns the fixed policy for a queue. Generation and
// post-processing retry once with exponential backoff; learning never
// retries, the next qualifying feedback batch re-triggers it.
func PolicyFor(q domain.Queue, baseDelay time.Duration) Policy {
	if baseDelay <= 0 {
		baseDelay = 5 * time.Second
	}
	switch q {
	case domain.QueueLearning:
		return Policy{MaxAttempts: 1, BaseDelay: baseDelay, Concurrency: 1}
	default:
		return Policy{MaxAttempts: 2, BaseDelay: baseDelay, Concurrency: 2}
	}
}

// Backoff returns the delay before the given retry attempt (1-based),
// doubling per attempt from the base delay.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Client enqueues jobs and reads job state. It is constructed once at process
// start and shared by reference.
type Client struct {
	jobs      domain.JobRepository
	baseDelay time.Duration
}

func NewClient(jobs domain.JobRepository, baseDelay time.Duration) *Client {
	return &Client{jobs: jobs, baseDelay: baseDelay}
}

// Enqueue marshals the payload and inserts a pending job, returning its id.
func (c *Client) Enqueue(ctx context.Context, q domain.Queue, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: encode payload: %w", err)
	}
	policy := PolicyFor(q, c.baseDelay)
	job := &domain.Job{
		ID:          uuid.NewString(),
		Queue:       q,
		Status:      domain.JobStatusPending,
		Payload:     raw,
		MaxAttempts: policy.MaxAttempts,
		RunAt:       time.Now(),
	}
	if err := c.jobs.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return job.ID, nil
}

// JobView is the poller-facing job state.
type JobView struct {
	ID           string          `json:"id"`
	Queue        domain.Queue    `json:"queue"`
	State        string          `json:"state"`
	Result       json.RawMessage `json:"result,omitempty"`
	Progress     int             `json:"progress"`
	FailedReason string          `json:"failed_reason,omitempty"`
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*JobView, error) {
	job, err := c.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &JobView{ID: job.ID, Queue: job.Queue, State: string(job.Status)}
	switch job.Status {
	case domain.JobStatusCompleted:
		view.Progress = 100
		view.Result = job.Result
	case domain.JobStatusFailed:
		view.FailedReason = job.FailedReason
	case domain.JobStatusActive:
		view.Progress = 50
	}
	return view, nil
}
