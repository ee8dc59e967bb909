package domain

import (
	"context"
	"time"
)

// StyleRepository defines persistence for style profiles. Update sets only
// the fields present on the patch; omitted fields survive untouched.
type StyleRepository interface {
	Create(ctx context.Context, style *StyleProfile) error
	GetByID(ctx context.Context, id string) (*StyleProfile, error)
	Update(ctx context.Context, id string, patch StyleProfileUpdate) error
}

// GenerationRepository defines persistence for generations.
type GenerationRepository interface {
	Insert(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	UpdateStatus(ctx context.Context, id string, status GenerationStatus) error
	ListByParent(ctx context.Context, parentID string) ([]Generation, error)
	ListAcceptedByStyle(ctx context.Context, styleID string, limit int) ([]Generation, error)
}

// FeedbackRepository appends and reads feedback. ListRecentByStyle returns
// feedback for the style's most recent generations, newest first.
type FeedbackRepository interface {
	Insert(ctx context.Context, entry *FeedbackEntry) error
	ListRecentByStyle(ctx context.Context, styleID string, generationWindow, limit int) ([]FeedbackEntry, error)
}

// JobRepository defines persistence for queued jobs. Retry reschedules a
// claimed job for a later attempt; Fail marks it terminally failed.
type JobRepository interface {
	Enqueue(ctx context.Context, job *Job) error
	Claim(ctx context.Context, queue Queue) (*Job, error)
	Complete(ctx context.Context, id string, result []byte) error
	Retry(ctx context.Context, id string, reason string, runAt time.Time) error
	Fail(ctx context.Context, id string, reason string) error
	GetByID(ctx context.Context, id string) (*Job, error)
	PruneCompleted(ctx context.Context, queue Queue, keep int) error
}
