package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackType discriminates the feedback payload.
type FeedbackType string

const (
	FeedbackAccepted      FeedbackType = "accepted"
	FeedbackEditRequested FeedbackType = "edit_requested"
	FeedbackRejected      FeedbackType = "rejected"
)

// EditRequest is the payload carried by edit-requested feedback.
type EditRequest struct {
	Description     string   `json:"description"`
	PreserveAspects []string `json:"preserve_aspects,omitempty"`
}

// Rejection is the payload carried by rejected feedback.
type Rejection struct {
	Reason string `json:"reason"`
}

// FeedbackEntry is one append-only judgment on one generation. Exactly one
// of Edit/Reject is populated, matching Type; accepted feedback carries
// neither.
type FeedbackEntry struct {
	ID            string
	GenerationID  string
	Type          FeedbackType
	Edit          *EditRequest
	Reject        *Rejection
	RefinedPrompt *string
	CreatedAt     time.Time
}

// Validate enforces the tagged-variant shape before the entry is persisted.
func (e *FeedbackEntry) Validate() error {
	switch e.Type {
	case FeedbackAccepted:
		if e.Edit != nil || e.Reject != nil {
			return fmt.Errorf("%w: accepted feedback carries no payload", ErrValidation)
		}
	case FeedbackEditRequested:
		if e.Edit == nil || strings.TrimSpace(e.Edit.Description) == "" {
			return fmt.Errorf("%w: edit feedback requires a description", ErrValidation)
		}
		if e.Reject != nil {
			return fmt.Errorf("%w: edit feedback carries only the edit payload", ErrValidation)
		}
	case FeedbackRejected:
		if e.Reject == nil || strings.TrimSpace(e.Reject.Reason) == "" {
			return fmt.Errorf("%w: rejected feedback requires a reason", ErrValidation)
		}
		if e.Edit != nil {
			return fmt.Errorf("%w: rejected feedback carries only the rejection payload", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown feedback type %q", ErrValidation, e.Type)
	}
	return nil
}

// StatusFor maps a feedback type onto the generation status it implies.
func (t FeedbackType) StatusFor() GenerationStatus {
	switch t {
	case FeedbackAccepted:
		return GenerationStatusAccepted
	case FeedbackRejected:
		return GenerationStatusRejected
	default:
		return GenerationStatusRated
	}
}
