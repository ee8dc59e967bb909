package domain

import "time"

// GenerationStatus enumerates feedback-driven lifecycle states.
type GenerationStatus string

const (
	GenerationStatusPending  GenerationStatus = "pending"
	GenerationStatusAccepted GenerationStatus = "accepted"
	GenerationStatusRejected GenerationStatus = "rejected"
	GenerationStatusRated    GenerationStatus = "rated"
)

// Generation is one produced image attempt. Prompt, provider and image URL
// are immutable once set; only Status changes afterwards, via feedback.
type Generation struct {
	ID        string           `json:"id"`
	ProjectID *string          `json:"project_id,omitempty"`
	ParentID  *string          `json:"parent_id,omitempty"`
	StyleID   string           `json:"style_id"`
	Prompt    string           `json:"prompt"`
	ImageURL  string           `json:"image_url"`
	Provider  *string          `json:"provider,omitempty"`
	Status    GenerationStatus `json:"status"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// GenerationNode is a generation plus its resolved descendants.
type GenerationNode struct {
	Generation Generation       `json:"generation"`
	Children   []GenerationNode `json:"children"`
}
