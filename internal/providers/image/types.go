package image

import (
	"context"

	"styleforge/internal/domain"
)

// Capability enumerates the operations an adapter can perform.
type Capability string

const (
	CapabilityGenerate         Capability = "generate"
	CapabilityRemoveBackground Capability = "remove_background"
	CapabilityVectorize        Capability = "vectorize"
)

// ErrUnavailable marks an adapter whose credentials are absent. Callers skip
// the adapter silently instead of logging it as a failure. It is the domain
// sentinel, so errors.Is works across package boundaries.
var ErrUnavailable = domain.ErrProviderUnavailable

// Request is the normalized request passed to any adapter. For generation
// the prompt fields are set; for remove-background and vectorize SourceURL
// names the asset to transform.
type Request struct {
	Prompt         string
	NegativePrompt string
	SourceURL      string
	Seed           int
	RequestID      string
}

// Result is the normalized outcome of a successful attempt. An adapter must
// never return a Result without a usable URL. NeedsApproval marks results a
// human should confirm before they are treated as final.
type Result struct {
	URL           string
	Provider      string
	Seed          int
	NeedsApproval bool
}

// Adapter is the contract implemented by all provider adapters.
type Adapter interface {
	Name() string
	Attempt(ctx context.Context, cap Capability, req Request) (*Result, error)
}
