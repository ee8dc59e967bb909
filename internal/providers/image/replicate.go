package image

import (
	"context"
	"fmt"

	"styleforge/internal/providers/replicate"
)

const (
	replicateSDXLVersion      = "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"
	replicateVectorizeVersion = "methexis-inc/img2svg:1b26f7e3b8a4ae14e3d0e6bb5b1e2a2c6a1f0a94d83c6c8f4d8c9434761b5b8f"
)

type replicateClient interface {
	HasCredentials() bool
	Run(ctx context.Context, version string, input map[string]any) (string, error)
}

// ReplicateAdapter runs hosted Replicate models: SDXL for generation and an
// image-to-SVG model for vectorization. Both are submit-then-poll with a
// bounded poll budget inside the client.
type ReplicateAdapter struct {
	client replicateClient
}

func NewReplicateAdapter(client *replicate.Client) *ReplicateAdapter {
	return &ReplicateAdapter{client: client}
}

func (a *ReplicateAdapter) Name() string { return "replicate" }

func (a *ReplicateAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.client == nil || !a.client.HasCredentials() {
		return nil, ErrUnavailable
	}
	switch cap {
	case CapabilityGenerate:
		input := map[string]any{"prompt": req.Prompt}
		if req.NegativePrompt != "" {
			input["negative_prompt"] = req.NegativePrompt
		}
		if req.Seed > 0 {
			input["seed"] = req.Seed
		}
		url, err := a.client.Run(ctx, replicateSDXLVersion, input)
		if err != nil {
			return nil, err
		}
		return &Result{URL: url, Provider: a.Name(), Seed: req.Seed}, nil
	case CapabilityVectorize:
		url, err := a.client.Run(ctx, replicateVectorizeVersion, map[string]any{"image": req.SourceURL})
		if err != nil {
			return nil, err
		}
		return &Result{URL: url, Provider: a.Name()}, nil
	default:
		return nil, fmt.Errorf("replicate adapter does not support %s", cap)
	}
}

var _ Adapter = (*ReplicateAdapter)(nil)
