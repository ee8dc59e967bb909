package image

import (
	"context"
	"fmt"

	"styleforge/internal/providers/stability"
)

type stabilityClient interface {
	HasCredentials() bool
	GenerateImage(ctx context.Context, prompt, negativePrompt string, seed int) (string, int, error)
}

// StabilityAdapter generates images via the Stability API.
type StabilityAdapter struct {
	client stabilityClient
}

func NewStabilityAdapter(client *stability.Client) *StabilityAdapter {
	return &StabilityAdapter{client: client}
}

func (a *StabilityAdapter) Name() string { return "stability" }

func (a *StabilityAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.client == nil || !a.client.HasCredentials() {
		return nil, ErrUnavailable
	}
	if cap != CapabilityGenerate {
		return nil, fmt.Errorf("stability adapter does not support %s", cap)
	}
	url, seed, err := a.client.GenerateImage(ctx, req.Prompt, req.NegativePrompt, req.Seed)
	if err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = req.Seed
	}
	return &Result{URL: url, Provider: a.Name(), Seed: seed}, nil
}

var _ Adapter = (*StabilityAdapter)(nil)
