package image

import (
	"context"
	"fmt"
	"strings"

	"styleforge/internal/providers/openai"
)

type openAIImageClient interface {
	HasCredentials() bool
	GenerateImage(ctx context.Context, prompt string) (string, error)
	EditImage(ctx context.Context, imageURL, prompt string) (string, error)
}

// OpenAIAdapter generates images via the OpenAI image endpoint. There is no
// separate negative-prompt channel, so the negative list is folded into the
// prompt text as an avoidance clause.
type OpenAIAdapter struct {
	client openAIImageClient
}

func NewOpenAIAdapter(client *openai.Client) *OpenAIAdapter {
	return &OpenAIAdapter{client: client}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.client == nil || !a.client.HasCredentials() {
		return nil, ErrUnavailable
	}
	if cap != CapabilityGenerate {
		return nil, fmt.Errorf("openai adapter does not support %s", cap)
	}
	prompt := req.Prompt
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		prompt = prompt + " Avoid: " + neg + "."
	}
	url, err := a.client.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &Result{URL: url, Provider: a.Name(), Seed: req.Seed}, nil
}

// OpenAIEditAdapter removes backgrounds with a promptable edit model. Its
// results need human approval before being treated as final, so it sits last
// in the remove-background priority list.
type OpenAIEditAdapter struct {
	client openAIImageClient
}

func NewOpenAIEditAdapter(client *openai.Client) *OpenAIEditAdapter {
	return &OpenAIEditAdapter{client: client}
}

func (a *OpenAIEditAdapter) Name() string { return "openai-edit" }

func (a *OpenAIEditAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.client == nil || !a.client.HasCredentials() {
		return nil, ErrUnavailable
	}
	if cap != CapabilityRemoveBackground {
		return nil, fmt.Errorf("openai-edit adapter does not support %s", cap)
	}
	url, err := a.client.EditImage(ctx, req.SourceURL, "Remove the background completely, keeping only the subject on a transparent background.")
	if err != nil {
		return nil, err
	}
	return &Result{URL: url, Provider: a.Name(), NeedsApproval: true}, nil
}

var (
	_ Adapter = (*OpenAIAdapter)(nil)
	_ Adapter = (*OpenAIEditAdapter)(nil)
)
