// Package ai adapts the OpenAI client to the narrow analysis capabilities the
// style memory and feedback learner consume: vision analysis of reference
// images, text embeddings, feedback recommendation synthesis and master
// prompt rewriting.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/providers/openai"
)

const (
	analysisMaxTokens = 400
	recsMaxTokens     = 400
	rewriteMaxTokens  = 220

	// rewritten master prompts are kept concise
	maxRewrittenPromptLen = 1200
)

type chatClient interface {
	HasCredentials() bool
	Chat(ctx context.Context, system, user string, maxTokens int) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client implements the opaque AI capabilities over a single chat/embedding
// backend.
type Client struct {
	backend chatClient
	logger  infra.Logger
}

func NewClient(backend *openai.Client, logger infra.Logger) *Client {
	return &Client{backend: backend, logger: logger}
}

// AnalyzeImage extracts style descriptors from one reference image.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (*domain.ReferenceAnalysis, error) {
	system := "You are an art director. Analyze the illustration at the given URL and reply with JSON only: " +
		`{"colors":[],"composition":"","style_descriptors":[],"technical_attributes":[]}`
	raw, err := c.backend.Chat(ctx, system, "Image: "+imageURL, analysisMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("vision analysis: %w", err)
	}
	var analysis domain.ReferenceAnalysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("vision analysis: malformed payload: %w", err)
	}
	return &analysis, nil
}

// Embed produces the semantic fingerprint vector for a text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.backend.Embed(ctx, text)
}

// FeedbackSample is the input to recommendation synthesis.
type FeedbackSample struct {
	MasterPrompt    string
	AcceptedPrompts []string
	RejectedPrompts []string
	RejectionNotes  []string
}

// Recommendation is the output of one recommendation pass. A zero value is a
// valid "nothing to change" outcome.
type Recommendation struct {
	Recommendations []string `json:"recommendations"`
	Temperature     *float64 `json:"temperature,omitempty"`
	NegativePrompts []string `json:"negative_prompts,omitempty"`
}

// Recommend derives prompt adjustments from accepted/rejected samples.
// Malformed model output degrades to an empty recommendation rather than an
// error, so a learning pass can never be wedged by a bad completion.
func (c *Client) Recommend(ctx context.Context, sample FeedbackSample) (Recommendation, error) {
	system := "You tune image-generation prompts from user feedback. Reply with JSON only: " +
		`{"recommendations":[],"temperature":null,"negative_prompts":[]}`
	user := fmt.Sprintf("Master prompt: %s\nAccepted prompts: %s\nRejected prompts: %s\nRejection notes: %s",
		sample.MasterPrompt,
		strings.Join(sample.AcceptedPrompts, " | "),
		strings.Join(sample.RejectedPrompts, " | "),
		strings.Join(sample.RejectionNotes, " | "))
	raw, err := c.backend.Chat(ctx, system, user, recsMaxTokens)
	if err != nil {
		return Recommendation{}, fmt.Errorf("recommend: %w", err)
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(extractJSON(raw)), &rec); err != nil {
		c.logger.Warn().Err(err).Msg("ai: malformed recommendation payload, treating as empty")
		return Recommendation{}, nil
	}
	return rec, nil
}

// Rewrite refines a master prompt according to the recommendations. The
// result is length-bounded; a blank completion leaves the prompt unchanged.
func (c *Client) Rewrite(ctx context.Context, masterPrompt string, recommendations []string) (string, error) {
	system := "You rewrite image-generation master prompts. Apply the recommendations, keep the result a single concise paragraph, and reply with the rewritten prompt only."
	user := fmt.Sprintf("Prompt: %s\nRecommendations: %s", masterPrompt, strings.Join(recommendations, "; "))
	raw, err := c.backend.Chat(ctx, system, user, rewriteMaxTokens)
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return masterPrompt, nil
	}
	if len(out) > maxRewrittenPromptLen {
		out = strings.TrimSpace(out[:maxRewrittenPromptLen])
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose around a JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}
