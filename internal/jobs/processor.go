// Package jobs contains the worker-side handlers for the three queues.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/learner"
	"styleforge/internal/lineage"
	"styleforge/internal/observability"
	"styleforge/internal/orchestrator"
	"styleforge/internal/providers/image"
	"styleforge/internal/storage"
)

// Processor executes queued work against the orchestrator and the store.
type Processor struct {
	styles      domain.StyleRepository
	generations domain.GenerationRepository
	orch        *orchestrator.Orchestrator
	learn       Learner
	store       storage.ObjectStore
	httpClient  *http.Client
	logger      infra.Logger
}

// Learner is the narrow slice of the learning service the worker needs.
type Learner interface {
	LearnFromFeedback(ctx context.Context, styleID string) (learner.Outcome, error)
}

func NewProcessor(
	styles domain.StyleRepository,
	generations domain.GenerationRepository,
	orch *orchestrator.Orchestrator,
	learn Learner,
	store storage.ObjectStore,
	httpClient *http.Client,
	logger infra.Logger,
) *Processor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Processor{
		styles:      styles,
		generations: generations,
		orch:        orch,
		learn:       learn,
		store:       store,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// GenerationResult is the completed-job payload visible to pollers.
type GenerationResult struct {
	GenerationIDs []string `json:"generation_ids"`
	ImageURLs     []string `json:"image_urls"`
}

// HandleGeneration processes one generation-queue job: plain generation or
// edit variants, per the payload kind.
func (p *Processor) HandleGeneration(ctx context.Context, job *domain.Job) ([]byte, error) {
	var payload domain.GenerationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode generation payload: %w", err)
	}
	if payload.Kind == domain.GenerationKindEditVariants {
		return p.handleEditVariants(ctx, job.ID, payload)
	}
	return p.handleGenerate(ctx, job.ID, payload)
}

func (p *Processor) handleGenerate(ctx context.Context, jobID string, payload domain.GenerationPayload) ([]byte, error) {
	profile, err := p.styles.GetByID(ctx, payload.StyleID)
	if err != nil {
		return nil, fmt.Errorf("load style %s: %w", payload.StyleID, err)
	}

	out, err := p.orch.Generate(ctx, profile, payload.UserPrompt, jobID, payload.Count)
	if err != nil {
		return nil, err
	}

	result := GenerationResult{}
	for _, res := range out.Results {
		gen := &domain.Generation{
			ID:        uuid.NewString(),
			ProjectID: payload.ProjectID,
			ParentID:  payload.ParentID,
			StyleID:   profile.ID,
			Prompt:    out.Prompt,
			ImageURL:  res.URL,
			Provider:  ptr(res.Provider),
			Status:    domain.GenerationStatusPending,
			Metadata: map[string]any{
				"seed":            res.Seed,
				"negative_prompt": out.NegativePrompt,
			},
		}
		p.mirrorAsset(ctx, gen)
		if err := p.generations.Insert(ctx, gen); err != nil {
			return nil, fmt.Errorf("persist generation: %w", err)
		}
		observability.GenerationsCreated.Inc()
		result.GenerationIDs = append(result.GenerationIDs, gen.ID)
		result.ImageURLs = append(result.ImageURLs, gen.ImageURL)
	}
	return json.Marshal(result)
}

// handleEditVariants generates the three fixed edit variants of a parent
// generation. Each variant is orchestrated independently; one variant failing
// is logged and skipped, the others still run.
func (p *Processor) handleEditVariants(ctx context.Context, jobID string, payload domain.GenerationPayload) ([]byte, error) {
	if payload.ParentID == nil {
		return nil, fmt.Errorf("%w: edit variants require a parent generation", domain.ErrValidation)
	}
	parent, err := p.generations.GetByID(ctx, *payload.ParentID)
	if err != nil {
		return nil, fmt.Errorf("load parent generation: %w", err)
	}

	base := lineage.BuildEditPrompt(parent.Prompt, payload.EditDescription, payload.PreserveAspects)
	variants := lineage.EditVariants(base)

	result := GenerationResult{}
	for i, variant := range variants {
		req := image.Request{
			Prompt:    variant.Prompt,
			Seed:      orchestrator.DeterministicSeed(jobID, i),
			RequestID: jobID,
		}
		res, err := p.orch.Resolve(ctx, image.CapabilityGenerate, req)
		if err != nil {
			p.logger.Warn().Err(err).Str("variant", variant.Name).Str("parent_id", parent.ID).Msg("jobs: edit variant failed, skipping")
			continue
		}
		gen := &domain.Generation{
			ID:        uuid.NewString(),
			ProjectID: parent.ProjectID,
			ParentID:  &parent.ID,
			StyleID:   parent.StyleID,
			Prompt:    variant.Prompt,
			ImageURL:  res.URL,
			Provider:  ptr(res.Provider),
			Status:    domain.GenerationStatusPending,
			Metadata:  map[string]any{"variant": variant.Name, "seed": res.Seed},
		}
		p.mirrorAsset(ctx, gen)
		if err := p.generations.Insert(ctx, gen); err != nil {
			return nil, fmt.Errorf("persist edit variant: %w", err)
		}
		observability.GenerationsCreated.Inc()
		result.GenerationIDs = append(result.GenerationIDs, gen.ID)
		result.ImageURLs = append(result.ImageURLs, gen.ImageURL)
	}
	if len(result.GenerationIDs) == 0 {
		return nil, fmt.Errorf("all edit variants failed: %w", domain.ErrAllProvidersFailed)
	}
	return json.Marshal(result)
}

// PostprocessResult is the completed-job payload for a post-processing job.
type PostprocessResult struct {
	GenerationID  string `json:"generation_id"`
	ImageURL      string `json:"image_url"`
	Provider      string `json:"provider"`
	NeedsApproval bool   `json:"needs_approval,omitempty"`
}

// HandlePostprocess removes the background of, or vectorizes, an existing
// generation and records the result as a child generation.
func (p *Processor) HandlePostprocess(ctx context.Context, job *domain.Job) ([]byte, error) {
	var payload domain.PostprocessPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode postprocess payload: %w", err)
	}
	gen, err := p.generations.GetByID(ctx, payload.GenerationID)
	if err != nil {
		return nil, fmt.Errorf("load generation %s: %w", payload.GenerationID, err)
	}

	var cap image.Capability
	switch payload.Op {
	case domain.PostprocessRemoveBackground:
		cap = image.CapabilityRemoveBackground
	case domain.PostprocessVectorize:
		cap = image.CapabilityVectorize
	default:
		return nil, fmt.Errorf("%w: unknown postprocess op %q", domain.ErrValidation, payload.Op)
	}

	res, err := p.orch.Resolve(ctx, cap, image.Request{SourceURL: gen.ImageURL, RequestID: job.ID})
	if err != nil {
		return nil, err
	}

	child := &domain.Generation{
		ID:        uuid.NewString(),
		ProjectID: gen.ProjectID,
		ParentID:  &gen.ID,
		StyleID:   gen.StyleID,
		Prompt:    gen.Prompt,
		ImageURL:  res.URL,
		Provider:  ptr(res.Provider),
		Status:    domain.GenerationStatusPending,
		Metadata:  map[string]any{"op": string(payload.Op), "needs_approval": res.NeedsApproval},
	}
	p.mirrorAsset(ctx, child)
	if err := p.generations.Insert(ctx, child); err != nil {
		return nil, fmt.Errorf("persist postprocess result: %w", err)
	}
	return json.Marshal(PostprocessResult{
		GenerationID:  child.ID,
		ImageURL:      child.ImageURL,
		Provider:      res.Provider,
		NeedsApproval: res.NeedsApproval,
	})
}

// HandleLearning runs one learning pass for the style named in the payload.
func (p *Processor) HandleLearning(ctx context.Context, job *domain.Job) ([]byte, error) {
	var payload domain.LearningPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode learning payload: %w", err)
	}
	outcome, err := p.learn.LearnFromFeedback(ctx, payload.StyleID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"outcome": string(outcome)})
}

// mirrorAsset downloads the provider-hosted image and writes it to the object
// store, recording the storage key in the generation metadata. Mirroring is
// best effort: on failure the remote URL stays authoritative.
func (p *Processor) mirrorAsset(ctx context.Context, gen *domain.Generation) {
	if p.store == nil || strings.TrimSpace(gen.ImageURL) == "" {
		return
	}
	data, err := p.download(ctx, gen.ImageURL)
	if err != nil {
		p.logger.Warn().Err(err).Str("generation_id", gen.ID).Msg("jobs: asset mirror download failed")
		return
	}
	key := fmt.Sprintf("generations/%s/%s.png", gen.StyleID, gen.ID)
	savedKey, err := p.store.Write(ctx, key, data)
	if err != nil {
		p.logger.Warn().Err(err).Str("generation_id", gen.ID).Msg("jobs: asset mirror write failed")
		return
	}
	if gen.Metadata == nil {
		gen.Metadata = map[string]any{}
	}
	gen.Metadata["source_url"] = gen.ImageURL
	gen.Metadata["storage_key"] = savedKey
}

func (p *Processor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

func ptr(s string) *string { return &s }
