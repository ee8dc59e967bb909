package style

import (
	"context"
	"fmt"
	"strings"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
)

// Analyzer extracts style descriptors from one reference image. It is an
// opaque external capability; tests substitute deterministic fakes.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*domain.ReferenceAnalysis, error)
}

// Embedder produces a fixed-length semantic vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service maintains the derived master prompt and embedding of a style
// profile. Reads are always live against the repository; nothing is cached
// across calls.
type Service struct {
	styles   domain.StyleRepository
	analyzer Analyzer
	embedder Embedder
	logger   infra.Logger
}

func NewService(styles domain.StyleRepository, analyzer Analyzer, embedder Embedder, logger infra.Logger) *Service {
	return &Service{styles: styles, analyzer: analyzer, embedder: embedder, logger: logger}
}

// Analyze runs the vision capability over every reference, rebuilds the
// master prompt, palette and characteristics from the combined analysis, and
// derives a fresh embedding. All derived fields are persisted in a single
// update so they always stem from the same analysis pass.
func (s *Service) Analyze(ctx context.Context, styleID string) (*domain.StyleProfile, error) {
	profile, err := s.styles.GetByID(ctx, styleID)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.StyleReference, len(profile.References))
	copy(refs, profile.References)
	for i := range refs {
		analysis, err := s.analyzer.AnalyzeImage(ctx, refs[i].URL)
		if err != nil {
			return nil, fmt.Errorf("analyze reference %d: %w", i, err)
		}
		refs[i].Analysis = analysis
	}

	palette := collectTerms(refs, domain.MaxPaletteColors, func(a *domain.ReferenceAnalysis) []string { return a.Colors })
	characteristics := collectTerms(refs, domain.MaxCharacteristics, func(a *domain.ReferenceAnalysis) []string { return a.StyleDescriptors })

	master := BuildMasterPrompt(refs, palette, characteristics)

	embedding, err := s.embedder.Embed(ctx, embeddingInput(master, characteristics))
	if err != nil {
		return nil, fmt.Errorf("embed style: %w", err)
	}
	if len(embedding) != domain.EmbeddingDim {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrEmbeddingDimension, len(embedding), domain.EmbeddingDim)
	}

	patch := domain.StyleProfileUpdate{
		References:      refs,
		MasterPrompt:    &master,
		Embedding:       embedding,
		ColorPalette:    palette,
		Characteristics: characteristics,
	}
	if err := s.styles.Update(ctx, styleID, patch); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	profile.References = refs
	profile.MasterPrompt = &master
	profile.Embedding = embedding
	profile.ColorPalette = palette
	profile.Characteristics = characteristics
	return profile, nil
}

func embeddingInput(masterPrompt string, characteristics []string) string {
	if len(characteristics) == 0 {
		return masterPrompt
	}
	return masterPrompt + " " + strings.Join(characteristics, ", ")
}

func collectTerms(refs []domain.StyleReference, cap int, pick func(*domain.ReferenceAnalysis) []string) []string {
	set := newTermSet(cap)
	for _, ref := range refs {
		if ref.Analysis == nil {
			continue
		}
		set.addAll(pick(ref.Analysis))
	}
	return set.list()
}
