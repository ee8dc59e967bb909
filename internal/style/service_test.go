package style

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"styleforge/internal/domain"
)

type fakeStyles struct {
	profile *domain.StyleProfile
	updates []domain.StyleProfileUpdate
}

func (f *fakeStyles) Create(context.Context, *domain.StyleProfile) error { return nil }

func (f *fakeStyles) GetByID(_ context.Context, id string) (*domain.StyleProfile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeStyles) Update(_ context.Context, _ string, patch domain.StyleProfileUpdate) error {
	f.updates = append(f.updates, patch)
	return nil
}

type fakeAnalyzer struct {
	byURL map[string]*domain.ReferenceAnalysis
	err   error
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, url string) (*domain.ReferenceAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.byURL[url]; ok {
		return a, nil
	}
	return &domain.ReferenceAnalysis{}, nil
}

type fakeEmbedder struct {
	dim   int
	err   error
	input string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.input = text
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dim), nil
}

func TestAnalyzeDerivesAllFieldsInOneUpdate(t *testing.T) {
	styles := &fakeStyles{profile: &domain.StyleProfile{
		ID: "s1",
		References: []domain.StyleReference{
			{URL: "a.png"},
			{URL: "b.png"},
		},
	}}
	analyzer := &fakeAnalyzer{byURL: map[string]*domain.ReferenceAnalysis{
		"a.png": {Colors: []string{"teal"}, StyleDescriptors: []string{"flat"}, Composition: "centered"},
		"b.png": {Colors: []string{"coral", "teal"}, StyleDescriptors: []string{"geometric"}},
	}}
	embedder := &fakeEmbedder{dim: domain.EmbeddingDim}
	svc := NewService(styles, analyzer, embedder, zerolog.New(io.Discard))

	profile, err := svc.Analyze(context.Background(), "s1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(styles.updates) != 1 {
		t.Fatalf("updates = %d, want 1 combined write", len(styles.updates))
	}
	patch := styles.updates[0]
	if patch.MasterPrompt == nil || patch.Embedding == nil || patch.ColorPalette == nil || patch.Characteristics == nil {
		t.Fatalf("patch must carry every derived field: %+v", patch)
	}
	if len(patch.ColorPalette) != 2 {
		t.Fatalf("palette = %v, want teal+coral deduplicated", patch.ColorPalette)
	}
	if len(patch.Embedding) != domain.EmbeddingDim {
		t.Fatalf("embedding dim = %d", len(patch.Embedding))
	}
	if profile.MasterPrompt == nil || *profile.MasterPrompt == "" {
		t.Fatalf("returned profile missing master prompt")
	}
	for i, ref := range profile.References {
		if ref.Analysis == nil {
			t.Fatalf("reference %d missing analysis", i)
		}
	}
}

func TestAnalyzeWrongEmbeddingDimension(t *testing.T) {
	styles := &fakeStyles{profile: &domain.StyleProfile{ID: "s1", References: []domain.StyleReference{{URL: "a.png"}}}}
	embedder := &fakeEmbedder{dim: 42}
	svc := NewService(styles, &fakeAnalyzer{}, embedder, zerolog.New(io.Discard))

	_, err := svc.Analyze(context.Background(), "s1")
	if !errors.Is(err, domain.ErrEmbeddingDimension) {
		t.Fatalf("err = %v, want ErrEmbeddingDimension", err)
	}
	if len(styles.updates) != 0 {
		t.Fatalf("updates = %d, want 0 on dimension mismatch", len(styles.updates))
	}
}

func TestAnalyzeReferenceFailureAborts(t *testing.T) {
	styles := &fakeStyles{profile: &domain.StyleProfile{ID: "s1", References: []domain.StyleReference{{URL: "a.png"}}}}
	svc := NewService(styles, &fakeAnalyzer{err: errors.New("vision down")}, &fakeEmbedder{dim: domain.EmbeddingDim}, zerolog.New(io.Discard))

	if _, err := svc.Analyze(context.Background(), "s1"); err == nil {
		t.Fatalf("expected analysis failure to propagate")
	}
	if len(styles.updates) != 0 {
		t.Fatalf("no partial write expected")
	}
}

func TestAnalyzeDuplicateReferenceURLsBothAnalyzed(t *testing.T) {
	calls := 0
	styles := &fakeStyles{profile: &domain.StyleProfile{ID: "s1", References: []domain.StyleReference{
		{URL: "same.png"},
		{URL: "same.png"},
	}}}
	analyzer := &countingAnalyzer{calls: &calls}
	svc := NewService(styles, analyzer, &fakeEmbedder{dim: domain.EmbeddingDim}, zerolog.New(io.Discard))

	if _, err := svc.Analyze(context.Background(), "s1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if calls != 2 {
		t.Fatalf("analyzer calls = %d, want one per reference", calls)
	}
}

type countingAnalyzer struct {
	calls *int
}

func (c *countingAnalyzer) AnalyzeImage(context.Context, string) (*domain.ReferenceAnalysis, error) {
	*c.calls++
	return &domain.ReferenceAnalysis{Colors: []string{"gray"}}, nil
}
