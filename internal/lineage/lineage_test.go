package lineage

import (
	"context"
	"errors"
	"testing"

	"styleforge/internal/domain"
)

func TestBuildEditPrompt(t *testing.T) {
	got := BuildEditPrompt("A fox in snow.", "make it night", []string{"the fox", " the palette "})
	want := "A fox in snow. Edit: make it night Keep these unchanged: the fox, the palette."
	if got != want {
		t.Fatalf("prompt = %q, want %q", got, want)
	}
}

func TestBuildEditPromptNoPreserveAspects(t *testing.T) {
	got := BuildEditPrompt("Base.", "crop tighter", []string{"", "  "})
	if got != "Base. Edit: crop tighter" {
		t.Fatalf("prompt = %q", got)
	}
}

func TestEditVariantsFixedOrderAndModerateUnchanged(t *testing.T) {
	base := "Base. Edit: warmer light"
	variants := EditVariants(base)
	if len(variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(variants))
	}
	names := []string{VariantConservative, VariantModerate, VariantBold}
	for i, v := range variants {
		if v.Name != names[i] {
			t.Fatalf("variant[%d] = %q, want %q", i, v.Name, names[i])
		}
	}
	if variants[1].Prompt != base {
		t.Fatalf("moderate prompt = %q, want base unchanged", variants[1].Prompt)
	}
	if variants[0].Prompt == base || variants[2].Prompt == base {
		t.Fatalf("conservative and bold must differ from base")
	}
}

type fakeGenerations struct {
	byID     map[string]domain.Generation
	byParent map[string][]domain.Generation
}

func (f *fakeGenerations) Insert(context.Context, *domain.Generation) error { return nil }

func (f *fakeGenerations) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	if g, ok := f.byID[id]; ok {
		return &g, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenerations) UpdateStatus(context.Context, string, domain.GenerationStatus) error {
	return nil
}

func (f *fakeGenerations) ListByParent(_ context.Context, parentID string) ([]domain.Generation, error) {
	return f.byParent[parentID], nil
}

func (f *fakeGenerations) ListAcceptedByStyle(context.Context, string, int) ([]domain.Generation, error) {
	return nil, nil
}

func TestTreeWalksThreeLevels(t *testing.T) {
	root := domain.Generation{ID: "root", StyleID: "s1"}
	child := domain.Generation{ID: "child", StyleID: "s1"}
	leaf := domain.Generation{ID: "leaf", StyleID: "s1"}
	repo := &fakeGenerations{
		byID: map[string]domain.Generation{"root": root},
		byParent: map[string][]domain.Generation{
			"root":  {child},
			"child": {leaf},
		},
	}

	node, err := Tree(context.Background(), repo, "root")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if node.Generation.ID != "root" {
		t.Fatalf("root = %q", node.Generation.ID)
	}
	if len(node.Children) != 1 || node.Children[0].Generation.ID != "child" {
		t.Fatalf("unexpected children: %+v", node.Children)
	}
	grand := node.Children[0].Children
	if len(grand) != 1 || grand[0].Generation.ID != "leaf" {
		t.Fatalf("unexpected grandchildren: %+v", grand)
	}
	if grand[0].Children == nil || len(grand[0].Children) != 0 {
		t.Fatalf("leaf children must be an empty slice, got %v", grand[0].Children)
	}
}

func TestTreeUnknownRoot(t *testing.T) {
	repo := &fakeGenerations{byID: map[string]domain.Generation{}}
	if _, err := Tree(context.Background(), repo, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
