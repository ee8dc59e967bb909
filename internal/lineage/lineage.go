// Package lineage models parent/child relationships between generations and
// builds prompts for derivative (edit) requests.
package lineage

import (
	"context"
	"fmt"
	"strings"

	"styleforge/internal/domain"
)

// Variant is one edit derivative of a base prompt.
type Variant struct {
	Name   string
	Prompt string
}

const (
	VariantConservative = "conservative"
	VariantModerate     = "moderate"
	VariantBold         = "bold"
)

const (
	subtleQualifier = " Apply the change subtly, preserving the original feel."
	boldQualifier   = " Apply the change boldly and decisively."
)

// BuildEditPrompt composes the base prompt for an edit of a parent
// generation.
func BuildEditPrompt(parentPrompt, editDescription string, preserveAspects []string) string {
	prompt := strings.TrimSpace(parentPrompt) + " Edit: " + strings.TrimSpace(editDescription)
	var keep []string
	for _, a := range preserveAspects {
		if s := strings.TrimSpace(a); s != "" {
			keep = append(keep, s)
		}
	}
	if len(keep) > 0 {
		prompt += " Keep these unchanged: " + strings.Join(keep, ", ") + "."
	}
	return prompt
}

// EditVariants derives the three fixed variants from one edit base prompt,
// always in conservative/moderate/bold order. The moderate variant is the
// base prompt unchanged.
func EditVariants(base string) []Variant {
	return []Variant{
		{Name: VariantConservative, Prompt: base + subtleQualifier},
		{Name: VariantModerate, Prompt: base},
		{Name: VariantBold, Prompt: base + boldQualifier},
	}
}

// Tree recursively collects the root generation and all of its descendants.
// Children only ever point at generations that existed when they were
// created, so the parent relation is acyclic and the walk terminates.
func Tree(ctx context.Context, repo domain.GenerationRepository, rootID string) (*domain.GenerationNode, error) {
	root, err := repo.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	node := &domain.GenerationNode{Generation: *root, Children: []domain.GenerationNode{}}
	if err := fillChildren(ctx, repo, node); err != nil {
		return nil, err
	}
	return node, nil
}

func fillChildren(ctx context.Context, repo domain.GenerationRepository, node *domain.GenerationNode) error {
	children, err := repo.ListByParent(ctx, node.Generation.ID)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", node.Generation.ID, err)
	}
	for _, child := range children {
		childNode := domain.GenerationNode{Generation: child, Children: []domain.GenerationNode{}}
		if err := fillChildren(ctx, repo, &childNode); err != nil {
			return err
		}
		node.Children = append(node.Children, childNode)
	}
	return nil
}
