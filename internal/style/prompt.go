package style

import (
	"strings"

	"golang.org/x/text/cases"

	"styleforge/internal/domain"
)

const (
	maxPromptColors     = 12
	maxPromptStyleTerms = 15
	maxPromptTechTerms  = 10

	// DefaultMasterPrompt is used when no descriptors could be extracted
	// from any reference.
	DefaultMasterPrompt = "A cohesive illustration style with consistent colors, composition and rendering."

	// DefaultNegativePrompt is applied when a style has no custom negative
	// prompts configured.
	DefaultNegativePrompt = "blurry, low quality, inconsistent style, text, watermark"
)

// BuildMasterPrompt synthesizes a natural-language style description from the
// analyzed references plus the derived palette and characteristics. The
// synthesis is deterministic and content-wise order-independent: each clause
// is a deduplicated set, so permuting the reference list never changes which
// terms appear.
func BuildMasterPrompt(refs []domain.StyleReference, palette, characteristics []string) string {
	colors := newTermSet(maxPromptColors)
	styleTerms := newTermSet(maxPromptStyleTerms)
	techTerms := newTermSet(maxPromptTechTerms)
	composition := ""

	colors.addAll(palette)
	styleTerms.addAll(characteristics)
	for _, ref := range refs {
		if ref.Analysis == nil {
			continue
		}
		colors.addAll(ref.Analysis.Colors)
		styleTerms.addAll(ref.Analysis.StyleDescriptors)
		techTerms.addAll(ref.Analysis.TechnicalAttributes)
		if composition == "" {
			composition = strings.TrimSpace(ref.Analysis.Composition)
		}
	}

	var clauses []string
	if terms := colors.list(); len(terms) > 0 {
		clauses = append(clauses, "Color palette: "+strings.Join(terms, ", "))
	}
	if terms := styleTerms.list(); len(terms) > 0 {
		clauses = append(clauses, "Style: "+strings.Join(terms, ", "))
	}
	if terms := techTerms.list(); len(terms) > 0 {
		clauses = append(clauses, "Technique: "+strings.Join(terms, ", "))
	}
	if composition != "" {
		clauses = append(clauses, "Composition: "+composition)
	}
	if len(clauses) == 0 {
		return DefaultMasterPrompt
	}
	return strings.Join(clauses, ". ") + "."
}

// BuildGenerationPrompt composes the final prompt and negative prompt for one
// generation call from the style's master prompt, the user's request text and
// the style's custom negative prompts.
func BuildGenerationPrompt(masterPrompt, userText string, negativePrompts []string) (string, string) {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(masterPrompt); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(userText); s != "" {
		parts = append(parts, s)
	}
	prompt := strings.Join(parts, " ")

	var negatives []string
	for _, n := range negativePrompts {
		if s := strings.TrimSpace(n); s != "" {
			negatives = append(negatives, s)
		}
	}
	if len(negatives) == 0 {
		return prompt, DefaultNegativePrompt
	}
	return prompt, strings.Join(negatives, ", ")
}

// termSet deduplicates terms case-insensitively while preserving first-seen
// order, up to a fixed cap.
type termSet struct {
	cap   int
	seen  map[string]struct{}
	terms []string
	fold  cases.Caser
}

func newTermSet(cap int) *termSet {
	return &termSet{cap: cap, seen: make(map[string]struct{}), fold: cases.Fold()}
}

func (s *termSet) addAll(terms []string) {
	for _, t := range terms {
		s.add(t)
	}
}

func (s *termSet) add(term string) {
	term = strings.TrimSpace(term)
	if term == "" || len(s.terms) >= s.cap {
		return
	}
	key := s.fold.String(term)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.terms = append(s.terms, term)
}

func (s *termSet) list() []string {
	return s.terms
}
