// Package learner aggregates recent feedback per style and refines the
// style's master prompt and generation settings.
package learner

import (
	"context"
	"errors"
	"fmt"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/observability"
	"styleforge/internal/providers/ai"
)

const (
	// feedback window: entries for the style's most recent generations,
	// itself capped.
	generationWindow = 100
	entryCap         = 50

	// minSignal is a hard floor, not a tunable: below it a learning pass
	// is a deliberate no-op.
	minSignal = 5
)

// Recommender synthesizes prompt/setting adjustments from feedback samples.
type Recommender interface {
	Recommend(ctx context.Context, sample ai.FeedbackSample) (ai.Recommendation, error)
}

// Rewriter refines a master prompt according to recommendations.
type Rewriter interface {
	Rewrite(ctx context.Context, masterPrompt string, recommendations []string) (string, error)
}

// Outcome reports what a learning pass did.
type Outcome string

const (
	OutcomeUpdated            Outcome = "updated"
	OutcomeInsufficientSignal Outcome = "insufficient_signal"
	OutcomeNoop               Outcome = "noop"
)

// Service runs learning passes. Callers must serialize passes per style; the
// learning queue runs with single concurrency for exactly that reason.
type Service struct {
	styles      domain.StyleRepository
	generations domain.GenerationRepository
	feedback    domain.FeedbackRepository
	recommender Recommender
	rewriter    Rewriter
	logger      infra.Logger
}

func NewService(
	styles domain.StyleRepository,
	generations domain.GenerationRepository,
	feedback domain.FeedbackRepository,
	recommender Recommender,
	rewriter Rewriter,
	logger infra.Logger,
) *Service {
	return &Service{
		styles:      styles,
		generations: generations,
		feedback:    feedback,
		recommender: recommender,
		rewriter:    rewriter,
		logger:      logger,
	}
}

// LearnFromFeedback runs one learning pass for the style. Below the signal
// floor it performs no reads beyond the window query and no writes at all.
// Empty recommendations leave the master prompt untouched; the rewrite
// capability is never invoked on an empty recommendation set.
func (s *Service) LearnFromFeedback(ctx context.Context, styleID string) (Outcome, error) {
	profile, err := s.styles.GetByID(ctx, styleID)
	if err != nil {
		return "", err
	}

	entries, err := s.feedback.ListRecentByStyle(ctx, styleID, generationWindow, entryCap)
	if err != nil {
		return "", fmt.Errorf("load feedback window: %w", err)
	}

	var accepted, rejected []domain.FeedbackEntry
	edits := 0
	for _, e := range entries {
		switch e.Type {
		case domain.FeedbackAccepted:
			accepted = append(accepted, e)
		case domain.FeedbackRejected:
			rejected = append(rejected, e)
		case domain.FeedbackEditRequested:
			// tracked but not weighted into the recommendation sample
			edits++
		}
	}

	if len(accepted)+len(rejected) < minSignal {
		observability.LearningPasses.WithLabelValues(string(OutcomeInsufficientSignal)).Inc()
		s.logger.Debug().Str("style_id", styleID).
			Int("accepted", len(accepted)).Int("rejected", len(rejected)).Int("edits", edits).
			Msg("learner: insufficient signal, skipping")
		return OutcomeInsufficientSignal, nil
	}

	master := ""
	if profile.MasterPrompt != nil {
		master = *profile.MasterPrompt
	}
	sample := ai.FeedbackSample{MasterPrompt: master}
	for _, e := range accepted {
		if p := s.promptFor(ctx, e); p != "" {
			sample.AcceptedPrompts = append(sample.AcceptedPrompts, p)
		}
	}
	for _, e := range rejected {
		if p := s.promptFor(ctx, e); p != "" {
			sample.RejectedPrompts = append(sample.RejectedPrompts, p)
		}
		if e.Reject != nil && e.Reject.Reason != "" {
			sample.RejectionNotes = append(sample.RejectionNotes, e.Reject.Reason)
		}
	}

	rec, err := s.recommender.Recommend(ctx, sample)
	if err != nil {
		return "", fmt.Errorf("recommend: %w", err)
	}

	patch := domain.StyleProfileUpdate{}
	changed := false

	if len(rec.Recommendations) > 0 {
		refined, err := s.rewriter.Rewrite(ctx, master, rec.Recommendations)
		if err != nil {
			return "", fmt.Errorf("rewrite master prompt: %w", err)
		}
		if refined != "" && refined != master {
			patch.MasterPrompt = &refined
			changed = true
		}
	}

	if rec.Temperature != nil || rec.NegativePrompts != nil {
		merged := profile.Settings
		if rec.Temperature != nil {
			merged.Temperature = rec.Temperature
		}
		if rec.NegativePrompts != nil {
			merged.NegativePrompts = rec.NegativePrompts
		}
		patch.Settings = &merged
		changed = true
	}

	if !changed {
		observability.LearningPasses.WithLabelValues(string(OutcomeNoop)).Inc()
		return OutcomeNoop, nil
	}

	if err := s.styles.Update(ctx, styleID, patch); err != nil {
		return "", fmt.Errorf("persist refinement: %w", err)
	}
	observability.LearningPasses.WithLabelValues(string(OutcomeUpdated)).Inc()
	s.logger.Info().Str("style_id", styleID).
		Bool("prompt_refined", patch.MasterPrompt != nil).
		Int("recommendations", len(rec.Recommendations)).
		Msg("learner: style refined from feedback")
	return OutcomeUpdated, nil
}

// promptFor resolves the prompt that produced the judged generation. The
// refined prompt on the entry wins when present. Lookup failures drop the
// sample entry rather than failing the pass.
func (s *Service) promptFor(ctx context.Context, e domain.FeedbackEntry) string {
	if e.RefinedPrompt != nil && *e.RefinedPrompt != "" {
		return *e.RefinedPrompt
	}
	gen, err := s.generations.GetByID(ctx, e.GenerationID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("generation_id", e.GenerationID).Msg("learner: failed to resolve generation prompt")
		}
		return ""
	}
	return gen.Prompt
}
