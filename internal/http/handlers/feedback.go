package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"styleforge/internal/domain"
)

type feedbackRequest struct {
	Type          string              `json:"type"`
	Edit          *domain.EditRequest `json:"edit,omitempty"`
	Rejection     *domain.Rejection   `json:"rejection,omitempty"`
	RefinedPrompt *string             `json:"refined_prompt,omitempty"`
}

// SubmitFeedback appends one feedback entry and synchronously transitions the
// generation's status. The status flip happens per submission, independent of
// whether a learning pass ever runs.
func (a *App) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	genID := chi.URLParam(r, "id")
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}

	gen, err := a.Generations.GetByID(r.Context(), genID)
	if err != nil {
		a.fail(w, err)
		return
	}

	entry := &domain.FeedbackEntry{
		ID:            uuid.NewString(),
		GenerationID:  gen.ID,
		Type:          domain.FeedbackType(strings.TrimSpace(req.Type)),
		Edit:          req.Edit,
		Reject:        req.Rejection,
		RefinedPrompt: req.RefinedPrompt,
	}
	if err := entry.Validate(); err != nil {
		a.fail(w, err)
		return
	}

	if err := a.Feedback.Insert(r.Context(), entry); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.Generations.UpdateStatus(r.Context(), gen.ID, entry.Type.StatusFor()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"feedback_id": entry.ID,
		"status":      entry.Type.StatusFor(),
	})
}
