package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"styleforge/internal/domain"
)

type createStyleRequest struct {
	Name       string   `json:"name"`
	UserID     string   `json:"user_id"`
	References []string `json:"references"`
}

// CreateStyle registers a new style profile. References may be empty; the
// profile only gains a master prompt once analysis runs.
func (a *App) CreateStyle(w http.ResponseWriter, r *http.Request) {
	var req createStyleRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.UserID) == "" {
		a.fail(w, fmt.Errorf("%w: name and user_id are required", domain.ErrValidation))
		return
	}
	refs := make([]domain.StyleReference, 0, len(req.References))
	for _, url := range req.References {
		if s := strings.TrimSpace(url); s != "" {
			refs = append(refs, domain.StyleReference{URL: s})
		}
	}
	profile := &domain.StyleProfile{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Name:       strings.TrimSpace(req.Name),
		References: refs,
	}
	if err := a.Styles.Create(r.Context(), profile); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, profile)
}

// GetStyle returns one style profile.
func (a *App) GetStyle(w http.ResponseWriter, r *http.Request) {
	profile, err := a.Styles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, profile)
}

type patchStyleRequest struct {
	Name     *string                    `json:"name,omitempty"`
	Settings *domain.GenerationSettings `json:"generation_settings,omitempty"`
}

// PatchStyle updates name and/or generation settings. Omitted fields are left
// untouched.
func (a *App) PatchStyle(w http.ResponseWriter, r *http.Request) {
	var req patchStyleRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.Name == nil && req.Settings == nil {
		a.fail(w, fmt.Errorf("%w: nothing to update", domain.ErrValidation))
		return
	}
	patch := domain.StyleProfileUpdate{Name: req.Name, Settings: req.Settings}
	if err := a.Styles.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		a.fail(w, err)
		return
	}
	profile, err := a.Styles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, profile)
}

// AnalyzeStyle runs reference analysis synchronously. This is an operator
// path: low volume, caller waits for the full pass.
func (a *App) AnalyzeStyle(w http.ResponseWriter, r *http.Request) {
	profile, err := a.Analyzer.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, profile)
}

// TriggerLearn enqueues a learning pass for the style and returns the job id.
func (a *App) TriggerLearn(w http.ResponseWriter, r *http.Request) {
	styleID := chi.URLParam(r, "id")
	if _, err := a.Styles.GetByID(r.Context(), styleID); err != nil {
		a.fail(w, err)
		return
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), domain.QueueLearning, domain.LearningPayload{StyleID: styleID})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
