package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/learner"
	"styleforge/internal/queue"
	"styleforge/internal/storage"
)

// StyleAnalyzer is the synchronous analysis entrypoint of the style service.
type StyleAnalyzer interface {
	Analyze(ctx context.Context, styleID string) (*domain.StyleProfile, error)
}

// JobClient is the queue surface the API uses: enqueue and poll.
type JobClient interface {
	Enqueue(ctx context.Context, q domain.Queue, payload any) (string, error)
	GetJob(ctx context.Context, id string) (*queue.JobView, error)
}

// LearnRunner runs a synchronous learning pass, used by the operator path.
type LearnRunner interface {
	LearnFromFeedback(ctx context.Context, styleID string) (learner.Outcome, error)
}

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Styles      domain.StyleRepository
	Generations domain.GenerationRepository
	Feedback    domain.FeedbackRepository
	Analyzer    StyleAnalyzer
	Jobs        JobClient
	Store       storage.ObjectStore
	Logger      infra.Logger
}

func NewApp(
	styles domain.StyleRepository,
	generations domain.GenerationRepository,
	feedback domain.FeedbackRepository,
	analyzer StyleAnalyzer,
	jobClient JobClient,
	store storage.ObjectStore,
	logger infra.Logger,
) *App {
	return &App{
		Styles:      styles,
		Generations: generations,
		Feedback:    feedback,
		Analyzer:    analyzer,
		Jobs:        jobClient,
		Store:       store,
		Logger:      logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// fail maps domain errors onto HTTP statuses with a structured reason.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, domain.ErrValidation):
		a.json(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrAllProvidersFailed):
		a.json(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		a.Logger.Error().Err(err).Msg("http: internal error")
		a.json(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation
	}
	return nil
}
