package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"styleforge/internal/http/handlers"
	"styleforge/internal/middleware"
)

// Options tunes the router's cross-cutting middleware.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	enqueueLimit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Route("/v1/styles", func(r chi.Router) {
		r.Post("/", app.CreateStyle)
		r.Get("/{id}", app.GetStyle)
		r.Patch("/{id}", app.PatchStyle)
		r.Post("/{id}/analyze", app.AnalyzeStyle)
		r.Post("/{id}/learn", app.TriggerLearn)
		r.Get("/{id}/bundle", app.DownloadStyleBundle)
	})

	r.Route("/v1/generations", func(r chi.Router) {
		r.With(enqueueLimit).Post("/", app.CreateGeneration)
		r.Get("/{id}", app.GetGeneration)
		r.Get("/{id}/tree", app.GetGenerationTree)
		r.Get("/{id}/download", app.DownloadGeneration)
		r.With(enqueueLimit).Post("/{id}/edits", app.CreateEdits)
		r.With(enqueueLimit).Post("/{id}/postprocess", app.CreatePostprocess)
		r.Post("/{id}/feedback", app.SubmitFeedback)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/{id}", app.GetJob)
	})

	return r
}
