package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"styleforge/internal/adapter/repo"
	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/jobs"
	"styleforge/internal/learner"
	"styleforge/internal/orchestrator"
	"styleforge/internal/providers/ai"
	"styleforge/internal/providers/image"
	"styleforge/internal/providers/openai"
	"styleforge/internal/providers/replicate"
	"styleforge/internal/providers/stability"
	"styleforge/internal/queue"
	"styleforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	openAIClient := openai.NewClient(openai.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.OpenAIModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	stabilityClient := stability.NewClient(stability.Options{
		APIKey:  cfg.StabilityAPIKey,
		BaseURL: cfg.StabilityBaseURL,
	})
	replicateClient := replicate.NewClient(replicate.Options{
		APIKey:  cfg.ReplicateAPIKey,
		BaseURL: cfg.ReplicateBaseURL,
		Logger:  &logger,
	})
	aiClient := ai.NewClient(openAIClient, logger)

	orch := orchestrator.New(adapterLists(cfg, openAIClient, stabilityClient, replicateClient, httpClient), logger)

	styles := repo.NewStyleRepository(pool)
	generations := repo.NewGenerationRepository(pool)
	feedback := repo.NewFeedbackRepository(pool)
	jobRepo := repo.NewJobRepository(pool)

	learnSvc := learner.NewService(styles, generations, feedback, aiClient, aiClient, logger)
	processor := jobs.NewProcessor(styles, generations, orch, learnSvc, store, httpClient, logger)

	workers := []*queue.Worker{
		queue.NewWorker(domain.QueueGeneration,
			queue.Policy{MaxAttempts: 2, BaseDelay: cfg.RetryBaseDelay, Concurrency: cfg.GenerationWorkers},
			jobRepo, processor.HandleGeneration, logger, cfg.CompletedRetention),
		queue.NewWorker(domain.QueuePostprocess,
			queue.Policy{MaxAttempts: 2, BaseDelay: cfg.RetryBaseDelay, Concurrency: cfg.PostprocessWorkers},
			jobRepo, processor.HandlePostprocess, logger, cfg.CompletedRetention),
		queue.NewWorker(domain.QueueLearning,
			queue.PolicyFor(domain.QueueLearning, cfg.RetryBaseDelay),
			jobRepo, processor.HandleLearning, logger, cfg.CompletedRetention),
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *queue.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("worker: queue loop stopped with error")
			}
		}(w)
	}
	wg.Wait()
	logger.Info().Msg("worker: stopped")
}

// adapterLists builds the static per-capability priority lists. Order is
// fixed: an adapter earlier in a list always gets the first attempt.
func adapterLists(cfg *infra.Config, oa *openai.Client, st *stability.Client, rep *replicate.Client, httpClient *http.Client) map[image.Capability][]image.Adapter {
	return map[image.Capability][]image.Adapter{
		image.CapabilityGenerate: {
			image.NewOpenAIAdapter(oa),
			image.NewStabilityAdapter(st),
			image.NewReplicateAdapter(rep),
		},
		image.CapabilityRemoveBackground: {
			image.NewRemoveBgAdapter(cfg.RemoveBgAPIKey, httpClient),
			image.NewClipdropAdapter(cfg.ClipdropAPIKey, httpClient),
			image.NewOpenAIEditAdapter(oa),
		},
		image.CapabilityVectorize: {
			image.NewVectorizerAdapter(cfg.VectorizerAPIKey, httpClient),
			image.NewReplicateAdapter(rep),
		},
	}
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.MinioEndpoint != "" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewFileStore(cfg.StoragePath)
}
