package queue

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/observability"
)

const defaultPollInterval = 2 * time.Second

// Handler processes one claimed job and returns its result payload.
type Handler func(ctx context.Context, job *domain.Job) ([]byte, error)

// Worker drains one queue. Processing is bounded by the policy's concurrency;
// the learning queue runs with concurrency one so two passes can never race a
// read-modify-write of the same style's settings.
type Worker struct {
	queue        domain.Queue
	policy       Policy
	jobs         domain.JobRepository
	handler      Handler
	logger       infra.Logger
	pollInterval time.Duration
	retention    int
}

func NewWorker(q domain.Queue, policy Policy, jobs domain.JobRepository, handler Handler, logger infra.Logger, retention int) *Worker {
	if policy.Concurrency < 1 {
		policy.Concurrency = 1
	}
	return &Worker{
		queue:        q,
		policy:       policy,
		jobs:         jobs,
		handler:      handler,
		logger:       logger,
		pollInterval: defaultPollInterval,
		retention:    retention,
	}
}

// Run polls for claimable jobs until the context is cancelled, then waits for
// in-flight jobs to finish.
func (w *Worker) Run(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(w.policy.Concurrency))
	w.logger.Info().Str("queue", string(w.queue)).Int("concurrency", w.policy.Concurrency).Msg("worker: started")

	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		job, err := w.jobs.Claim(ctx, w.queue)
		if err != nil {
			sem.Release(1)
			if errors.Is(err, domain.ErrNotFound) {
				if !sleepCtx(ctx, w.pollInterval) {
					break
				}
				continue
			}
			w.logger.Error().Err(err).Str("queue", string(w.queue)).Msg("worker: claim failed")
			if !sleepCtx(ctx, w.pollInterval) {
				break
			}
			continue
		}
		go func() {
			defer sem.Release(1)
			w.process(ctx, job)
		}()
	}

	// drain in-flight jobs
	_ = sem.Acquire(context.Background(), int64(w.policy.Concurrency))
	w.logger.Info().Str("queue", string(w.queue)).Msg("worker: stopped")
	return ctx.Err()
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	w.logger.Info().Str("queue", string(w.queue)).Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("worker: picked job")

	result, err := w.handler(ctx, job)

	// State writes must land even when the run context was cancelled mid
	// handler, otherwise an interrupted job stays active and no poller ever
	// sees a terminal state.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err != nil {
		if job.Attempts < w.policy.MaxAttempts {
			runAt := time.Now().Add(Backoff(w.policy.BaseDelay, job.Attempts))
			if retryErr := w.jobs.Retry(writeCtx, job.ID, err.Error(), runAt); retryErr != nil {
				w.logger.Error().Err(retryErr).Str("job_id", job.ID).Msg("worker: reschedule failed")
			}
			observability.JobsProcessed.WithLabelValues(string(w.queue), "retried").Inc()
			w.logger.Warn().Err(err).Str("job_id", job.ID).Time("run_at", runAt).Msg("worker: job failed, will retry")
			return
		}
		if failErr := w.jobs.Fail(writeCtx, job.ID, err.Error()); failErr != nil {
			w.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("worker: mark failed errored")
		}
		observability.JobsProcessed.WithLabelValues(string(w.queue), "failed").Inc()
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job terminally failed")
		return
	}

	if err := w.jobs.Complete(writeCtx, job.ID, result); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark completed errored")
		return
	}
	observability.JobsProcessed.WithLabelValues(string(w.queue), "completed").Inc()

	if w.retention > 0 {
		if err := w.jobs.PruneCompleted(writeCtx, w.queue, w.retention); err != nil {
			w.logger.Warn().Err(err).Str("queue", string(w.queue)).Msg("worker: prune completed jobs failed")
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
