package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"styleforge/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Enqueue inserts a new pending job.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, queue, status, payload, attempts, max_attempts, run_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Queue,
		domain.JobStatusPending,
		job.Payload,
		0,
		job.MaxAttempts,
		job.RunAt,
	)
	return err
}

// staleActiveAfter is how long a job may sit active before it is considered
// abandoned by a dead worker and becomes claimable again.
const staleActiveAfter = 10 * time.Minute

// Claim atomically picks the oldest runnable pending job of the queue, marks
// it active and increments its attempt counter. Active jobs untouched for
// longer than staleActiveAfter are reclaimed too, so a worker that died mid
// job does not strand it. Concurrent workers never claim the same job thanks
// to SKIP LOCKED. domain.ErrNotFound means the queue is currently empty.
func (r *JobRepositoryPG) Claim(ctx context.Context, queue domain.Queue) (*domain.Job, error) {
	query := `
UPDATE jobs
SET status = $2, attempts = attempts + 1, updated_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE queue = $1 AND run_at <= NOW()
      AND (status = $3 OR (status = $2 AND updated_at < NOW() - make_interval(secs => $4)))
    ORDER BY run_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING id, queue, status, payload, result, attempts, max_attempts, run_at, COALESCE(failed_reason, ''), created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query, queue, domain.JobStatusActive, domain.JobStatusPending, staleActiveAfter.Seconds())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// Complete marks a job completed with its result payload.
func (r *JobRepositoryPG) Complete(ctx context.Context, id string, result []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, result = $3, updated_at = NOW() WHERE id = $1;`,
		id, domain.JobStatusCompleted, nullableBytes(result))
	return err
}

// Retry reschedules a claimed job to run again at runAt.
func (r *JobRepositoryPG) Retry(ctx context.Context, id string, reason string, runAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, failed_reason = $3, run_at = $4, updated_at = NOW() WHERE id = $1;`,
		id, domain.JobStatusPending, reason, runAt)
	return err
}

// Fail marks a job terminally failed with the given reason.
func (r *JobRepositoryPG) Fail(ctx context.Context, id string, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, failed_reason = $3, updated_at = NOW() WHERE id = $1;`,
		id, domain.JobStatusFailed, reason)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
SELECT id, queue, status, payload, result, attempts, max_attempts, run_at, COALESCE(failed_reason, ''), created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// PruneCompleted keeps only the most recent keep completed jobs per queue.
func (r *JobRepositoryPG) PruneCompleted(ctx context.Context, queue domain.Queue, keep int) error {
	query := `
DELETE FROM jobs
WHERE queue = $1 AND status = $2 AND id NOT IN (
    SELECT id FROM jobs
    WHERE queue = $1 AND status = $2
    ORDER BY updated_at DESC
    LIMIT $3
);
`
	_, err := r.pool.Exec(ctx, query, queue, domain.JobStatusCompleted, keep)
	return err
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Queue,
		&job.Status,
		&job.Payload,
		&job.Result,
		&job.Attempts,
		&job.MaxAttempts,
		&job.RunAt,
		&job.FailedReason,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
