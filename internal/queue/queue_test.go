package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"styleforge/internal/domain"
)

func TestPolicyForLearningNeverRetries(t *testing.T) {
	p := PolicyFor(domain.QueueLearning, time.Second)
	if p.MaxAttempts != 1 {
		t.Fatalf("learning max attempts = %d, want 1", p.MaxAttempts)
	}
	if p.Concurrency != 1 {
		t.Fatalf("learning concurrency = %d, want 1", p.Concurrency)
	}
}

func TestPolicyForGenerationRetriesOnce(t *testing.T) {
	for _, q := range []domain.Queue{domain.QueueGeneration, domain.QueuePostprocess} {
		p := PolicyFor(q, time.Second)
		if p.MaxAttempts != 2 {
			t.Fatalf("%s max attempts = %d, want 2", q, p.MaxAttempts)
		}
	}
	p := PolicyFor(domain.QueueGeneration, 0)
	if p.BaseDelay != 5*time.Second {
		t.Fatalf("zero base delay should fall back to 5s, got %s", p.BaseDelay)
	}
}

func TestBackoffDoubles(t *testing.T) {
	base := 5 * time.Second
	cases := map[int]time.Duration{
		0: 5 * time.Second,
		1: 5 * time.Second,
		2: 10 * time.Second,
		3: 20 * time.Second,
	}
	for attempt, want := range cases {
		if got := Backoff(base, attempt); got != want {
			t.Fatalf("Backoff(%d) = %s, want %s", attempt, got, want)
		}
	}
}

type fakeJobs struct {
	mu        sync.Mutex
	enqueued  []*domain.Job
	claimable []*domain.Job
	completed map[string][]byte
	retried   map[string]time.Time
	failed    map[string]string
	pruned    int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		completed: map[string][]byte{},
		retried:   map[string]time.Time{},
		failed:    map[string]string{},
	}
}

func (f *fakeJobs) Enqueue(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeJobs) Claim(_ context.Context, q domain.Queue) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, job := range f.claimable {
		if job.Queue == q {
			f.claimable = append(f.claimable[:i], f.claimable[i+1:]...)
			job.Attempts++
			job.Status = domain.JobStatusActive
			return job, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobs) Complete(ctx context.Context, id string, result []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = result
	return nil
}

func (f *fakeJobs) Retry(ctx context.Context, id string, reason string, runAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried[id] = runAt
	return nil
}

func (f *fakeJobs) Fail(ctx context.Context, id string, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.enqueued {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobs) PruneCompleted(_ context.Context, q domain.Queue, keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned++
	return nil
}

func TestClientEnqueueSetsPolicyAndPayload(t *testing.T) {
	jobs := newFakeJobs()
	client := NewClient(jobs, time.Second)

	id, err := client.Enqueue(context.Background(), domain.QueueGeneration, domain.GenerationPayload{Kind: domain.GenerationKindGenerate, StyleID: "s1", UserPrompt: "a fox"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id == "" {
		t.Fatalf("expected job id")
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(jobs.enqueued))
	}
	job := jobs.enqueued[0]
	if job.Queue != domain.QueueGeneration || job.Status != domain.JobStatusPending {
		t.Fatalf("job = %s/%s, want generation/pending", job.Queue, job.Status)
	}
	if job.MaxAttempts != 2 {
		t.Fatalf("max attempts = %d, want 2", job.MaxAttempts)
	}
	var payload domain.GenerationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.StyleID != "s1" || payload.UserPrompt != "a fox" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestGetJobViewStates(t *testing.T) {
	jobs := newFakeJobs()
	client := NewClient(jobs, time.Second)
	jobs.enqueued = []*domain.Job{
		{ID: "done", Queue: domain.QueueGeneration, Status: domain.JobStatusCompleted, Result: []byte(`{"ok":true}`)},
		{ID: "bad", Queue: domain.QueueGeneration, Status: domain.JobStatusFailed, FailedReason: "all providers failed"},
		{ID: "busy", Queue: domain.QueueGeneration, Status: domain.JobStatusActive},
	}

	view, err := client.GetJob(context.Background(), "done")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.Progress != 100 || string(view.Result) != `{"ok":true}` {
		t.Fatalf("completed view = %+v", view)
	}

	view, err = client.GetJob(context.Background(), "bad")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.FailedReason != "all providers failed" {
		t.Fatalf("failed view = %+v", view)
	}

	view, err = client.GetJob(context.Background(), "busy")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.Progress != 50 {
		t.Fatalf("active progress = %d, want 50", view.Progress)
	}

	if _, err := client.GetJob(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func runWorkerOnce(t *testing.T, jobs *fakeJobs, policy Policy, handler Handler) {
	t.Helper()
	w := NewWorker(domain.QueueGeneration, policy, jobs, handler, zerolog.New(io.Discard), 100)
	w.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		jobs.mu.Lock()
		idle := len(jobs.claimable) == 0
		jobs.mu.Unlock()
		if idle {
			// one extra poll interval so in-flight handlers finish
			time.Sleep(20 * time.Millisecond)
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not drain queue in time")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	<-done
}

// A shutdown while a job is in flight must still record the job's state:
// the handler aborts with context.Canceled, and the reschedule write has to
// go through anyway or the job stays active forever.
func TestWorkerShutdownReschedulesInFlightJob(t *testing.T) {
	jobs := newFakeJobs()
	jobs.claimable = []*domain.Job{{ID: "j1", Queue: domain.QueueGeneration, MaxAttempts: 2}}

	w := NewWorker(domain.QueueGeneration, Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Concurrency: 1}, jobs, func(ctx context.Context, _ *domain.Job) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, zerolog.New(io.Discard), 0)
	w.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		jobs.mu.Lock()
		claimed := len(jobs.claimable) == 0
		jobs.mu.Unlock()
		if claimed {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job was never claimed")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if _, ok := jobs.retried["j1"]; !ok {
		t.Fatalf("interrupted job should be rescheduled, got retried=%v failed=%v completed=%v", jobs.retried, jobs.failed, jobs.completed)
	}
}

func TestWorkerCompletesJob(t *testing.T) {
	jobs := newFakeJobs()
	jobs.claimable = []*domain.Job{{ID: "j1", Queue: domain.QueueGeneration, MaxAttempts: 2}}

	runWorkerOnce(t, jobs, Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Concurrency: 1}, func(context.Context, *domain.Job) ([]byte, error) {
		return []byte(`{"done":true}`), nil
	})

	if string(jobs.completed["j1"]) != `{"done":true}` {
		t.Fatalf("completed = %v", jobs.completed)
	}
	if jobs.pruned == 0 {
		t.Fatalf("expected completed jobs to be pruned")
	}
}

func TestWorkerRetriesThenFails(t *testing.T) {
	jobs := newFakeJobs()
	jobs.claimable = []*domain.Job{{ID: "j1", Queue: domain.QueueGeneration, MaxAttempts: 2, Attempts: 0}}

	runWorkerOnce(t, jobs, Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Concurrency: 1}, func(context.Context, *domain.Job) ([]byte, error) {
		return nil, errors.New("provider down")
	})
	if _, ok := jobs.retried["j1"]; !ok {
		t.Fatalf("first failure should reschedule, got retried=%v failed=%v", jobs.retried, jobs.failed)
	}

	// second attempt exhausts the budget
	jobs.claimable = []*domain.Job{{ID: "j1", Queue: domain.QueueGeneration, MaxAttempts: 2, Attempts: 1}}
	runWorkerOnce(t, jobs, Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Concurrency: 1}, func(context.Context, *domain.Job) ([]byte, error) {
		return nil, errors.New("provider down")
	})
	if jobs.failed["j1"] != "provider down" {
		t.Fatalf("second failure should be terminal, got retried=%v failed=%v", jobs.retried, jobs.failed)
	}
}
