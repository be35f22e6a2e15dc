package repositories

import (
	"context"
	"time"

	"paysync.backend/internal/domain/entities"
)

// JobQueue is the durable intake-to-worker handoff (spec.md §4.3). It
// is implemented against raw database/sql rather than gorm because
// its correctness rests entirely on `SELECT ... FOR UPDATE SKIP
// LOCKED`, which gorm's query builder does not express cleanly.
type JobQueue interface {
	// Enqueue inserts a new pending job. payment_jobs' own unique
	// constraint on EventID is the dedup gate: Enqueue returns
	// domainerrors.ErrDuplicate (not an error the caller should retry
	// on) when the event was already seen. This is independent of
	// ProcessPaymentEvent's own provider_events dedup insert — the
	// queue dedups redelivered webhooks, ProcessPaymentEvent dedups
	// redelivered processing attempts.
	Enqueue(ctx context.Context, evt entities.ProviderEvent) (*entities.Job, error)

	// Claim atomically selects and locks up to n pending jobs whose
	// ScheduledAt has passed (expired processing leases come back only
	// through ReapStale) for exclusive processing by this worker, flipping them to
	// JobProcessing, incrementing their attempt counter, and stamping
	// ScheduledAt to now+visibilityTimeout.
	Claim(ctx context.Context, n int, visibilityTimeout time.Duration) ([]*entities.Job, error)

	// Complete marks a job JobCompleted.
	Complete(ctx context.Context, jobID string) error

	// Fail records lastErr against a job using the attempt count Claim
	// already incremented. If that count has reached MaxAttempts the
	// job moves to JobFailed; otherwise it returns to JobPending with
	// ScheduledAt pushed out by entities.Backoff(attempts).
	Fail(ctx context.Context, jobID string, lastErr string) error

	// FailPermanent moves a job straight to JobFailed regardless of its
	// attempt count, for errors the worker has classified as
	// non-retryable (malformed payloads, validation failures) where
	// burning the retry budget would only delay the outcome.
	FailPermanent(ctx context.Context, jobID string, lastErr string) error

	// ReapStale returns processing jobs whose ScheduledAt lease has
	// expired back to JobPending, and reports how many it reclaimed.
	// Called by the reaper on a fixed interval (spec.md §4.3, "a worker
	// that dies mid-job must not silently drop it").
	ReapStale(ctx context.Context) (int, error)

	// Depth reports the number of jobs in each status, for the queue
	// depth gauges.
	Depth(ctx context.Context) (map[entities.JobStatus]int, error)

	// ListByStatus supports the operator console's job listing.
	ListByStatus(ctx context.Context, status entities.JobStatus, limit, offset int) ([]*entities.Job, error)

	// Requeue resets a JobFailed job back to JobPending with attempts
	// reset to zero, for operator-triggered manual retry.
	Requeue(ctx context.Context, jobID string) error
}
