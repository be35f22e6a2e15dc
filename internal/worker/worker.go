// Package worker claims jobs from the durable queue and drives them
// through normalization and payment-state mutation. Its shape — a
// fixed pool of goroutines on a ticker, with a stop channel for clean
// shutdown — follows the same pattern as the teacher's background
// expiry job, generalized to a pool and to a second external wakeup
// source (LISTEN/NOTIFY).
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stripe/stripe-go/v82"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	domainrepos "paysync.backend/internal/domain/repositories"
	"paysync.backend/internal/metrics"
	"paysync.backend/internal/normalizer"
	"paysync.backend/pkg/logger"
)

// Config controls pool size and timing. Zero values are replaced with
// sane defaults by NewPool.
type Config struct {
	Workers           int
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	ClaimBatchSize    int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 30 * time.Second
	}
	if c.ClaimBatchSize <= 0 {
		c.ClaimBatchSize = 10
	}
	return c
}

// Pool runs Config.Workers goroutines, each polling the job queue on
// its own ticker and optionally woken early by Wakeups.
type Pool struct {
	queue    domainrepos.JobQueue
	payments domainrepos.PaymentRepository
	cfg      Config
	Wakeups  <-chan struct{}
	stop     chan struct{}
}

func NewPool(queue domainrepos.JobQueue, payments domainrepos.PaymentRepository, cfg Config, wakeups <-chan struct{}) *Pool {
	return &Pool{
		queue:    queue,
		payments: payments,
		cfg:      cfg.withDefaults(),
		Wakeups:  wakeups,
		stop:     make(chan struct{}),
	}
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		go p.run(ctx)
	}
}

// Stop signals all workers to exit once their current drain finishes,
// that is, once a claim comes back empty or fails.
func (p *Pool) Stop() {
	close(p.stop)
}

func (p *Pool) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.drain(ctx)
		case <-p.Wakeups:
			p.drain(ctx)
		}
	}
}

// drain claims and processes jobs until a claim comes back empty.
func (p *Pool) drain(ctx context.Context) {
	for {
		jobs, err := p.queue.Claim(ctx, p.cfg.ClaimBatchSize, p.cfg.VisibilityTimeout)
		if err != nil {
			logger.Error(ctx, "claim failed", zap.Error(err))
			return
		}
		if len(jobs) == 0 {
			return
		}
		metrics.JobsClaimed.Add(float64(len(jobs)))

		for _, job := range jobs {
			p.process(ctx, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, job *entities.Job) {
	claimedAt := time.Now()
	defer metrics.ObserveClaimToComplete(claimedAt)

	err := p.processOnce(ctx, job)
	if err == nil {
		if err := p.queue.Complete(ctx, job.ID); err != nil {
			logger.Error(ctx, "failed to mark job complete", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		metrics.JobsCompleted.Inc()
		return
	}

	logger.Error(ctx, "job processing failed",
		zap.String("job_id", job.ID), zap.String("event_id", string(job.EventID)), zap.Error(err))

	if isPermanentError(err) {
		p.failPermanently(ctx, job, err)
		metrics.JobsFailed.WithLabelValues(boolLabel(true)).Inc()
		return
	}

	terminal := job.Attempts >= job.MaxAttempts
	if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
		logger.Error(ctx, "failed to mark job failed", zap.String("job_id", job.ID), zap.Error(failErr))
	}
	metrics.JobsFailed.WithLabelValues(boolLabel(terminal)).Inc()
}

// isPermanentError reports whether err can never succeed on retry —
// a malformed payload or a validation failure the provider will
// never resend differently. Those are routed straight to
// FailPermanent instead of burning the retry budget on backoff.
func isPermanentError(err error) bool {
	return errors.Is(err, domainerrors.ErrValidation) || errors.Is(err, domainerrors.ErrCurrencyMismatch)
}

// failPermanently marks the job failed outright and records an
// anomaly audit entry, since a permanently-failed job otherwise
// leaves no trace in the audit trail.
func (p *Pool) failPermanently(ctx context.Context, job *entities.Job, cause error) {
	if err := p.queue.FailPermanent(ctx, job.ID, cause.Error()); err != nil {
		logger.Error(ctx, "failed to mark job permanently failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	entry := entities.AuditEntry{
		EntityType: "payment_job",
		EntityID:   string(job.ObjectID),
		ExternalID: &job.ObjectID,
		EventID:    &job.EventID,
		Action:     entities.AuditAnomalyLogged,
		Actor:      "system",
		Detail:     map[string]interface{}{"reason": cause.Error(), "event_type": job.EventType},
	}
	if err := p.payments.LogPassthroughEvent(ctx, entry); err != nil {
		logger.Error(ctx, "failed to record anomaly audit entry", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (p *Pool) processOnce(ctx context.Context, job *entities.Job) error {
	var event stripe.Event
	if err := json.Unmarshal(job.RawEvent, &event); err != nil {
		return fmt.Errorf("decode job payload: %w: %w", domainerrors.ErrValidation, err)
	}

	outcome, err := normalizer.Normalize(event)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case normalizer.Mutation:
		res, err := p.payments.ProcessPaymentEvent(ctx, outcome.Payment)
		if err != nil {
			return err
		}
		logger.Info(ctx, "payment event processed",
			zap.String("job_id", job.ID),
			zap.String("event_id", string(job.EventID)),
			zap.String("external_id", string(outcome.Payment.ExternalID)),
			zap.String("decision", res.Decision.String()))
		return nil
	case normalizer.Passthrough:
		return p.payments.LogPassthroughEvent(ctx, outcome.PassthroughOn)
	default:
		return nil
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
