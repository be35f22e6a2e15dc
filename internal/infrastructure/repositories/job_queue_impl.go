package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	domainrepos "paysync.backend/internal/domain/repositories"
	"paysync.backend/internal/infrastructure/notify"
	"paysync.backend/pkg/utils"
)

const pqUniqueViolation = "23505"

// jobQueueRepo implements JobQueue directly against database/sql: its
// correctness depends on SELECT ... FOR UPDATE SKIP LOCKED, which
// gorm's query builder cannot express, so it bypasses the ORM
// entirely the way the teacher's own raw-SQL repositories do.
type jobQueueRepo struct {
	db *sql.DB
}

func NewJobQueue(db *sql.DB) domainrepos.JobQueue {
	return &jobQueueRepo{db: db}
}

func (r *jobQueueRepo) Enqueue(ctx context.Context, evt entities.ProviderEvent) (*entities.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job := &entities.Job{
		ID:          utils.GenerateUUIDv7().String(),
		EventID:     evt.EventID,
		ObjectID:    evt.ObjectID,
		EventType:   evt.EventType,
		ProviderTS:  evt.ProviderTS,
		RawEvent:    evt.Payload,
		Status:      entities.JobPending,
		MaxAttempts: entities.DefaultMaxAttempts,
		ScheduledAt: time.Now(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_jobs (
			id, event_id, object_id, event_type, provider_ts, raw_event,
			status, attempts, max_attempts, scheduled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, now(), now())
	`, job.ID, string(job.EventID), string(job.ObjectID), job.EventType, job.ProviderTS, job.RawEvent,
		string(job.Status), job.MaxAttempts, job.ScheduledAt)
	if err != nil {
		if isPQUniqueViolation(err) {
			return nil, domainerrors.ErrDuplicate
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Best-effort wakeup for LISTEN-ing workers; the poll loop is the
	// correctness guarantee, this just shaves off latency.
	_, _ = r.db.ExecContext(ctx, "NOTIFY "+notify.Channel())

	return job, nil
}

func (r *jobQueueRepo) Claim(ctx context.Context, n int, visibilityTimeout time.Duration) ([]*entities.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id, object_id, event_type, provider_ts, raw_event,
		       status, attempts, max_attempts, last_error, scheduled_at, created_at, updated_at
		FROM payment_jobs
		WHERE status = $1 AND scheduled_at <= now()
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, string(entities.JobPending), n)
	if err != nil {
		return nil, err
	}

	var jobs []*entities.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	lease := time.Now().Add(visibilityTimeout)
	for _, job := range jobs {
		_, err := tx.ExecContext(ctx, `
			UPDATE payment_jobs SET status = $1, attempts = attempts + 1, scheduled_at = $2, updated_at = now()
			WHERE id = $3
		`, string(entities.JobProcessing), lease, job.ID)
		if err != nil {
			return nil, err
		}
		job.Status = entities.JobProcessing
		job.Attempts++
		job.ScheduledAt = lease
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobQueueRepo) Complete(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_jobs SET status = $1, updated_at = now() WHERE id = $2
	`, string(entities.JobCompleted), jobID)
	return err
}

func (r *jobQueueRepo) Fail(ctx context.Context, jobID string, lastErr string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRowContext(ctx, `SELECT attempts, max_attempts FROM payment_jobs WHERE id = $1 FOR UPDATE`, jobID).
		Scan(&attempts, &maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return domainerrors.ErrNotFound
	}
	if err != nil {
		return err
	}

	if attempts >= maxAttempts {
		_, err = tx.ExecContext(ctx, `
			UPDATE payment_jobs SET status = $1, last_error = $2, updated_at = now()
			WHERE id = $3
		`, string(entities.JobFailed), lastErr, jobID)
	} else {
		nextAttempt := time.Now().Add(entities.Backoff(attempts))
		_, err = tx.ExecContext(ctx, `
			UPDATE payment_jobs SET status = $1, last_error = $2, scheduled_at = $3, updated_at = now()
			WHERE id = $4
		`, string(entities.JobPending), lastErr, nextAttempt, jobID)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// FailPermanent moves a job straight to JobFailed without consulting
// its attempt count, for errors the worker has classified as
// non-retryable.
func (r *jobQueueRepo) FailPermanent(ctx context.Context, jobID string, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_jobs SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3
	`, string(entities.JobFailed), lastErr, jobID)
	return err
}

func (r *jobQueueRepo) ReapStale(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_jobs
		SET status = $1, updated_at = now()
		WHERE status = $2 AND scheduled_at <= now()
	`, string(entities.JobPending), string(entities.JobProcessing))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *jobQueueRepo) Depth(ctx context.Context) (map[entities.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM payment_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	depth := map[entities.JobStatus]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		depth[entities.JobStatus(status)] = count
	}
	return depth, rows.Err()
}

func (r *jobQueueRepo) ListByStatus(ctx context.Context, status entities.JobStatus, limit, offset int) ([]*entities.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, object_id, event_type, provider_ts, raw_event,
		       status, attempts, max_attempts, last_error, scheduled_at, created_at, updated_at
		FROM payment_jobs
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entities.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobQueueRepo) Requeue(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_jobs
		SET status = $1, attempts = 0, last_error = '', scheduled_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3
	`, string(entities.JobPending), jobID, string(entities.JobFailed))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.ErrJobNotClaimable
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(rows rowScanner) (*entities.Job, error) {
	var job entities.Job
	var eventID, objectID, status, lastError sql.NullString
	if err := rows.Scan(
		&job.ID, &eventID, &objectID, &job.EventType, &job.ProviderTS, &job.RawEvent,
		&status, &job.Attempts, &job.MaxAttempts, &lastError, &job.ScheduledAt, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.EventID = entities.EventID(eventID.String)
	job.ObjectID = entities.ExternalID(objectID.String)
	job.Status = entities.JobStatus(status.String)
	job.LastError = lastError.String
	return &job, nil
}

func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
