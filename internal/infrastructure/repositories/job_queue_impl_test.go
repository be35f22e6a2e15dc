package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
)

func newMockJobQueue(t *testing.T) (*jobQueueRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &jobQueueRepo{db: db}, mock
}

func TestJobQueue_Enqueue_Success(t *testing.T) {
	r, mock := newMockJobQueue(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("NOTIFY")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	job, err := r.Enqueue(context.Background(), entities.ProviderEvent{
		EventID:    "evt_1",
		ObjectID:   "pi_1",
		EventType:  "payment_intent.succeeded",
		ProviderTS: 100,
		Payload:    []byte(`{}`),
		ReceivedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, entities.JobPending, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Enqueue_DuplicateReturnsErrDuplicate(t *testing.T) {
	r, mock := newMockJobQueue(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_jobs")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := r.Enqueue(context.Background(), entities.ProviderEvent{
		EventID:    "evt_dup",
		ObjectID:   "pi_1",
		EventType:  "payment_intent.succeeded",
		ProviderTS: 100,
		Payload:    []byte(`{}`),
		ReceivedAt: time.Now(),
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Claim_LocksAndMarksProcessing(t *testing.T) {
	r, mock := newMockJobQueue(t)
	now := time.Now()

	mock.ExpectBegin()
	cols := []string{"id", "event_id", "object_id", "event_type", "provider_ts", "raw_event",
		"status", "attempts", "max_attempts", "last_error", "scheduled_at", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"job-1", "evt_1", "pi_1", "payment_intent.succeeded", int64(100), []byte(`{}`),
			"pending", 0, 5, "", now, now, now,
		))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_jobs SET status = $1, attempts = attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	jobs, err := r.Claim(context.Background(), 1, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, entities.JobProcessing, jobs[0].Status)
	require.Equal(t, 1, jobs[0].Attempts, "Claim must increment attempts")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Complete(t *testing.T) {
	r, mock := newMockJobQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_jobs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Complete(context.Background(), "job-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Fail_RetriesWithinBudget(t *testing.T) {
	r, mock := newMockJobQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT attempts, max_attempts")).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "max_attempts"}).AddRow(1, 5))
	mock.ExpectExec(regexp.QuoteMeta("SET status = $1, last_error = $2, scheduled_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.Fail(context.Background(), "job-1", "timeout")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Fail_ExhaustsBudget(t *testing.T) {
	r, mock := newMockJobQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT attempts, max_attempts")).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "max_attempts"}).AddRow(5, 5))
	mock.ExpectExec(regexp.QuoteMeta("SET status = $1, last_error = $2, updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.Fail(context.Background(), "job-1", "exhausted error")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_FailPermanent(t *testing.T) {
	r, mock := newMockJobQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_jobs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.FailPermanent(context.Background(), "job-1", "validation error")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_ReapStale(t *testing.T) {
	r, mock := newMockJobQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := r.ReapStale(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Depth(t *testing.T) {
	r, mock := newMockJobQueue(t)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("processing", 1))

	depth, err := r.Depth(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, depth[entities.JobPending])
	require.Equal(t, 1, depth[entities.JobProcessing])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobQueue_Requeue_NotFoundReturnsError(t *testing.T) {
	r, mock := newMockJobQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Requeue(context.Background(), "missing")
	require.ErrorIs(t, err, domainerrors.ErrJobNotClaimable)
	require.NoError(t, mock.ExpectationsWereMet())
}
