package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"paysync.backend/internal/domain/entities"
	domainrepos "paysync.backend/internal/domain/repositories"
)

type fakeOperatorQueue struct {
	jobs        []*entities.Job
	requeued    []string
	requeueErr  error
	listErr     error
}

func (f *fakeOperatorQueue) Enqueue(ctx context.Context, evt entities.ProviderEvent) (*entities.Job, error) {
	return nil, nil
}
func (f *fakeOperatorQueue) Claim(ctx context.Context, n int, vt time.Duration) ([]*entities.Job, error) {
	return nil, nil
}
func (f *fakeOperatorQueue) Complete(ctx context.Context, jobID string) error { return nil }
func (f *fakeOperatorQueue) Fail(ctx context.Context, jobID string, lastErr string) error {
	return nil
}
func (f *fakeOperatorQueue) FailPermanent(ctx context.Context, jobID string, lastErr string) error {
	return nil
}
func (f *fakeOperatorQueue) ReapStale(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeOperatorQueue) Depth(ctx context.Context) (map[entities.JobStatus]int, error) {
	return nil, nil
}
func (f *fakeOperatorQueue) ListByStatus(ctx context.Context, status entities.JobStatus, limit, offset int) ([]*entities.Job, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.jobs, nil
}
func (f *fakeOperatorQueue) Requeue(ctx context.Context, jobID string) error {
	if f.requeueErr != nil {
		return f.requeueErr
	}
	f.requeued = append(f.requeued, jobID)
	return nil
}

type fakeOperatorPayments struct {
	entries []*entities.AuditEntry
}

func (f *fakeOperatorPayments) ProcessPaymentEvent(ctx context.Context, np entities.NewPayment) (domainrepos.ProcessResult, error) {
	return domainrepos.ProcessResult{}, nil
}
func (f *fakeOperatorPayments) GetByExternalID(ctx context.Context, externalID entities.ExternalID) (*entities.Payment, error) {
	return nil, nil
}
func (f *fakeOperatorPayments) LogPassthroughEvent(ctx context.Context, entry entities.AuditEntry) error {
	return nil
}
func (f *fakeOperatorPayments) ListAuditTrail(ctx context.Context, externalID entities.ExternalID, limit, offset int) ([]*entities.AuditEntry, error) {
	return f.entries, nil
}

func TestOperatorHandler_ListJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := &fakeOperatorQueue{jobs: []*entities.Job{{ID: "job_1", Status: entities.JobPending}}}
	h := NewOperatorHandler(queue, &fakeOperatorPayments{})
	r := gin.New()
	r.GET("/operator/jobs", h.ListJobs)

	req := httptest.NewRequest(http.MethodGet, "/operator/jobs?status=pending", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "job_1")
}

func TestOperatorHandler_RequeueJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := &fakeOperatorQueue{}
	h := NewOperatorHandler(queue, &fakeOperatorPayments{})
	r := gin.New()
	r.POST("/operator/jobs/:id/requeue", h.RequeueJob)

	req := httptest.NewRequest(http.MethodPost, "/operator/jobs/job_1/requeue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"job_1"}, queue.requeued)
}

func TestOperatorHandler_GetAuditTrail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	payments := &fakeOperatorPayments{entries: []*entities.AuditEntry{{ID: "a1", Action: entities.AuditCreated}}}
	h := NewOperatorHandler(&fakeOperatorQueue{}, payments)
	r := gin.New()
	r.GET("/operator/payments/:external_id/audit", h.GetAuditTrail)

	req := httptest.NewRequest(http.MethodGet, "/operator/payments/pi_1/audit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "a1")
}
