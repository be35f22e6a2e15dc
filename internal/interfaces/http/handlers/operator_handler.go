package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	domainrepos "paysync.backend/internal/domain/repositories"
	"paysync.backend/internal/interfaces/http/response"
)

// OperatorHandler exposes read-only and narrowly-scoped mutating
// operations over the queue and audit trail for human operators
// (SPEC_FULL.md §2c). It never originates or mutates payment
// business state — it only requeues jobs already in the queue.
type OperatorHandler struct {
	queue    domainrepos.JobQueue
	payments domainrepos.PaymentRepository
}

func NewOperatorHandler(queue domainrepos.JobQueue, payments domainrepos.PaymentRepository) *OperatorHandler {
	return &OperatorHandler{queue: queue, payments: payments}
}

// ListJobs handles GET /operator/jobs?status=pending&limit=50&offset=0
func (h *OperatorHandler) ListJobs(c *gin.Context) {
	status := entities.JobStatus(c.DefaultQuery("status", string(entities.JobPending)))
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)

	jobs, err := h.queue.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		response.Error(c, domainerrors.AsAppError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"jobs": jobs})
}

// RequeueJob handles POST /operator/jobs/:id/requeue
func (h *OperatorHandler) RequeueJob(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		response.Error(c, domainerrors.BadRequest("job id is required"))
		return
	}

	if err := h.queue.Requeue(c.Request.Context(), jobID); err != nil {
		response.Error(c, domainerrors.AsAppError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requeued": true})
}

// GetAuditTrail handles GET /operator/payments/:external_id/audit
func (h *OperatorHandler) GetAuditTrail(c *gin.Context) {
	externalID := entities.ExternalID(c.Param("external_id"))
	if externalID == "" {
		response.Error(c, domainerrors.BadRequest("external_id is required"))
		return
	}
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)

	entries, err := h.payments.ListAuditTrail(c.Request.Context(), externalID, limit, offset)
	if err != nil {
		response.Error(c, domainerrors.AsAppError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
