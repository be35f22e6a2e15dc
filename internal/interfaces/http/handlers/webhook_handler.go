package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	"paysync.backend/internal/interfaces/http/response"
	"paysync.backend/internal/metrics"
	"paysync.backend/internal/normalizer"
	"paysync.backend/pkg/logger"
)

// webhookTimestampTolerance bounds how old a signed event may be
// before intake rejects it outright, independent of signature
// validity — the same replay-window convention stripe-go's own helper
// enforces, made explicit here since ConstructEventWithOptions lets
// the caller widen it.
const webhookTimestampTolerance = 5 * time.Minute

// JobEnqueuer is the subset of the job queue the intake handler needs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, evt entities.ProviderEvent) (*entities.Job, error)
}

// AuditRecorder is the subset of the payment repository the intake
// handler needs for events that never touch the job queue:
// synchronous passthrough audit entries, and anomaly entries for
// events that fail to normalize.
type AuditRecorder interface {
	LogPassthroughEvent(ctx context.Context, entry entities.AuditEntry) error
}

// WebhookHandler verifies, normalizes, and routes incoming provider
// webhooks per spec.md §4.2's two-path contract: Mutation outcomes go
// through the durable job queue for serialized processing, everything
// else is handled synchronously at intake since it never needs
// per-payment locking.
type WebhookHandler struct {
	queue         JobEnqueuer
	audit         AuditRecorder
	signingSecret string
}

func NewWebhookHandler(queue JobEnqueuer, audit AuditRecorder, signingSecret string) *WebhookHandler {
	return &WebhookHandler{queue: queue, audit: audit, signingSecret: signingSecret}
}

// HandleWebhook handles POST /webhook.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		metrics.WebhookIntake.WithLabelValues("invalid").Inc()
		response.Error(c, domainerrors.Unauthorized("missing signature header"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		metrics.WebhookIntake.WithLabelValues("invalid").Inc()
		response.Error(c, domainerrors.BadRequest("failed to read request body"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, signature, h.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.WebhookIntake.WithLabelValues("unauthorized").Inc()
		logger.Warn(c.Request.Context(), "webhook signature verification failed", zap.Error(err))
		response.Error(c, domainerrors.Unauthorized("invalid signature"))
		return
	}

	if age := time.Since(time.Unix(event.Created, 0)); age > webhookTimestampTolerance {
		metrics.WebhookIntake.WithLabelValues("invalid").Inc()
		response.Error(c, domainerrors.BadRequest("event timestamp outside tolerance"))
		return
	}

	outcome, err := normalizer.Normalize(event)
	if err != nil {
		metrics.WebhookIntake.WithLabelValues("anomaly").Inc()
		logger.Warn(c.Request.Context(), "webhook failed to normalize",
			zap.String("event_id", event.ID), zap.Error(err))
		h.recordAnomaly(c.Request.Context(), event, err)
		response.Success(c, http.StatusOK, gin.H{"received": true, "anomaly": true})
		return
	}

	switch outcome.Kind {
	case normalizer.Mutation:
		h.enqueue(c, event, body)
	case normalizer.Passthrough:
		h.passthrough(c, outcome.PassthroughOn)
	default:
		metrics.WebhookIntake.WithLabelValues("accepted").Inc()
		response.Success(c, http.StatusOK, gin.H{"received": true})
	}
}

// enqueue hands a Mutation outcome to the durable queue. It stores the
// full verified request body as the job's payload, not
// event.Data.Raw, since the worker re-decodes the job into a complete
// stripe.Event.
func (h *WebhookHandler) enqueue(c *gin.Context, event stripe.Event, body []byte) {
	evt := entities.ProviderEvent{
		EventID:    entities.EventID(event.ID),
		ObjectID:   entities.ExternalID(objectID(event)),
		EventType:  string(event.Type),
		ProviderTS: event.Created,
		Payload:    body,
	}

	job, err := h.queue.Enqueue(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicate) {
			metrics.WebhookIntake.WithLabelValues("duplicate").Inc()
			response.Success(c, http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		metrics.WebhookIntake.WithLabelValues("invalid").Inc()
		response.Error(c, domainerrors.AsAppError(err))
		return
	}

	metrics.WebhookIntake.WithLabelValues("accepted").Inc()
	logger.Info(c.Request.Context(), "webhook accepted",
		zap.String("event_id", string(job.EventID)), zap.String("event_type", job.EventType))
	response.Success(c, http.StatusAccepted, gin.H{"received": true, "job_id": job.ID})
}

// passthrough handles a Passthrough outcome synchronously: it carries
// no payment-state mutation, so it needs no per-payment lock and no
// trip through the job queue.
func (h *WebhookHandler) passthrough(c *gin.Context, entry entities.AuditEntry) {
	if err := h.audit.LogPassthroughEvent(c.Request.Context(), entry); err != nil {
		metrics.WebhookIntake.WithLabelValues("invalid").Inc()
		response.Error(c, domainerrors.AsAppError(err))
		return
	}
	metrics.WebhookIntake.WithLabelValues("passthrough").Inc()
	response.Success(c, http.StatusOK, gin.H{"received": true})
}

// recordAnomaly logs an event intake could not normalize. Intake
// still returns 200 so the provider doesn't redeliver an event that
// will never normalize any differently; the anomaly entry is what
// surfaces it to an operator.
func (h *WebhookHandler) recordAnomaly(ctx context.Context, event stripe.Event, cause error) {
	extID := entities.ExternalID(objectID(event))
	evID := entities.EventID(event.ID)
	entry := entities.AuditEntry{
		EntityType: "stripe_event",
		EntityID:   string(extID),
		ExternalID: &extID,
		EventID:    &evID,
		Action:     entities.AuditAnomalyLogged,
		Actor:      "system",
		Detail:     map[string]interface{}{"event_type": string(event.Type), "reason": cause.Error()},
	}
	if err := h.audit.LogPassthroughEvent(ctx, entry); err != nil {
		logger.Error(ctx, "failed to record anomaly audit entry", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func objectID(event stripe.Event) string {
	if id, ok := event.Data.Object["id"].(string); ok {
		return id
	}
	return ""
}
