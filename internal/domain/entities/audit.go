package entities

import "time"

// AuditAction names what happened to a payment, not why — the why
// lives in Detail.
type AuditAction string

const (
	AuditCreated        AuditAction = "created"
	AuditStatusChanged  AuditAction = "status_changed"
	AuditEventReceived  AuditAction = "event_received"
	AuditAnomalyLogged  AuditAction = "anomaly_logged"
	AuditPassthrough    AuditAction = "passthrough"
)

// AuditEntry is one append-only row. The core never issues UPDATE or
// DELETE against this table; EventID carries a unique index so a
// duplicate insert is a silent no-op, belt-and-braces alongside
// ProcessPaymentEvent's own provider_events dedup gate (spec.md §9).
type AuditEntry struct {
	ID         string
	EntityType string
	EntityID   string
	ExternalID *ExternalID
	EventID    *EventID
	Action     AuditAction
	Actor      string
	Detail     map[string]interface{}
	CreatedAt  time.Time
}
