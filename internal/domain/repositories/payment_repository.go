package repositories

import (
	"context"

	"paysync.backend/internal/domain/entities"
	"paysync.backend/internal/statemachine"
)

// ProcessResult reports what ProcessPaymentEvent actually did, so
// callers can log and increment metrics without re-deriving the
// decision.
type ProcessResult struct {
	Decision statemachine.Decision
	Payment  *entities.Payment
}

// PaymentRepository owns the single read-modify-write that mutates
// canonical payment state. ProcessPaymentEvent is the core of the
// core: it runs under a per-ExternalID lock and inside a transaction
// that also records the audit trail, so the interface takes the
// already-decided NewPayment rather than raw bytes.
type PaymentRepository interface {
	// ProcessPaymentEvent loads current state for np.ExternalID (if
	// any), runs the state machine, applies the resulting mutation, and
	// writes an audit entry — all within one transaction. The
	// implementation takes the per-ExternalID advisory lock itself for
	// the duration (see UnitOfWork.DoWithLock); callers hold no lock.
	ProcessPaymentEvent(ctx context.Context, np entities.NewPayment) (ProcessResult, error)

	// GetByExternalID returns the current canonical row, or
	// domainerrors.ErrNotFound.
	GetByExternalID(ctx context.Context, externalID entities.ExternalID) (*entities.Payment, error)

	// LogPassthroughEvent records a standalone audit entry: for an event
	// type the normalizer recognizes but that carries no payment mutation
	// (for example a pure notification event), and for anomaly entries
	// about events that cannot be processed. entry.Action is stored as
	// given, AuditPassthrough when empty. It never touches the payments
	// table.
	LogPassthroughEvent(ctx context.Context, entry entities.AuditEntry) error

	// ListAuditTrail returns the append-only history for one
	// ExternalID, oldest first.
	ListAuditTrail(ctx context.Context, externalID entities.ExternalID, limit, offset int) ([]*entities.AuditEntry, error)
}
