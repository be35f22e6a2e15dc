// Package statemachine implements the pure decision at the heart of
// spec.md §4.5: given what a payment currently is and what an
// incoming event asserts, decide whether to insert, transition, or
// skip. It touches no database and is safe to call from anywhere —
// it exists purely to be total and exhaustively testable.
package statemachine

import "paysync.backend/internal/domain/entities"

// Decision is the outcome of evaluating one incoming event against
// the current payment state.
type Decision int

const (
	// Duplicate means an event with this LastEventID was already
	// recorded in provider_events; ProcessPaymentEvent short-circuits
	// before Decide ever runs. It lives on this type rather than a
	// separate outcome enum so domainrepos.ProcessResult doesn't need
	// one.
	Duplicate Decision = iota
	// Insert creates a brand new payment row; there was no prior state
	// for this external id.
	Insert
	// Transition applies the incoming status (and its accompanying
	// attributes) to the existing payment row.
	Transition
	// SkipStale means the incoming event is older, by provider
	// timestamp, than what the payment already reflects.
	SkipStale
	// SkipAnomalous means the incoming status is a regression, or an
	// incompatible sibling at the same rank (Succeeded <-> Failed).
	SkipAnomalous
	// SkipDuplicateStatus means the incoming event restates the
	// current status; last_event_id/last_provider_ts still advance,
	// but nothing about the payment's status changes.
	SkipDuplicateStatus
)

func (d Decision) String() string {
	switch d {
	case Duplicate:
		return "duplicate"
	case Insert:
		return "insert"
	case Transition:
		return "transition"
	case SkipStale:
		return "skip_stale"
	case SkipAnomalous:
		return "skip_anomalous"
	case SkipDuplicateStatus:
		return "skip_duplicate_status"
	default:
		return "unknown"
	}
}

// Current describes the payment's state prior to the incoming event,
// or a zero value when none exists yet.
type Current struct {
	Exists     bool
	Status     entities.PaymentStatus
	ProviderTS int64
}

// Decide implements spec.md §4.5 exactly:
//
//   - current absent            -> Insert
//   - incoming_ts <= current_ts -> SkipStale
//   - rank(incoming) < rank(c)  -> SkipAnomalous
//   - rank(incoming) == rank(c) && incoming != c -> SkipAnomalous
//   - rank(incoming) == rank(c) && incoming == c -> SkipDuplicateStatus
//   - otherwise                 -> Transition
func Decide(current Current, incoming entities.PaymentStatus, incomingProviderTS int64) Decision {
	if !current.Exists {
		return Insert
	}

	if incomingProviderTS <= current.ProviderTS {
		return SkipStale
	}

	incomingRank := incoming.Rank()
	currentRank := current.Status.Rank()

	switch {
	case incomingRank < currentRank:
		return SkipAnomalous
	case incomingRank == currentRank && incoming != current.Status:
		return SkipAnomalous
	case incomingRank == currentRank:
		return SkipDuplicateStatus
	default:
		return Transition
	}
}
