// Package normalizer turns a verified Stripe event into the
// provider-agnostic shape the job queue and payment repository deal
// in: entities.NewPayment. It is the one place that knows Stripe's
// event-type vocabulary and object shapes; everything downstream is
// provider-neutral (spec.md §2, "normalize before anything else").
package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
)

// OutcomeKind says what the normalizer decided to do with an event.
type OutcomeKind int

const (
	// Mutation means the event carries a NewPayment that should be run
	// through ProcessPaymentEvent.
	Mutation OutcomeKind = iota
	// Passthrough means the event is recognized but carries no state
	// change worth recording beyond an audit entry.
	Passthrough
	// Ignored means the event type isn't one this system tracks at all;
	// the job should still be marked complete, just with no audit entry.
	Ignored
)

// Outcome is the normalizer's verdict for one event.
type Outcome struct {
	Kind          OutcomeKind
	Payment       entities.NewPayment
	PassthroughOn entities.AuditEntry
}

// Normalize maps a stripe.Event onto an Outcome. event.Data.Raw holds
// the nested object's raw JSON, same field stronghold's handler reads
// as event.Data.Object after stripe-go's own json.Unmarshal.
func Normalize(event stripe.Event) (Outcome, error) {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.processing",
		"payment_intent.requires_action", "payment_intent.canceled":
		return normalizePaymentIntent(event)
	case "charge.succeeded", "charge.failed", "charge.refunded":
		return normalizeCharge(event)
	case "charge.refund.updated", "refund.created", "refund.updated":
		return normalizeRefund(event)
	case "charge.dispute.created", "charge.dispute.closed", "payment_intent.created":
		return passthroughOutcome(event), nil
	default:
		return Outcome{Kind: Ignored}, nil
	}
}

func normalizePaymentIntent(event stripe.Event) (Outcome, error) {
	var pi stripePaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return Outcome{}, fmt.Errorf("decode payment_intent: %w: %w", domainerrors.ErrValidation, err)
	}

	status, ok := paymentIntentStatus(pi.Status)
	if !ok {
		return passthroughOutcome(event), nil
	}

	amount, err := entities.NewAmount(pi.Amount, entities.Currency(normalizeCurrency(pi.Currency)))
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind: Mutation,
		Payment: entities.NewPayment{
			ExternalID:  entities.ExternalID(pi.ID),
			Source:      "stripe",
			EventType:   string(event.Type),
			Direction:   entities.Inbound,
			Amount:      amount,
			Status:      entities.PaymentStatus(status),
			Metadata:    pi.Metadata,
			RawEvent:    event.Data.Raw,
			LastEventID: entities.EventID(event.ID),
			ProviderTS:  pi.Created,
		},
	}, nil
}

func normalizeCharge(event stripe.Event) (Outcome, error) {
	var c stripeCharge
	if err := json.Unmarshal(event.Data.Raw, &c); err != nil {
		return Outcome{}, fmt.Errorf("decode charge: %w: %w", domainerrors.ErrValidation, err)
	}

	status, ok := chargeStatus(c.Status, c.Refunded)
	if !ok {
		return passthroughOutcome(event), nil
	}

	amount, err := entities.NewAmount(c.Amount, entities.Currency(normalizeCurrency(c.Currency)))
	if err != nil {
		return Outcome{}, err
	}

	np := entities.NewPayment{
		ExternalID:  entities.ExternalID(c.ID),
		Source:      "stripe",
		EventType:   string(event.Type),
		Direction:   entities.Inbound,
		Amount:      amount,
		Status:      entities.PaymentStatus(status),
		Metadata:    c.Metadata,
		RawEvent:    event.Data.Raw,
		LastEventID: entities.EventID(event.ID),
		ProviderTS:  c.Created,
	}
	if c.PaymentIntent != "" {
		parent := entities.ExternalID(c.PaymentIntent)
		np.ParentExternalID = &parent
	}

	return Outcome{Kind: Mutation, Payment: np}, nil
}

// normalizeRefund models a refund object as its own independent
// Outbound payment row rather than folding it into the parent
// payment_intent's state — see SPEC_FULL.md's Design Notes. No event
// moves a payment_intent row to Refunded: a charge.refunded event moves
// the charge's own row, and refund objects are tracked separately.
func normalizeRefund(event stripe.Event) (Outcome, error) {
	var r stripeRefund
	if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
		return Outcome{}, fmt.Errorf("decode refund: %w: %w", domainerrors.ErrValidation, err)
	}

	status := "pending"
	switch r.Status {
	case "succeeded":
		status = "succeeded"
	case "failed", "canceled":
		status = "failed"
	}

	amount, err := entities.NewAmount(r.Amount, entities.Currency(normalizeCurrency(r.Currency)))
	if err != nil {
		return Outcome{}, err
	}

	np := entities.NewPayment{
		ExternalID:  entities.ExternalID(r.ID),
		Source:      "stripe",
		EventType:   string(event.Type),
		Direction:   entities.Outbound,
		Amount:      amount,
		Status:      entities.PaymentStatus(status),
		Metadata:    r.Metadata,
		RawEvent:    event.Data.Raw,
		LastEventID: entities.EventID(event.ID),
		ProviderTS:  r.Created,
	}
	if r.PaymentIntent != "" {
		parent := entities.ExternalID(r.PaymentIntent)
		np.ParentExternalID = &parent
	}

	return Outcome{Kind: Mutation, Payment: np}, nil
}

func passthroughOutcome(event stripe.Event) Outcome {
	id, _ := event.Data.Object["id"].(string)
	extID := entities.ExternalID(id)
	evID := entities.EventID(event.ID)
	return Outcome{
		Kind: Passthrough,
		PassthroughOn: entities.AuditEntry{
			EntityType: "stripe_event",
			EntityID:   string(extID),
			ExternalID: &extID,
			EventID:    &evID,
			Action:     entities.AuditPassthrough,
			Actor:      "system",
			Detail:     map[string]interface{}{"event_type": string(event.Type)},
		},
	}
}

// normalizeCurrency uppercases Stripe's lowercase ISO currency codes
// to match the canonical Currency constants.
func normalizeCurrency(c string) string {
	return strings.ToUpper(c)
}
