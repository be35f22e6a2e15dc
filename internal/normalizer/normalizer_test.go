package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripe/stripe-go/v82"

	"paysync.backend/internal/domain/entities"
)

func newEvent(t *testing.T, id string, eventType stripe.EventType, obj map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw, Object: obj},
	}
}

func TestNormalize_PaymentIntentSucceeded(t *testing.T) {
	event := newEvent(t, "evt_1", "payment_intent.succeeded", map[string]interface{}{
		"id": "pi_123", "object": "payment_intent", "amount": float64(1000),
		"currency": "usd", "status": "succeeded", "created": float64(1700000000),
		"metadata": map[string]interface{}{"order_id": "o-1"},
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	require.Equal(t, Mutation, out.Kind)
	assert.Equal(t, entities.ExternalID("pi_123"), out.Payment.ExternalID)
	assert.Equal(t, entities.StatusSucceeded, out.Payment.Status)
	assert.Equal(t, entities.USD, out.Payment.Amount.Currency)
	assert.Equal(t, int64(1000), out.Payment.Amount.Minor)
	assert.Equal(t, entities.Inbound, out.Payment.Direction)
}

func TestNormalize_PaymentIntentRequiresAction_MapsToPending(t *testing.T) {
	event := newEvent(t, "evt_2", "payment_intent.requires_action", map[string]interface{}{
		"id": "pi_456", "amount": float64(500), "currency": "eur", "status": "requires_action", "created": float64(100),
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	require.Equal(t, Mutation, out.Kind)
	assert.Equal(t, entities.StatusPending, out.Payment.Status)
}

func TestNormalize_ChargeRefunded(t *testing.T) {
	event := newEvent(t, "evt_3", "charge.refunded", map[string]interface{}{
		"id": "ch_1", "amount": float64(200), "currency": "usd", "status": "succeeded",
		"refunded": true, "payment_intent": "pi_123", "created": float64(200),
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	require.Equal(t, Mutation, out.Kind)
	assert.Equal(t, entities.StatusRefunded, out.Payment.Status)
	require.NotNil(t, out.Payment.ParentExternalID)
	assert.Equal(t, entities.ExternalID("pi_123"), *out.Payment.ParentExternalID)
}

func TestNormalize_RefundCreated_IsOutbound(t *testing.T) {
	event := newEvent(t, "evt_4", "refund.created", map[string]interface{}{
		"id": "re_1", "amount": float64(300), "currency": "usd", "status": "succeeded",
		"payment_intent": "pi_123", "created": float64(300),
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	require.Equal(t, Mutation, out.Kind)
	assert.Equal(t, entities.Outbound, out.Payment.Direction)
}

func TestNormalize_DisputeCreated_IsPassthrough(t *testing.T) {
	event := newEvent(t, "evt_5", "charge.dispute.created", map[string]interface{}{
		"id": "dp_1", "charge": "ch_1",
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	require.Equal(t, Passthrough, out.Kind)
	assert.Equal(t, "dp_1", out.PassthroughOn.EntityID)
}

func TestNormalize_UnknownEventType_IsIgnored(t *testing.T) {
	event := newEvent(t, "evt_6", "customer.created", map[string]interface{}{"id": "cus_1"})

	out, err := Normalize(event)
	require.NoError(t, err)
	assert.Equal(t, Ignored, out.Kind)
}

func TestNormalize_PaymentIntentUnknownStatus_IsPassthrough(t *testing.T) {
	event := newEvent(t, "evt_7", "payment_intent.payment_failed", map[string]interface{}{
		"id": "pi_789", "amount": float64(100), "currency": "usd", "status": "some_future_status", "created": float64(400),
	})

	out, err := Normalize(event)
	require.NoError(t, err)
	assert.Equal(t, Passthrough, out.Kind)
}
