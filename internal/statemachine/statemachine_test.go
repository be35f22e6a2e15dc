package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paysync.backend/internal/domain/entities"
)

func TestDecide_Insert_WhenNoCurrentState(t *testing.T) {
	d := Decide(Current{Exists: false}, entities.StatusPending, 100)
	assert.Equal(t, Insert, d)
}

func TestDecide_Transition_OnForwardProgress(t *testing.T) {
	cases := []struct {
		from entities.PaymentStatus
		to   entities.PaymentStatus
	}{
		{entities.StatusPending, entities.StatusSucceeded},
		{entities.StatusPending, entities.StatusFailed},
		{entities.StatusSucceeded, entities.StatusRefunded},
	}
	for _, c := range cases {
		cur := Current{Exists: true, Status: c.from, ProviderTS: 100}
		d := Decide(cur, c.to, 200)
		assert.Equal(t, Transition, d, "%s -> %s", c.from, c.to)
	}
}

func TestDecide_SkipStale_WhenProviderTSDoesNotAdvance(t *testing.T) {
	cur := Current{Exists: true, Status: entities.StatusPending, ProviderTS: 500}

	assert.Equal(t, SkipStale, Decide(cur, entities.StatusSucceeded, 500))
	assert.Equal(t, SkipStale, Decide(cur, entities.StatusSucceeded, 400))
}

func TestDecide_SkipAnomalous_OnRankRegression(t *testing.T) {
	cur := Current{Exists: true, Status: entities.StatusRefunded, ProviderTS: 100}
	d := Decide(cur, entities.StatusPending, 200)
	assert.Equal(t, SkipAnomalous, d)
}

func TestDecide_SkipAnomalous_OnIncompatibleSibling(t *testing.T) {
	succeeded := Current{Exists: true, Status: entities.StatusSucceeded, ProviderTS: 100}
	assert.Equal(t, SkipAnomalous, Decide(succeeded, entities.StatusFailed, 200))

	failed := Current{Exists: true, Status: entities.StatusFailed, ProviderTS: 100}
	assert.Equal(t, SkipAnomalous, Decide(failed, entities.StatusSucceeded, 200))
}

func TestDecide_SkipDuplicateStatus_OnRestatement(t *testing.T) {
	cur := Current{Exists: true, Status: entities.StatusSucceeded, ProviderTS: 100}
	d := Decide(cur, entities.StatusSucceeded, 200)
	assert.Equal(t, SkipDuplicateStatus, d)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "insert", Insert.String())
	assert.Equal(t, "transition", Transition.String())
	assert.Equal(t, "skip_stale", SkipStale.String())
	assert.Equal(t, "skip_anomalous", SkipAnomalous.String())
	assert.Equal(t, "skip_duplicate_status", SkipDuplicateStatus.String())
	assert.Equal(t, "unknown", Decision(99).String())
}
