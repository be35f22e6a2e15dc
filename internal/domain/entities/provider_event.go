package entities

import "time"

// ProviderEvent is the dedup table row: one per unique EventID. Its
// insert, not a separate check-then-act, is the dedup primitive
// (spec.md §9 — the provider_events unique constraint on event_id is
// the gate; a conflict on insert means "already handled").
type ProviderEvent struct {
	EventID    EventID
	ObjectID   ExternalID
	EventType  string
	ProviderTS int64
	Payload    []byte
	ReceivedAt time.Time
}
