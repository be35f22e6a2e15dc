package models

import "time"

// ProviderEvent is the gorm-mapped row for provider_events, written
// exactly once per LastEventID as the first step of
// ProcessPaymentEvent's transaction. Its primary key is the dedup
// gate: a conflicting insert means this event has already been
// processed.
type ProviderEvent struct {
	EventID    string `gorm:"type:varchar(255);primaryKey"`
	ObjectID   string `gorm:"type:varchar(255);not null"`
	EventType  string `gorm:"type:varchar(100);not null"`
	ProviderTS int64  `gorm:"not null"`
	Payload    []byte `gorm:"type:bytea"`
	ReceivedAt time.Time
}

func (ProviderEvent) TableName() string { return "provider_events" }
