package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the gorm-mapped row for the payments table — the
// canonical state PaymentRepository reads and mutates under lock.
// There is no DeletedAt: canonical rows are never soft-deleted, only
// transitioned.
type Payment struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID       string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Source           string    `gorm:"type:varchar(50);not null"`
	EventType        string    `gorm:"type:varchar(100);not null"`
	Direction        string    `gorm:"type:varchar(20);not null"`
	AmountMinor      int64     `gorm:"not null"`
	Currency         string    `gorm:"type:varchar(10);not null"`
	Status           string    `gorm:"type:varchar(20);not null;index"`
	Metadata         string    `gorm:"type:jsonb;default:'{}'"`
	RawEvent         []byte    `gorm:"type:bytea"`
	LastEventID      string    `gorm:"type:varchar(255);not null"`
	ParentExternalID *string   `gorm:"type:varchar(255);index"`
	LastProviderTS   int64     `gorm:"not null"`
	ReceivedAt       time.Time `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Payment) TableName() string { return "payments" }
