package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is append-only: a migration trigger rejects UPDATE and DELETE
// against this table (see migrations/0001_init.up.sql), so this
// struct is only ever used with gorm's Create.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntityType string    `gorm:"type:varchar(50);not null"`
	EntityID   string    `gorm:"type:varchar(255);not null;index"`
	ExternalID *string   `gorm:"type:varchar(255);index"`
	EventID    *string   `gorm:"type:varchar(255);uniqueIndex"`
	Action     string    `gorm:"type:varchar(50);not null"`
	Actor      string    `gorm:"type:varchar(100);not null"`
	Detail     string    `gorm:"type:jsonb;default:'{}'"`
	CreatedAt  time.Time
}

func (AuditLog) TableName() string { return "audit_log" }
