package models

import "time"

// ExternalRecord and Reconciliation are schema-ready tables only: the
// migration creates them, but no repository reads or writes them yet.
// They exist so a future reconciliation job has a landing zone
// without a schema change.
type ExternalRecord struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID string `gorm:"type:varchar(255);not null;index"`
	Source     string `gorm:"type:varchar(50);not null"`
	Snapshot   string `gorm:"type:jsonb;not null"`
	FetchedAt  time.Time
}

func (ExternalRecord) TableName() string { return "external_records" }

type Reconciliation struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID string `gorm:"type:varchar(255);not null;index"`
	Outcome    string `gorm:"type:varchar(50);not null"`
	Detail     string `gorm:"type:jsonb;default:'{}'"`
	RunAt      time.Time
}

func (Reconciliation) TableName() string { return "reconciliations" }
