package models

import "time"

// OperatorKey is the gorm row backing entities.OperatorKey.
type OperatorKey struct {
	ID              string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Label           string `gorm:"type:varchar(100);not null"`
	KeyHash         string `gorm:"type:varchar(64);uniqueIndex;not null"`
	SecretEncrypted string `gorm:"type:text;not null"`
	IsActive        bool   `gorm:"default:true;not null"`
	LastUsedAt      *time.Time
	CreatedAt       time.Time
}

func (OperatorKey) TableName() string { return "operator_keys" }
