package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	"paysync.backend/internal/infrastructure/models"
)

type operatorKeyRepo struct {
	db *gorm.DB
}

// NewOperatorKeyRepository constructs the gorm-backed operator key lookup.
func NewOperatorKeyRepository(db *gorm.DB) *operatorKeyRepo {
	return &operatorKeyRepo{db: db}
}

func (r *operatorKeyRepo) Create(ctx context.Context, key *entities.OperatorKey) error {
	row := models.OperatorKey{
		ID:              key.ID,
		Label:           key.Label,
		KeyHash:         key.KeyHash,
		SecretEncrypted: key.SecretEncrypted,
		IsActive:        key.IsActive,
		LastUsedAt:      key.LastUsedAt,
		CreatedAt:       key.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domainerrors.Internal(err)
	}
	return nil
}

func (r *operatorKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*entities.OperatorKey, error) {
	var row models.OperatorKey
	if err := r.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domainerrors.NotFound("operator key not found")
		}
		return nil, domainerrors.Internal(err)
	}
	return &entities.OperatorKey{
		ID:              row.ID,
		Label:           row.Label,
		KeyHash:         row.KeyHash,
		SecretEncrypted: row.SecretEncrypted,
		IsActive:        row.IsActive,
		LastUsedAt:      row.LastUsedAt,
		CreatedAt:       row.CreatedAt,
	}, nil
}

func (r *operatorKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.OperatorKey{}).Where("id = ?", id).Update("last_used_at", now).Error
}
