package repositories

import (
	"context"

	"paysync.backend/internal/domain/entities"
)

// OperatorKeyRepository looks up the credentials behind the operator
// console's API-key-plus-HMAC exchange (SPEC_FULL.md §2c).
type OperatorKeyRepository interface {
	Create(ctx context.Context, key *entities.OperatorKey) error
	FindByKeyHash(ctx context.Context, keyHash string) (*entities.OperatorKey, error)
	TouchLastUsed(ctx context.Context, id string) error
}
