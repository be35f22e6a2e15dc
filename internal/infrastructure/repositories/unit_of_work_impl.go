package repositories

import (
	"context"
	"fmt"
	"hash/fnv"

	"gorm.io/gorm"
	domainRepos "paysync.backend/internal/domain/repositories"
)

type contextKey string

const txKey contextKey = "tx_db"

// UnitOfWorkImpl implements UnitOfWork using GORM. Transaction-scoped
// advisory locking is Postgres-only; against any other dialect (the
// sqlite driver used in tests) DoWithLock behaves like Do, since
// sqlite already serializes writers at the file level.
type UnitOfWorkImpl struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// commitTx is a seam for tests to force a commit failure without
// needing a backend that can actually produce one.
var commitTx = func(tx *gorm.DB) error {
	return tx.Commit().Error
}

// Do executes the given function within a transaction scope
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := u.GetDB(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := commitTx(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DoWithLock executes fn within a transaction scope, after acquiring
// a Postgres transaction-scoped advisory lock derived from lockKey.
// The lock is released implicitly at commit/rollback.
func (u *UnitOfWorkImpl) DoWithLock(ctx context.Context, lockKey string, fn func(ctx context.Context) error) error {
	tx := u.GetDB(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", lockHash(lockKey)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to acquire advisory lock: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := commitTx(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// lockHash folds lockKey into the int64 pg_advisory_xact_lock expects.
// fnv-1a keeps the mapping stable across process restarts, which
// matters: two workers must derive the same lock id from the same
// external id.
func lockHash(lockKey string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(lockKey))
	return int64(h.Sum64())
}

// GetDB extracts the Transaction DB from context if present, otherwise returns standard DB
func (u *UnitOfWorkImpl) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return u.db
}

// GetDB is a package-level helper for other repositories: it prefers
// the active transaction stashed in ctx by Do/DoWithLock, falling back
// to the given DB handle when there is none.
func GetDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
