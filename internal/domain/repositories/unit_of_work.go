package repositories

import "context"

// UnitOfWork scopes a function to a single transaction, optionally
// serialized by a Postgres transaction-scoped advisory lock keyed on
// an external id. The lock is what makes ProcessPaymentEvent safe
// under concurrent deliveries for the same ExternalID (spec.md §5):
// two workers racing on the same id block on DoWithLock rather than
// both observing the same "current" state.
type UnitOfWork interface {
	// Do executes fn within a transaction scope with no additional
	// locking. Suitable for operations that don't read-then-write
	// shared per-entity state.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithLock executes fn within a transaction scope after acquiring
	// a transaction-scoped advisory lock derived from lockKey. The lock
	// is released automatically on commit or rollback. Two callers
	// using the same lockKey are fully serialized against each other.
	DoWithLock(ctx context.Context, lockKey string, fn func(ctx context.Context) error) error
}
