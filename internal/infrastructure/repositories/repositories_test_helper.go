package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

// createPaymentTable builds a sqlite stand-in for the payments table.
// Sqlite has no jsonb or bytea; both are stored as TEXT/BLOB, which is
// enough to exercise the gorm mapping the tests care about.
func createPaymentTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		event_type TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		metadata TEXT,
		raw_event BLOB,
		last_event_id TEXT NOT NULL,
		parent_external_id TEXT,
		last_provider_ts INTEGER NOT NULL,
		received_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

// createAuditLogTable builds a sqlite stand-in for the append-only
// audit_log table. Sqlite tests don't exercise the Postgres trigger that
// rejects UPDATE/DELETE; that guarantee is asserted at the migration
// level instead.
func createAuditLogTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE audit_log (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		external_id TEXT,
		event_id TEXT UNIQUE,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME
	);`)
}

// createProviderEventsTable builds a sqlite stand-in for
// provider_events, the dedup gate ProcessPaymentEvent writes to as
// the first step of its transaction.
func createProviderEventsTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE provider_events (
		event_id TEXT PRIMARY KEY,
		object_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		provider_ts INTEGER NOT NULL,
		payload BLOB,
		received_at DATETIME
	);`)
}

// createOperatorKeyTable builds a sqlite stand-in for operator_keys.
func createOperatorKeyTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE operator_keys (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		secret_encrypted TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_used_at DATETIME,
		created_at DATETIME
	);`)
}
