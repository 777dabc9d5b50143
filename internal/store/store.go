// Package store persists birthday records and tenant calendar bindings.
// Two implementations are provided: an in-memory store for tests and
// ephemeral runs, and a SQLite-backed store for durable local state.
package store

import (
	"context"
	"errors"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// ErrNotFound is returned when a record or binding does not exist.
var ErrNotFound = errors.New(config.ErrRecordNotFound)

// RecordStore persists birthday records.
type RecordStore interface {
	// ListByTenant returns all records of a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]record.BirthdayRecord, error)

	// Get returns one record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (record.BirthdayRecord, error)

	// Put inserts or replaces a record, assigning an id when empty.
	Put(ctx context.Context, rec *record.BirthdayRecord) error

	// Delete removes a record. Deleting a missing record is a no-op.
	Delete(ctx context.Context, id string) error

	// SetSyncResult records a successful push: the event map, the pushed
	// fingerprint, the intent flag, and a cleared status.
	SetSyncResult(ctx context.Context, id string, eventIDs map[string]string, syncedHash string) error

	// SetSyncStatus updates only the stored sync status field.
	SetSyncStatus(ctx context.Context, id, status string) error

	// ClearSync resets all sync bookkeeping, returning the record to Idle.
	ClearSync(ctx context.Context, id string) error
}

// BindingStore persists the per-tenant calendar binding and its bounded
// history.
type BindingStore interface {
	// GetBinding returns the tenant's binding, or the disconnected default
	// when none has been stored yet.
	GetBinding(ctx context.Context, tenantID string) (syncstate.Binding, error)

	// PutBinding inserts or replaces the tenant's binding.
	PutBinding(ctx context.Context, tenantID string, b syncstate.Binding) error
}

// Store combines both persistence concerns.
type Store interface {
	RecordStore
	BindingStore
}
