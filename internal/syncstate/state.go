// Package syncstate holds the per-record and per-tenant sync state
// machines and the value types describing sync activity.
package syncstate

import (
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/fingerprint"
	"github.com/Chagai33/birthday-sync/internal/record"
)

// RecordState is the effective sync state of a single record.
type RecordState string

const (
	StateIdle    RecordState = "idle"
	StatePending RecordState = "pending"
	StateSynced  RecordState = "synced"
	StateDrifted RecordState = "drifted"
	StateFailed  RecordState = "failed"
)

// Resolve derives the effective state of a record. It is the single source
// of truth for the Idle/Pending/Synced/Drifted/Failed distinction; call
// sites must not re-derive it from individual fields.
//
// Drifted is computed lazily by comparing the current fingerprint against
// the last pushed one; it is never stored.
func Resolve(rec *record.BirthdayRecord) RecordState {
	switch rec.SyncStatus {
	case config.SyncStatusError, config.SyncStatusPartial:
		return StateFailed
	}

	if len(rec.EventIDs) > 0 {
		if rec.SyncStatus == config.SyncStatusPending {
			return StatePending
		}
		if fingerprint.Fingerprint(rec) != rec.SyncedHash {
			return StateDrifted
		}
		return StateSynced
	}

	if rec.WantsSync || rec.SyncStatus == config.SyncStatusPending {
		return StatePending
	}
	return StateIdle
}

// InFlight reports whether a sync for the record is currently mid-flight
// and a new one must not be started.
func InFlight(rec *record.BirthdayRecord) bool {
	return rec.SyncStatus == config.SyncStatusPending
}

// TenantStatus is the tenant-wide, advisory activity state. It drives UI
// affordances only; there is no server-side lock behind it.
type TenantStatus string

const (
	TenantIdle       TenantStatus = "IDLE"
	TenantInProgress TenantStatus = "IN_PROGRESS"
	TenantDeleting   TenantStatus = "DELETING"
)

// Terminal reports whether the tenant status represents a settled state.
func (s TenantStatus) Terminal() bool {
	return s != TenantInProgress && s != TenantDeleting
}
