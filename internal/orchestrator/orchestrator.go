// Package orchestrator drives single-record and bulk sync operations
// against the remote calendar service, enforcing the calendar-selection
// guard rules and keeping the local sync state coherent.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/dates"
	"github.com/Chagai33/birthday-sync/internal/fingerprint"
	"github.com/Chagai33/birthday-sync/internal/store"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// ErrSyncInFlight is returned when a single-record sync is requested while
// a previous one for the same record has not settled.
var ErrSyncInFlight = errors.New(config.ErrSyncInFlight)

// ErrEmptyBatch is returned when a bulk sync is requested with no ids.
var ErrEmptyBatch = errors.New(config.ErrEmptyBatch)

// Orchestrator coordinates the record store, the tenant binding and the
// remote calendar service for one tenant/user pair.
type Orchestrator struct {
	Records     store.RecordStore
	Bindings    store.BindingStore
	Service     calsvc.Service
	Clock       dates.Clock
	Credentials CredentialStore // optional

	TenantID string
	UserID   string

	// updates carries bindings refreshed by background polls.
	updates chan syncstate.Binding
	log     *slog.Logger
}

// CredentialStore is the slice of the keyring store the orchestrator needs.
type CredentialStore interface {
	Save(userID, handle string) error
	Clear(userID string) error
}

// New wires an orchestrator for a tenant/user pair.
func New(records store.RecordStore, bindings store.BindingStore, svc calsvc.Service, clock dates.Clock, tenantID, userID string) *Orchestrator {
	return &Orchestrator{
		Records:  records,
		Bindings: bindings,
		Service:  svc,
		Clock:    clock,
		TenantID: tenantID,
		UserID:   userID,
		updates:  make(chan syncstate.Binding, config.ChannelBufferSize),
		log: slog.With(
			slog.String(config.LogKeyComponent, config.CompOrch),
			slog.String(config.LogKeyTenant, tenantID),
		),
	}
}

// Updates exposes bindings published by background status polls.
func (o *Orchestrator) Updates() <-chan syncstate.Binding {
	return o.updates
}

// guard enforces the calendar-selection preconditions in their fixed
// order: a binding must exist, and the bound calendar must not be the
// account's primary calendar. It returns the binding on success so callers
// avoid a second load.
func (o *Orchestrator) guard(ctx context.Context) (syncstate.Binding, error) {
	binding, err := o.Bindings.GetBinding(ctx, o.TenantID)
	if err != nil {
		return syncstate.Binding{}, err
	}
	if !binding.Connected {
		return syncstate.Binding{}, calsvc.ErrNotConnected
	}
	if binding.IsPrimaryCalendar() {
		return syncstate.Binding{}, calsvc.ErrPrimaryCalendarBlocked
	}
	return binding, nil
}

// requireConnected applies only the connection guard, for operations that
// are legal against any calendar (listing, selection, removal).
func (o *Orchestrator) requireConnected(ctx context.Context) (syncstate.Binding, error) {
	binding, err := o.Bindings.GetBinding(ctx, o.TenantID)
	if err != nil {
		return syncstate.Binding{}, err
	}
	if !binding.Connected {
		return syncstate.Binding{}, calsvc.ErrNotConnected
	}
	return binding, nil
}

// SyncOne pushes a single record. The record transitions to Pending before
// the call; on success the pushed fingerprint and event map are stored, on
// failure the record is marked failed. No external call happens while a
// previous sync for the record is still in flight.
func (o *Orchestrator) SyncOne(ctx context.Context, recordID string) (calsvc.SyncOutcome, error) {
	binding, err := o.guard(ctx)
	if err != nil {
		return calsvc.SyncOutcome{}, err
	}

	rec, err := o.Records.Get(ctx, recordID)
	if err != nil {
		return calsvc.SyncOutcome{}, err
	}
	if syncstate.InFlight(&rec) {
		return calsvc.SyncOutcome{}, ErrSyncInFlight
	}

	// Fingerprint before the push: this is the content being sent, and it
	// becomes the drift baseline on success.
	pushedHash := fingerprint.Fingerprint(&rec)

	if err := o.Records.SetSyncStatus(ctx, recordID, config.SyncStatusPending); err != nil {
		return calsvc.SyncOutcome{}, err
	}

	o.log.Info(config.MsgSyncStarted, slog.String(config.LogKeyRecord, recordID))
	start := time.Now()

	outcome, err := o.Service.SyncOne(ctx, recordID)
	if err != nil || !outcome.Success {
		_ = o.Records.SetSyncStatus(ctx, recordID, config.SyncStatusError)
		o.appendHistory(ctx, binding, singleHistory(&rec, outcome, false, o.Clock.Now()))
		if err == nil {
			err = &calsvc.FatalError{Op: "syncOne", Err: errors.New(firstNonEmpty(outcome.Error, config.FailReasonUnspecified))}
		}
		o.log.Warn(config.MsgSyncFailed,
			slog.String(config.LogKeyRecord, recordID),
			slog.Any(config.LogKeyError, err),
		)
		return outcome, err
	}

	if err := o.Records.SetSyncResult(ctx, recordID, outcome.EventIDs, pushedHash); err != nil {
		return outcome, err
	}
	o.appendHistory(ctx, binding, singleHistory(&rec, outcome, true, o.Clock.Now()))

	o.log.Info(config.MsgSyncDone,
		slog.String(config.LogKeyRecord, recordID),
		slog.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()),
	)
	return outcome, nil
}

// SyncMany enqueues a bulk sync and returns as soon as the service accepts
// it. The tenant flips to IN_PROGRESS and a background poll tracks
// completion; per-record outcomes surface only through the next status
// refresh and the history item the operation produces.
func (o *Orchestrator) SyncMany(ctx context.Context, recordIDs []string) (calsvc.BulkAccepted, error) {
	if _, err := o.guard(ctx); err != nil {
		return calsvc.BulkAccepted{}, err
	}
	if len(recordIDs) == 0 {
		return calsvc.BulkAccepted{}, ErrEmptyBatch
	}

	accepted, err := o.Service.SyncMany(ctx, recordIDs)
	if err != nil {
		return calsvc.BulkAccepted{}, err
	}

	for _, id := range recordIDs {
		// Best effort: ids the service will reject simply stay Pending
		// until the poll reconciles them.
		_ = o.Records.SetSyncStatus(ctx, id, config.SyncStatusPending)
	}

	if err := o.setTenantStatus(ctx, syncstate.TenantInProgress); err != nil {
		return accepted, err
	}

	o.log.Info(config.MsgBatchQueued,
		slog.Int(config.LogKeyQueued, accepted.QueuedCount),
		slog.Int(config.LogKeyTotal, len(recordIDs)),
	)

	// The poll must outlive the request that started the batch.
	go o.pollUntilSettled(context.WithoutCancel(ctx))
	return accepted, nil
}

// Remove deletes a record's calendar events and resets its sync state.
// Removing an already-unsynced record is a successful no-op, so retries
// and double-clicks converge on the same state.
func (o *Orchestrator) Remove(ctx context.Context, recordID string) (calsvc.RemoveResult, error) {
	rec, err := o.Records.Get(ctx, recordID)
	if err != nil {
		return calsvc.RemoveResult{}, err
	}

	if len(rec.EventIDs) == 0 && rec.SyncedHash == "" && !rec.WantsSync {
		o.log.Debug(config.MsgRemoveNoop, slog.String(config.LogKeyRecord, recordID))
		return calsvc.RemoveResult{Success: true}, nil
	}

	if _, err := o.requireConnected(ctx); err != nil {
		return calsvc.RemoveResult{}, err
	}

	res, err := o.Service.Remove(ctx, recordID)
	if err != nil {
		return calsvc.RemoveResult{}, err
	}
	if err := o.Records.ClearSync(ctx, recordID); err != nil {
		return res, err
	}

	o.log.Info(config.MsgRemoved, slog.String(config.LogKeyRecord, recordID))
	return res, nil
}

// Connect stores the credential handle and pulls the initial binding from
// the service. The binding is created on the first successful connect.
func (o *Orchestrator) Connect(ctx context.Context, credentialHandle string) (syncstate.Binding, error) {
	if o.Credentials != nil && credentialHandle != "" {
		if err := o.Credentials.Save(o.UserID, credentialHandle); err != nil {
			return syncstate.Binding{}, err
		}
	}

	binding, err := o.Service.GetStatus(ctx, o.UserID)
	if err != nil {
		return syncstate.Binding{}, err
	}
	if err := o.Bindings.PutBinding(ctx, o.TenantID, binding); err != nil {
		return syncstate.Binding{}, err
	}

	o.log.Info(config.MsgConnected, slog.String(config.LogKeyCalendar, binding.CalendarID))
	return binding, nil
}

// Disconnect tears down the remote connection and clears the local binding
// and stored credential.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	if err := o.Service.Disconnect(ctx); err != nil {
		return err
	}

	binding := syncstate.Disconnected()
	if err := o.Bindings.PutBinding(ctx, o.TenantID, binding); err != nil {
		return err
	}
	if o.Credentials != nil {
		if err := o.Credentials.Clear(o.UserID); err != nil {
			return err
		}
	}

	o.log.Info(config.MsgDisconnected)
	return nil
}

// SelectCalendar applies the new selection optimistically and rolls back
// to the snapshot if the remote call fails: the UI stays responsive for
// this usually-successful action while remaining correct on failure.
func (o *Orchestrator) SelectCalendar(ctx context.Context, calendarID, calendarName string) error {
	binding, err := o.requireConnected(ctx)
	if err != nil {
		return err
	}

	snapshot := binding
	binding.CalendarID = calendarID
	binding.CalendarName = calendarName
	if err := o.Bindings.PutBinding(ctx, o.TenantID, binding); err != nil {
		return err
	}
	o.log.Debug(config.MsgSelectTentative, slog.String(config.LogKeyCalendar, calendarID))

	if err := o.Service.SelectCalendar(ctx, calendarID, calendarName); err != nil {
		if rbErr := o.Bindings.PutBinding(ctx, o.TenantID, snapshot); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		o.log.Warn(config.MsgSelectRollback,
			slog.String(config.LogKeyCalendar, calendarID),
			slog.Any(config.LogKeyError, err),
		)
		return err
	}
	return nil
}

// CreateDedicatedCalendar creates a new calendar and selects it, the
// standard escape hatch when the primary-calendar guard fires.
func (o *Orchestrator) CreateDedicatedCalendar(ctx context.Context, name string) (calsvc.CreatedCalendar, error) {
	if _, err := o.requireConnected(ctx); err != nil {
		return calsvc.CreatedCalendar{}, err
	}

	created, err := o.Service.CreateCalendar(ctx, name)
	if err != nil {
		return calsvc.CreatedCalendar{}, err
	}
	o.log.Info(config.MsgCalendarCreated, slog.String(config.LogKeyCalendar, created.CalendarID))

	if err := o.SelectCalendar(ctx, created.CalendarID, created.CalendarName); err != nil {
		return created, err
	}
	return created, nil
}

// ListCalendars lists the calendars available to the connected account.
func (o *Orchestrator) ListCalendars(ctx context.Context) ([]calsvc.CalendarInfo, error) {
	if _, err := o.requireConnected(ctx); err != nil {
		return nil, err
	}
	return o.Service.ListCalendars(ctx)
}

// DeleteCalendar deletes a calendar by id.
func (o *Orchestrator) DeleteCalendar(ctx context.Context, calendarID string) error {
	if _, err := o.requireConnected(ctx); err != nil {
		return err
	}
	return o.Service.DeleteCalendar(ctx, calendarID)
}

// Refresh pulls the current binding from the service and persists it.
func (o *Orchestrator) Refresh(ctx context.Context) (syncstate.Binding, error) {
	binding, err := o.Service.GetStatus(ctx, o.UserID)
	if err != nil {
		return syncstate.Binding{}, err
	}
	if err := o.Bindings.PutBinding(ctx, o.TenantID, binding); err != nil {
		return syncstate.Binding{}, err
	}
	return binding, nil
}

// setTenantStatus updates only the advisory tenant-wide status.
func (o *Orchestrator) setTenantStatus(ctx context.Context, status syncstate.TenantStatus) error {
	binding, err := o.Bindings.GetBinding(ctx, o.TenantID)
	if err != nil {
		return err
	}
	binding.Status = status
	return o.Bindings.PutBinding(ctx, o.TenantID, binding)
}

// appendHistory persists a history item onto the tenant binding.
func (o *Orchestrator) appendHistory(ctx context.Context, binding syncstate.Binding, item syncstate.HistoryItem) {
	binding.AppendHistory(item)
	if err := o.Bindings.PutBinding(ctx, o.TenantID, binding); err != nil {
		o.log.Warn(config.ErrServiceCall, slog.Any(config.LogKeyError, err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
