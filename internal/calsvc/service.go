// Package calsvc defines the remote calendar-service boundary: the typed
// operations the sync engine invokes against the external calendar backend,
// their result values, and the failure taxonomy shared with callers.
package calsvc

import (
	"context"

	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// SyncOutcome is the typed result of a single-record sync.
type SyncOutcome struct {
	Success  bool              `json:"success"`
	EventIDs map[string]string `json:"eventIds,omitempty"` // track key -> event id
	Error    string            `json:"error,omitempty"`
}

// BulkAccepted acknowledges a fire-and-forget bulk enqueue. Per-record
// outcomes become visible only via later status refreshes and the history
// item the operation produces.
type BulkAccepted struct {
	Accepted    bool `json:"accepted"`
	QueuedCount int  `json:"queuedCount"`
}

// RemoveResult is the typed result of removing a record's events.
type RemoveResult struct {
	Success bool `json:"success"`
}

// DeletionSummaryItem describes one record's share of a would-be bulk
// delete.
type DeletionSummaryItem struct {
	Name           string `json:"name"`
	Count          int    `json:"count"`
	HebrewCount    int    `json:"hebrewCount"`
	GregorianCount int    `json:"gregorianCount"`
}

// DeletionPreview is the non-destructive aggregate shown before a bulk
// delete is confirmed.
type DeletionPreview struct {
	CalendarName string                `json:"calendarName"`
	RecordsCount int                   `json:"recordsCount"`
	TotalCount   int                   `json:"totalCount"`
	Summary      []DeletionSummaryItem `json:"summary"`
}

// DeleteAllResult reports the outcome of a bulk delete.
type DeleteAllResult struct {
	TotalDeleted int    `json:"totalDeleted"`
	FailedCount  int    `json:"failedCount"`
	CalendarName string `json:"calendarName"`
}

// OrphanPreview is the dry-run result of an orphan scan. Orphans are only
// knowable from the external side, so this always costs a remote call.
type OrphanPreview struct {
	FoundCount   int    `json:"foundCount"`
	CalendarName string `json:"calendarName"`
}

// CleanupResult reports the destructive phase of orphan reconciliation.
type CleanupResult struct {
	DeletedCount int    `json:"deletedCount"`
	CalendarName string `json:"calendarName"`
}

// CalendarInfo describes one calendar available to the connected account.
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
}

// CreatedCalendar identifies a freshly created dedicated calendar.
type CreatedCalendar struct {
	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName"`
}

// Service is the remote calendar-service boundary. All operations are
// synchronous request/response calls; all may fail. Callers must already
// hold a valid account credential — acquisition and refresh live outside
// this boundary.
type Service interface {
	GetStatus(ctx context.Context, userID string) (syncstate.Binding, error)

	SyncOne(ctx context.Context, recordID string) (SyncOutcome, error)
	SyncMany(ctx context.Context, recordIDs []string) (BulkAccepted, error)
	Remove(ctx context.Context, recordID string) (RemoveResult, error)

	PreviewDeletion(ctx context.Context, tenantID string) (DeletionPreview, error)
	DeleteAll(ctx context.Context, tenantID string) (DeleteAllResult, error)
	PreviewOrphans(ctx context.Context, tenantID string) (OrphanPreview, error)
	CleanupOrphans(ctx context.Context, tenantID string) (CleanupResult, error)

	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	CreateCalendar(ctx context.Context, name string) (CreatedCalendar, error)
	SelectCalendar(ctx context.Context, id, name string) error
	DeleteCalendar(ctx context.Context, id string) error
	Disconnect(ctx context.Context) error
}
