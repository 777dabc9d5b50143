package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/dates"
	"github.com/Chagai33/birthday-sync/internal/store"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// DeletionPreviewer computes the aggregate a user confirms before a bulk
// delete. Unlike the orphan scan, this is pure local aggregation over the
// event maps already held in the store; only the calendar's display name
// comes from the binding, with no external round trip.
type DeletionPreviewer struct {
	Records  store.RecordStore
	Bindings store.BindingStore
	Service  calsvc.Service
	Clock    dates.Clock
}

// NewDeletionPreviewer wires a previewer over the local stores and the
// service used for the destructive phase.
func NewDeletionPreviewer(records store.RecordStore, bindings store.BindingStore, svc calsvc.Service, clock dates.Clock) *DeletionPreviewer {
	return &DeletionPreviewer{Records: records, Bindings: bindings, Service: svc, Clock: clock}
}

// PreviewDeletion summarizes, per record with at least one synced event,
// its display name and the Hebrew/Gregorian event breakdown.
func (p *DeletionPreviewer) PreviewDeletion(ctx context.Context, tenantID string) (calsvc.DeletionPreview, error) {
	binding, err := p.Bindings.GetBinding(ctx, tenantID)
	if err != nil {
		return calsvc.DeletionPreview{}, err
	}

	records, err := p.Records.ListByTenant(ctx, tenantID)
	if err != nil {
		return calsvc.DeletionPreview{}, err
	}

	preview := calsvc.DeletionPreview{CalendarName: binding.CalendarName}
	for i := range records {
		rec := &records[i]
		if len(rec.EventIDs) == 0 {
			continue
		}

		item := calsvc.DeletionSummaryItem{
			Name:  rec.DisplayName(),
			Count: len(rec.EventIDs),
		}
		if _, ok := rec.EventIDs[config.TrackHebrew]; ok {
			item.HebrewCount++
		}
		if _, ok := rec.EventIDs[config.TrackGregorian]; ok {
			item.GregorianCount++
		}

		preview.Summary = append(preview.Summary, item)
		preview.RecordsCount++
		preview.TotalCount += item.Count
	}

	sort.Slice(preview.Summary, func(i, j int) bool {
		return preview.Summary[i].Name < preview.Summary[j].Name
	})

	slog.Info(config.MsgDeletionPreview,
		slog.String(config.LogKeyComponent, config.CompReconcile),
		slog.String(config.LogKeyTenant, tenantID),
		slog.Int(config.LogKeyCount, preview.RecordsCount),
		slog.Int(config.LogKeyTotal, preview.TotalCount),
	)
	return preview, nil
}

// DeleteAll runs the destructive bulk delete, flips the tenant through the
// DELETING state and records the batch in history.
func (p *DeletionPreviewer) DeleteAll(ctx context.Context, tenantID string) (calsvc.DeleteAllResult, error) {
	binding, err := p.Bindings.GetBinding(ctx, tenantID)
	if err != nil {
		return calsvc.DeleteAllResult{}, err
	}
	if !binding.Connected {
		return calsvc.DeleteAllResult{}, calsvc.ErrNotConnected
	}

	binding.Status = syncstate.TenantDeleting
	if err := p.Bindings.PutBinding(ctx, tenantID, binding); err != nil {
		return calsvc.DeleteAllResult{}, err
	}

	result, err := p.Service.DeleteAll(ctx, tenantID)

	binding.Status = syncstate.TenantIdle
	if err == nil {
		binding.AppendHistory(syncstate.SummarizeBatch(result.TotalDeleted, result.FailedCount, nil, p.Clock.Now()))
	}
	if putErr := p.Bindings.PutBinding(ctx, tenantID, binding); putErr != nil && err == nil {
		err = putErr
	}
	if err != nil {
		return calsvc.DeleteAllResult{}, err
	}

	slog.Info(config.MsgDeleteAllDone,
		slog.String(config.LogKeyComponent, config.CompReconcile),
		slog.String(config.LogKeyTenant, tenantID),
		slog.Int(config.LogKeyDeleted, result.TotalDeleted),
		slog.Int(config.LogKeyFailed, result.FailedCount),
	)
	return result, nil
}
