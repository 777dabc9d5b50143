// Package reconcile holds the two read-before-write flows over synced
// calendar events: orphan reconciliation (external scan, then gated
// destructive cleanup) and bulk-delete previewing (purely local
// aggregation).
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/store"
)

// ErrNoPreview is returned when cleanup is attempted without a prior
// dry-run result.
var ErrNoPreview = errors.New(config.ErrNoPreview)

// ErrNothingToClean is returned when the supplied preview found no
// orphans; running the destructive phase would be pointless at best.
var ErrNothingToClean = errors.New(config.ErrNothingToClean)

// OrphanReconciler finds and removes calendar events that no longer
// correspond to any record. An orphan is only knowable from the external
// side: the full external event set must be reconciled against the local
// reference set.
type OrphanReconciler struct {
	Bindings store.BindingStore
	Service  calsvc.Service
	TenantID string

	log *slog.Logger
}

// NewOrphanReconciler wires a reconciler for one tenant.
func NewOrphanReconciler(bindings store.BindingStore, svc calsvc.Service, tenantID string) *OrphanReconciler {
	return &OrphanReconciler{
		Bindings: bindings,
		Service:  svc,
		TenantID: tenantID,
		log: slog.With(
			slog.String(config.LogKeyComponent, config.CompReconcile),
			slog.String(config.LogKeyTenant, tenantID),
		),
	}
}

// Preview runs the non-destructive orphan scan. Its result must be shown
// to the user and passed back into Cleanup; that is the only path to the
// destructive phase.
func (r *OrphanReconciler) Preview(ctx context.Context) (calsvc.OrphanPreview, error) {
	if err := r.requireConnected(ctx); err != nil {
		return calsvc.OrphanPreview{}, err
	}

	preview, err := r.Service.PreviewOrphans(ctx, r.TenantID)
	if err != nil {
		return calsvc.OrphanPreview{}, err
	}

	r.log.Info(config.MsgOrphanPreview, slog.Int(config.LogKeyFound, preview.FoundCount))
	return preview, nil
}

// Cleanup runs the destructive phase. It refuses to proceed without a
// preview, and refuses when the preview found nothing, so an irreversible
// deletion is always gated behind a displayed dry run.
func (r *OrphanReconciler) Cleanup(ctx context.Context, preview *calsvc.OrphanPreview) (calsvc.CleanupResult, error) {
	if preview == nil {
		return calsvc.CleanupResult{}, ErrNoPreview
	}
	if preview.FoundCount == 0 {
		return calsvc.CleanupResult{}, ErrNothingToClean
	}
	if err := r.requireConnected(ctx); err != nil {
		return calsvc.CleanupResult{}, err
	}

	result, err := r.Service.CleanupOrphans(ctx, r.TenantID)
	if err != nil {
		return calsvc.CleanupResult{}, err
	}

	r.log.Info(config.MsgOrphanCleanup, slog.Int(config.LogKeyDeleted, result.DeletedCount))
	return result, nil
}

func (r *OrphanReconciler) requireConnected(ctx context.Context) error {
	binding, err := r.Bindings.GetBinding(ctx, r.TenantID)
	if err != nil {
		return err
	}
	if !binding.Connected {
		return calsvc.ErrNotConnected
	}
	return nil
}
