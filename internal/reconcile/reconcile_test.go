package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
	"github.com/Chagai33/birthday-sync/internal/store"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// -----------------------------------------------------------------------------
// Test Doubles
// -----------------------------------------------------------------------------

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockService struct {
	mock.Mock
	calsvc.Service // panic on anything not overridden below
}

func (m *mockService) PreviewOrphans(ctx context.Context, tenantID string) (calsvc.OrphanPreview, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(calsvc.OrphanPreview), args.Error(1)
}

func (m *mockService) CleanupOrphans(ctx context.Context, tenantID string) (calsvc.CleanupResult, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(calsvc.CleanupResult), args.Error(1)
}

func (m *mockService) DeleteAll(ctx context.Context, tenantID string) (calsvc.DeleteAllResult, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(calsvc.DeleteAllResult), args.Error(1)
}

const testTenant = "t1"

func connectedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.PutBinding(context.Background(), testTenant, syncstate.Binding{
		Connected:    true,
		CalendarID:   "cal_abc",
		CalendarName: "Birthdays",
		Status:       syncstate.TenantIdle,
	}))
	return st
}

// -----------------------------------------------------------------------------
// Orphan Reconciliation
// -----------------------------------------------------------------------------

// TestOrphanPreview verifies the dry run passes through the remote scan.
func TestOrphanPreview(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	r := NewOrphanReconciler(st, svc, testTenant)

	svc.On("PreviewOrphans", mock.Anything, testTenant).
		Return(calsvc.OrphanPreview{FoundCount: 3, CalendarName: "Birthdays"}, nil).Once()

	preview, err := r.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.FoundCount)
	svc.AssertExpectations(t)
}

func TestOrphanPreview_NotConnected(t *testing.T) {
	svc := &mockService{}
	r := NewOrphanReconciler(store.NewMemoryStore(), svc, testTenant)

	_, err := r.Preview(context.Background())
	assert.ErrorIs(t, err, calsvc.ErrNotConnected)
	svc.AssertNotCalled(t, "PreviewOrphans", mock.Anything, mock.Anything)
}

// TestOrphanCleanup_Gating verifies the destructive phase refuses to run
// without a preview or with an empty one, without any remote traffic.
func TestOrphanCleanup_Gating(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	r := NewOrphanReconciler(st, svc, testTenant)

	_, err := r.Cleanup(ctx, nil)
	assert.ErrorIs(t, err, ErrNoPreview)

	_, err = r.Cleanup(ctx, &calsvc.OrphanPreview{FoundCount: 0})
	assert.ErrorIs(t, err, ErrNothingToClean)

	svc.AssertNotCalled(t, "CleanupOrphans", mock.Anything, mock.Anything)
}

// TestOrphanCleanup verifies the gated destructive call.
func TestOrphanCleanup(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	r := NewOrphanReconciler(st, svc, testTenant)

	svc.On("CleanupOrphans", mock.Anything, testTenant).
		Return(calsvc.CleanupResult{DeletedCount: 3, CalendarName: "Birthdays"}, nil).Once()

	result, err := r.Cleanup(ctx, &calsvc.OrphanPreview{FoundCount: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeletedCount)
	svc.AssertExpectations(t)
}

// -----------------------------------------------------------------------------
// Deletion Preview
// -----------------------------------------------------------------------------

// TestPreviewDeletion verifies the purely local aggregation: only records
// with events count, per-track breakdowns are exact, and output is sorted
// by name.
func TestPreviewDeletion(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	clock := fixedClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	p := NewDeletionPreviewer(st, st, svc, clock)

	synced := record.BirthdayRecord{
		TenantID:  testTenant,
		FirstName: "Dana",
		LastName:  "Levi",
		EventIDs: map[string]string{
			config.TrackHebrew:    "evt-1",
			config.TrackGregorian: "evt-2",
		},
	}
	unsynced := record.BirthdayRecord{TenantID: testTenant, FirstName: "Noa"}
	hebrewOnly := record.BirthdayRecord{
		TenantID:  testTenant,
		FirstName: "Avi",
		EventIDs:  map[string]string{config.TrackHebrew: "evt-3"},
	}
	require.NoError(t, st.Put(ctx, &synced))
	require.NoError(t, st.Put(ctx, &unsynced))
	require.NoError(t, st.Put(ctx, &hebrewOnly))

	preview, err := p.PreviewDeletion(ctx, testTenant)
	require.NoError(t, err)

	assert.Equal(t, "Birthdays", preview.CalendarName)
	assert.Equal(t, 2, preview.RecordsCount, "records without events do not count")
	assert.Equal(t, 3, preview.TotalCount)

	require.Len(t, preview.Summary, 2)
	assert.Equal(t, "Avi", preview.Summary[0].Name, "summary is sorted by name")
	assert.Equal(t, 1, preview.Summary[0].HebrewCount)
	assert.Equal(t, 0, preview.Summary[0].GregorianCount)

	assert.Equal(t, "Dana Levi", preview.Summary[1].Name)
	assert.Equal(t, 2, preview.Summary[1].Count)
	assert.Equal(t, 1, preview.Summary[1].HebrewCount)
	assert.Equal(t, 1, preview.Summary[1].GregorianCount)

	// No remote traffic for a preview.
	svc.AssertNotCalled(t, "PreviewDeletion", mock.Anything, mock.Anything)
}

// TestPreviewDeletion_CountsOnlySynced pins the aggregate for one record
// with two events next to one with none.
func TestPreviewDeletion_CountsOnlySynced(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	p := NewDeletionPreviewer(st, st, &mockService{}, fixedClock{})

	synced := record.BirthdayRecord{
		TenantID:  testTenant,
		FirstName: "Dana",
		EventIDs: map[string]string{
			config.TrackHebrew:    "evt-1",
			config.TrackGregorian: "evt-2",
		},
	}
	unsynced := record.BirthdayRecord{TenantID: testTenant, FirstName: "Noa"}
	require.NoError(t, st.Put(ctx, &synced))
	require.NoError(t, st.Put(ctx, &unsynced))

	preview, err := p.PreviewDeletion(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.RecordsCount)
	assert.Equal(t, 2, preview.TotalCount)
}

// TestPreviewDeletion_Empty verifies the zero aggregate for a tenant with
// nothing synced.
func TestPreviewDeletion_Empty(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	p := NewDeletionPreviewer(st, st, &mockService{}, fixedClock{})

	preview, err := p.PreviewDeletion(ctx, testTenant)
	require.NoError(t, err)
	assert.Zero(t, preview.RecordsCount)
	assert.Zero(t, preview.TotalCount)
	assert.Empty(t, preview.Summary)
}

// -----------------------------------------------------------------------------
// Bulk Delete
// -----------------------------------------------------------------------------

// TestDeleteAll verifies the state flip through DELETING, the terminal
// reset to IDLE and the history entry.
func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	clock := fixedClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	p := NewDeletionPreviewer(st, st, svc, clock)

	svc.On("DeleteAll", mock.Anything, testTenant).
		Return(calsvc.DeleteAllResult{TotalDeleted: 5, FailedCount: 1, CalendarName: "Birthdays"}, nil).Once()

	result, err := p.DeleteAll(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalDeleted)

	binding, err := st.GetBinding(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, syncstate.TenantIdle, binding.Status, "tenant settles back to IDLE")

	require.Len(t, binding.RecentActivity, 1)
	item := binding.RecentActivity[0]
	assert.Equal(t, syncstate.HistoryBatch, item.Type)
	assert.Equal(t, syncstate.HistoryPartial, item.Status, "a mixed delete outcome is PARTIAL")
	assert.Equal(t, 6, item.Total)
	assert.Equal(t, 5, item.SuccessCount)
	assert.Equal(t, 1, item.FailedCount)
	assert.Equal(t, clock.t, item.Timestamp)
}

// TestDeleteAll_AllFailed verifies a delete where nothing succeeded is
// recorded as FAILED, not PARTIAL.
func TestDeleteAll_AllFailed(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	p := NewDeletionPreviewer(st, st, svc, fixedClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)})

	svc.On("DeleteAll", mock.Anything, testTenant).
		Return(calsvc.DeleteAllResult{TotalDeleted: 0, FailedCount: 2, CalendarName: "Birthdays"}, nil).Once()

	_, err := p.DeleteAll(ctx, testTenant)
	require.NoError(t, err)

	binding, err := st.GetBinding(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, binding.RecentActivity, 1)
	assert.Equal(t, syncstate.HistoryFailed, binding.RecentActivity[0].Status)
	assert.Equal(t, 2, binding.RecentActivity[0].Total)
	assert.Equal(t, 0, binding.RecentActivity[0].SuccessCount)
}

func TestDeleteAll_NotConnected(t *testing.T) {
	st := store.NewMemoryStore()
	svc := &mockService{}
	p := NewDeletionPreviewer(st, st, svc, fixedClock{})

	_, err := p.DeleteAll(context.Background(), testTenant)
	assert.ErrorIs(t, err, calsvc.ErrNotConnected)
	svc.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
}

// TestDeleteAll_ServiceFailure verifies the tenant is not left stuck in
// DELETING after a failed remote call.
func TestDeleteAll_ServiceFailure(t *testing.T) {
	ctx := context.Background()
	st := connectedStore(t)
	svc := &mockService{}
	p := NewDeletionPreviewer(st, st, svc, fixedClock{})

	svc.On("DeleteAll", mock.Anything, testTenant).
		Return(calsvc.DeleteAllResult{}, &calsvc.TransientError{Op: "deleteAll", StatusCode: 503}).Once()

	_, err := p.DeleteAll(ctx, testTenant)
	require.Error(t, err)

	binding, err := st.GetBinding(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, syncstate.TenantIdle, binding.Status)
	assert.Empty(t, binding.RecentActivity, "a failed delete records no success entry")
}
