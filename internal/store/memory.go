package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Chagai33/birthday-sync/internal/record"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// MemoryStore is a map-backed Store. It copies records on the way in and
// out so callers can never mutate stored state through aliases.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]record.BirthdayRecord
	bindings map[string]syncstate.Binding
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]record.BirthdayRecord),
		bindings: make(map[string]syncstate.Binding),
	}
}

var _ Store = (*MemoryStore)(nil)

// ListByTenant implements RecordStore.
func (s *MemoryStore) ListByTenant(_ context.Context, tenantID string) ([]record.BirthdayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []record.BirthdayRecord
	for _, rec := range s.records {
		if rec.TenantID == tenantID {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

// Get implements RecordStore.
func (s *MemoryStore) Get(_ context.Context, id string) (record.BirthdayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return record.BirthdayRecord{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

// Put implements RecordStore.
func (s *MemoryStore) Put(_ context.Context, rec *record.BirthdayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.records[rec.ID] = copyRecord(*rec)
	return nil
}

// Delete implements RecordStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// SetSyncResult implements RecordStore.
func (s *MemoryStore) SetSyncResult(_ context.Context, id string, eventIDs map[string]string, syncedHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.EventIDs = copyStringMap(eventIDs)
	rec.SyncedHash = syncedHash
	rec.WantsSync = true
	rec.SyncStatus = ""
	s.records[id] = rec
	return nil
}

// SetSyncStatus implements RecordStore.
func (s *MemoryStore) SetSyncStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.SyncStatus = status
	s.records[id] = rec
	return nil
}

// ClearSync implements RecordStore.
func (s *MemoryStore) ClearSync(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.ClearSync()
	s.records[id] = rec
	return nil
}

// GetBinding implements BindingStore.
func (s *MemoryStore) GetBinding(_ context.Context, tenantID string) (syncstate.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[tenantID]
	if !ok {
		return syncstate.Disconnected(), nil
	}
	return copyBinding(b), nil
}

// PutBinding implements BindingStore.
func (s *MemoryStore) PutBinding(_ context.Context, tenantID string, b syncstate.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings[tenantID] = copyBinding(b)
	return nil
}

func copyRecord(rec record.BirthdayRecord) record.BirthdayRecord {
	out := rec
	out.GroupIDs = append([]string(nil), rec.GroupIDs...)
	out.FutureOccurrences = append([]record.HebrewOccurrence(nil), rec.FutureOccurrences...)
	out.EventIDs = copyStringMap(rec.EventIDs)
	if rec.Hebrew != nil {
		h := *rec.Hebrew
		out.Hebrew = &h
	}
	if rec.NextHebrewDate != nil {
		d := *rec.NextHebrewDate
		out.NextHebrewDate = &d
	}
	return out
}

func copyBinding(b syncstate.Binding) syncstate.Binding {
	out := b
	out.RecentActivity = append([]syncstate.HistoryItem(nil), b.RecentActivity...)
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
