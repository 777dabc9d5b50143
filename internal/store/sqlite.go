package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// SQLiteStore is a Store backed by a local SQLite database. Collection-type
// fields (groups, occurrences, event map, history) are stored as JSON
// columns; they are read whole and never queried into.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    first_name        TEXT NOT NULL DEFAULT '',
    last_name         TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT '',
    group_ids         TEXT NOT NULL DEFAULT '[]',
    calendar_pref     TEXT NOT NULL DEFAULT '',
    birth_year        INTEGER NOT NULL DEFAULT 0,
    birth_month       INTEGER NOT NULL DEFAULT 0,
    birth_day         INTEGER NOT NULL DEFAULT 0,
    hebrew_year       INTEGER NOT NULL DEFAULT 0,
    hebrew_month      INTEGER NOT NULL DEFAULT 0,
    hebrew_day        INTEGER NOT NULL DEFAULT 0,
    after_sunset      INTEGER NOT NULL DEFAULT 0,
    next_hebrew_date  TEXT NOT NULL DEFAULT '',
    next_hebrew_year  INTEGER NOT NULL DEFAULT 0,
    occurrences       TEXT NOT NULL DEFAULT '[]',
    event_ids         TEXT NOT NULL DEFAULT '{}',
    synced_hash       TEXT NOT NULL DEFAULT '',
    wants_sync        INTEGER NOT NULL DEFAULT 0,
    sync_status       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_records_tenant ON records(tenant_id);

CREATE TABLE IF NOT EXISTS bindings (
    tenant_id TEXT PRIMARY KEY,
    payload   TEXT NOT NULL
);
`

// OpenSQLite opens (creating if necessary) the database at path and ensures
// the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOpenDB, err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent store calls.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrInitSchema, err)
	}
	return &SQLiteStore{db: db}, nil
}

var _ Store = (*SQLiteStore)(nil)

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recordColumns = `id, tenant_id, first_name, last_name, notes, group_ids, calendar_pref,
    birth_year, birth_month, birth_day, hebrew_year, hebrew_month, hebrew_day, after_sunset,
    next_hebrew_date, next_hebrew_year, occurrences, event_ids, synced_hash, wants_sync, sync_status`

// ListByTenant implements RecordStore.
func (s *SQLiteStore) ListByTenant(ctx context.Context, tenantID string) ([]record.BirthdayRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []record.BirthdayRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get implements RecordStore.
func (s *SQLiteStore) Get(ctx context.Context, id string) (record.BirthdayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.BirthdayRecord{}, ErrNotFound
	}
	return rec, err
}

// Put implements RecordStore.
func (s *SQLiteStore) Put(ctx context.Context, rec *record.BirthdayRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	groups, err := json.Marshal(emptyIfNilSlice(rec.GroupIDs))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeJSON, err)
	}
	occ, err := json.Marshal(emptyIfNilOcc(rec.FutureOccurrences))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeJSON, err)
	}
	events, err := json.Marshal(emptyIfNilMap(rec.EventIDs))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeJSON, err)
	}

	var hy, hm, hd int
	if rec.Hebrew != nil {
		hy, hm, hd = rec.Hebrew.Year, rec.Hebrew.Month, rec.Hebrew.Day
	}
	nextHebrew := ""
	if rec.NextHebrewDate != nil {
		nextHebrew = rec.NextHebrewDate.Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO records (`+recordColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantID, rec.FirstName, rec.LastName, rec.Notes, string(groups),
		rec.CalendarPreference, rec.BirthYear, int(rec.BirthMonth), rec.BirthDay,
		hy, hm, hd, boolToInt(rec.AfterSunset), nextHebrew, rec.NextHebrewYear,
		string(occ), string(events), rec.SyncedHash, boolToInt(rec.WantsSync), rec.SyncStatus)
	return err
}

// Delete implements RecordStore.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	return err
}

// SetSyncResult implements RecordStore.
func (s *SQLiteStore) SetSyncResult(ctx context.Context, id string, eventIDs map[string]string, syncedHash string) error {
	events, err := json.Marshal(emptyIfNilMap(eventIDs))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeJSON, err)
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE records SET event_ids = ?, synced_hash = ?, wants_sync = 1, sync_status = ''
        WHERE id = ?`, string(events), syncedHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetSyncStatus implements RecordStore.
func (s *SQLiteStore) SetSyncStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE records SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearSync implements RecordStore.
func (s *SQLiteStore) ClearSync(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE records SET event_ids = '{}', synced_hash = '', wants_sync = 0, sync_status = ''
        WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetBinding implements BindingStore.
func (s *SQLiteStore) GetBinding(ctx context.Context, tenantID string) (syncstate.Binding, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM bindings WHERE tenant_id = ?`, tenantID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return syncstate.Disconnected(), nil
	}
	if err != nil {
		return syncstate.Binding{}, err
	}

	var b syncstate.Binding
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return syncstate.Binding{}, fmt.Errorf("%s: %w", config.ErrDecodeJSON, err)
	}
	return b, nil
}

// PutBinding implements BindingStore.
func (s *SQLiteStore) PutBinding(ctx context.Context, tenantID string, b syncstate.Binding) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeJSON, err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO bindings (tenant_id, payload) VALUES (?, ?)`,
		tenantID, string(payload))
	return err
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (record.BirthdayRecord, error) {
	var (
		rec                    record.BirthdayRecord
		groups, occ, events    string
		birthMonth             int
		hy, hm, hd             int
		afterSunset, wantsSync int
		nextHebrew             string
	)

	err := sc.Scan(&rec.ID, &rec.TenantID, &rec.FirstName, &rec.LastName, &rec.Notes,
		&groups, &rec.CalendarPreference, &rec.BirthYear, &birthMonth, &rec.BirthDay,
		&hy, &hm, &hd, &afterSunset, &nextHebrew, &rec.NextHebrewYear,
		&occ, &events, &rec.SyncedHash, &wantsSync, &rec.SyncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("%s: %w", config.ErrScanRow, err)
	}

	rec.BirthMonth = time.Month(birthMonth)
	rec.AfterSunset = afterSunset != 0
	rec.WantsSync = wantsSync != 0

	if hy != 0 || hm != 0 || hd != 0 {
		rec.Hebrew = &record.HebrewDate{Year: hy, Month: hm, Day: hd}
	}
	if nextHebrew != "" {
		t, err := time.Parse(time.RFC3339, nextHebrew)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", config.ErrScanRow, err)
		}
		rec.NextHebrewDate = &t
	}

	if err := json.Unmarshal([]byte(groups), &rec.GroupIDs); err != nil {
		return rec, fmt.Errorf("%s: %w", config.ErrDecodeJSON, err)
	}
	if err := json.Unmarshal([]byte(occ), &rec.FutureOccurrences); err != nil {
		return rec, fmt.Errorf("%s: %w", config.ErrDecodeJSON, err)
	}
	if err := json.Unmarshal([]byte(events), &rec.EventIDs); err != nil {
		return rec, fmt.Errorf("%s: %w", config.ErrDecodeJSON, err)
	}
	if len(rec.GroupIDs) == 0 {
		rec.GroupIDs = nil
	}
	if len(rec.EventIDs) == 0 {
		rec.EventIDs = nil
	}
	return rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyIfNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilOcc(s []record.HebrewOccurrence) []record.HebrewOccurrence {
	if s == nil {
		return []record.HebrewOccurrence{}
	}
	return s
}

func emptyIfNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
