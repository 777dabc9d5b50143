package record

import (
	"strings"
	"time"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// HebrewDate identifies a day in the Hebrew calendar.
// Month numbering follows the civil convention used by the conversion
// oracle: 1 = Nisan .. 11 = Shvat, 12 = Adar (I), 13 = Adar II.
type HebrewDate struct {
	Year  int
	Month int
	Day   int
}

// IsZero reports whether the date carries no information.
func (d HebrewDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// HebrewOccurrence pairs a future Gregorian date with the Hebrew year it
// represents. The oracle supplies a bounded forward sequence of these.
type HebrewOccurrence struct {
	Date       time.Time
	HebrewYear int
}

// BirthdayRecord is the persisted person entry tracked under both calendars.
//
// The Hebrew projection fields (NextHebrewDate, NextHebrewYear,
// FutureOccurrences) are precomputed by the conversion oracle and may be
// absent; consumers must degrade gracefully when they are.
type BirthdayRecord struct {
	ID       string
	TenantID string

	FirstName          string
	LastName           string
	Notes              string
	GroupIDs           []string
	CalendarPreference string // "", config.TrackHebrew or config.TrackGregorian

	BirthYear  int
	BirthMonth time.Month
	BirthDay   int

	Hebrew      *HebrewDate
	AfterSunset bool

	NextHebrewDate    *time.Time
	NextHebrewYear    int
	FutureOccurrences []HebrewOccurrence

	// Sync bookkeeping. EventIDs maps a track key (config.TrackHebrew /
	// config.TrackGregorian) to the external calendar event id.
	EventIDs   map[string]string
	SyncedHash string
	WantsSync  bool
	SyncStatus string // "", PENDING, ERROR or PARTIAL_SYNC
}

// DisplayName joins the name parts, falling back to a placeholder so the
// record can always be rendered.
func (r *BirthdayRecord) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	if name == "" {
		return config.FallbackName
	}
	return name
}

// HasValidGregorian reports whether the stored Gregorian birth date is
// structurally usable. time.Date normalization is deliberately not relied
// upon here: a stored "February 31" is malformed input, not a date.
func (r *BirthdayRecord) HasValidGregorian() bool {
	if r.BirthYear <= 0 || r.BirthMonth < time.January || r.BirthMonth > time.December {
		return false
	}
	if r.BirthDay < 1 || r.BirthDay > 31 {
		return false
	}
	d := time.Date(r.BirthYear, r.BirthMonth, r.BirthDay, 0, 0, 0, 0, time.UTC)
	return d.Month() == r.BirthMonth && d.Day() == r.BirthDay
}

// BirthDate returns the Gregorian birth date at midnight in loc.
// Callers must check HasValidGregorian first.
func (r *BirthdayRecord) BirthDate(loc *time.Location) time.Time {
	return time.Date(r.BirthYear, r.BirthMonth, r.BirthDay, 0, 0, 0, 0, loc)
}

// EffectivelySynced resolves the flag/event-map disagreement: the presence
// of external events is ground truth and overrides the stored intent flag.
func (r *BirthdayRecord) EffectivelySynced() bool {
	if len(r.EventIDs) > 0 {
		return true
	}
	return r.WantsSync
}

// ClearSync resets all sync bookkeeping, returning the record to Idle.
func (r *BirthdayRecord) ClearSync() {
	r.EventIDs = nil
	r.SyncedHash = ""
	r.WantsSync = false
	r.SyncStatus = ""
}
