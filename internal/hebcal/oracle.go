// Package hebcal adapts a Hebrew calendar-conversion library to the oracle
// contract the rest of the system consumes. All Hebrew arithmetic lives
// behind the Oracle interface so the engine itself stays calendar-agnostic.
package hebcal

import (
	"time"

	"github.com/Chagai33/birthday-sync/internal/record"
)

// Oracle converts Gregorian dates to Hebrew dates and projects future
// Hebrew-birthday occurrences onto the Gregorian calendar.
type Oracle interface {
	// GregorianToHebrew returns the Hebrew date corresponding to t.
	// When afterSunset is set, the birth belongs to the following Hebrew
	// day.
	GregorianToHebrew(t time.Time, afterSunset bool) record.HebrewDate

	// NextOccurrences returns up to n future Gregorian dates on which the
	// Hebrew birthday recurs, starting from the given instant, in
	// ascending order.
	NextOccurrences(birth record.HebrewDate, from time.Time, n int) []record.HebrewOccurrence
}

// Project fills a record's Hebrew projection fields from the oracle:
// the Hebrew birth date, the bounded forward occurrence sequence, and the
// precomputed next occurrence. Records without a valid Gregorian date are
// left untouched.
func Project(o Oracle, rec *record.BirthdayRecord, now time.Time, horizon int) {
	if o == nil || !rec.HasValidGregorian() {
		return
	}

	hd := o.GregorianToHebrew(rec.BirthDate(now.Location()), rec.AfterSunset)
	rec.Hebrew = &hd

	occ := o.NextOccurrences(hd, now, horizon)
	rec.FutureOccurrences = occ
	if len(occ) > 0 {
		next := occ[0].Date
		rec.NextHebrewDate = &next
		rec.NextHebrewYear = occ[0].HebrewYear
	}
}
