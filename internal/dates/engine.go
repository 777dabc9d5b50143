package dates

import (
	"math"
	"time"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
)

// NextCalendar reports which calendar's next birthday comes first.
type NextCalendar string

const (
	NextGregorian NextCalendar = "gregorian"
	NextHebrew    NextCalendar = "hebrew"
	NextSame      NextCalendar = "same"
	NextUnknown   NextCalendar = "unknown"
)

// Computation is the full derived view of a record's birthdays relative to
// a reference instant. All fields are always populated; the Known flags mark
// which side of the computation degraded for lack of input.
type Computation struct {
	GregorianKnown     bool
	GregorianAge       int
	NextGregorian      time.Time
	DaysUntilGregorian int
	GregorianZodiac    Zodiac

	HebrewKnown     bool
	HebrewAge       int
	NextHebrew      *time.Time
	DaysUntilHebrew int
	HebrewZodiac    Zodiac

	Next NextCalendar
}

// ComputeAll derives ages, next occurrences, countdowns and zodiac signs for
// both calendars. It is pure and total: malformed or missing input degrades
// to zero values and cleared Known flags, never to an error, because callers
// must always be able to render something.
func ComputeAll(rec *record.BirthdayRecord, ref time.Time) Computation {
	var c Computation

	if rec.HasValidGregorian() {
		c.GregorianKnown = true
		c.GregorianAge = gregorianAge(rec, ref)
		c.NextGregorian = nextGregorianOccurrence(rec, ref)
		c.GregorianZodiac = GregorianZodiac(rec.BirthMonth, rec.BirthDay)
	} else {
		// Fallback occurrence one year out keeps sort orders stable for
		// records with unusable birth dates.
		c.NextGregorian = midnight(ref.AddDate(config.FallbackYearAhead, 0, 0))
	}
	c.DaysUntilGregorian = daysUntil(c.NextGregorian, ref)

	if rec.Hebrew != nil && rec.NextHebrewDate != nil && rec.NextHebrewYear > 0 {
		c.HebrewKnown = true
		c.HebrewAge = hebrewAge(rec, ref)
		next := midnight(*rec.NextHebrewDate)
		c.NextHebrew = &next
		c.DaysUntilHebrew = daysUntil(next, ref)
	}
	if rec.Hebrew != nil {
		c.HebrewZodiac = HebrewZodiac(rec.Hebrew.Month)
	}

	c.Next = resolveNext(c)
	return c
}

// gregorianAge is the completed-years age: reference year minus birth year,
// decremented while the birthday has not yet occurred this year. Equality of
// month/day counts as occurred.
func gregorianAge(rec *record.BirthdayRecord, ref time.Time) int {
	age := ref.Year() - rec.BirthYear
	if beforeMonthDay(ref.Month(), ref.Day(), rec.BirthMonth, rec.BirthDay) {
		age--
	}
	return age
}

// nextGregorianOccurrence places the birthday in the current year while it
// is still strictly ahead, otherwise in the next year. The birthday itself
// counts as passed. The result is midnight-normalized; Feb 29 maps to Mar 1
// in non-leap years via time.Date normalization.
func nextGregorianOccurrence(rec *record.BirthdayRecord, ref time.Time) time.Time {
	loc := ref.Location()
	year := ref.Year()
	if !beforeMonthDay(ref.Month(), ref.Day(), rec.BirthMonth, rec.BirthDay) {
		year++
	}
	return time.Date(year, rec.BirthMonth, rec.BirthDay, 0, 0, 0, 0, loc)
}

// hebrewAge derives the upcoming Hebrew age from the oracle's projection,
// decremented by one unless the next Hebrew occurrence is today or earlier.
func hebrewAge(rec *record.BirthdayRecord, ref time.Time) int {
	age := rec.NextHebrewYear - rec.Hebrew.Year
	next := *rec.NextHebrewDate
	if midnight(next).After(midnight(ref)) {
		age--
	}
	return age
}

// daysUntil is ceil((target - ref) / 24h), floored at zero.
func daysUntil(target, ref time.Time) int {
	d := target.Sub(ref)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// resolveNext compares the two next-occurrence dates. Within one day of
// each other they count as the same day; otherwise the strictly earlier one
// wins. Without Hebrew data the Gregorian side wins by default, and with no
// valid date at all the answer is unknown.
func resolveNext(c Computation) NextCalendar {
	if !c.HebrewKnown {
		if c.GregorianKnown {
			return NextGregorian
		}
		return NextUnknown
	}
	if !c.GregorianKnown {
		return NextHebrew
	}
	diff := c.NextGregorian.Sub(*c.NextHebrew)
	if diff < 0 {
		diff = -diff
	}
	if diff <= config.SameDayTolerance {
		return NextSame
	}
	if c.NextGregorian.Before(*c.NextHebrew) {
		return NextGregorian
	}
	return NextHebrew
}

// beforeMonthDay reports (m1, d1) < (m2, d2) lexicographically.
func beforeMonthDay(m1 time.Month, d1 int, m2 time.Month, d2 int) bool {
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// midnight truncates t to the start of its calendar day.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
