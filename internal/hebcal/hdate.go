package hebcal

import (
	"time"

	"github.com/hebcal/hdate"

	"github.com/Chagai33/birthday-sync/internal/record"
)

// HdateOracle implements Oracle on top of the hebcal hdate package.
type HdateOracle struct{}

var _ Oracle = HdateOracle{}

// GregorianToHebrew converts a Gregorian date, shifting one day forward
// first when the birth occurred after sunset.
func (HdateOracle) GregorianToHebrew(t time.Time, afterSunset bool) record.HebrewDate {
	if afterSunset {
		t = t.AddDate(0, 0, 1)
	}
	hd := hdate.FromGregorian(t.Year(), t.Month(), t.Day())
	return record.HebrewDate{Year: hd.Year(), Month: int(hd.Month()), Day: hd.Day()}
}

// NextOccurrences projects the Hebrew anniversary into consecutive Hebrew
// years, converting each back to a Gregorian date. Occurrences strictly
// before the start of "from"'s day are skipped so the first entry is always
// today or later.
func (HdateOracle) NextOccurrences(birth record.HebrewDate, from time.Time, n int) []record.HebrewOccurrence {
	if n <= 0 || birth.Year == 0 {
		return nil
	}

	loc := from.Location()
	fy, fm, fd := from.Date()
	todayStart := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)

	start := hdate.FromGregorian(fy, fm, fd)
	occ := make([]record.HebrewOccurrence, 0, n)
	for year := start.Year(); len(occ) < n; year++ {
		hd := anniversaryIn(year, birth)
		gy, gm, gd := hd.Greg()
		date := time.Date(gy, gm, gd, 0, 0, 0, 0, loc)
		if date.Before(todayStart) {
			continue
		}
		occ = append(occ, record.HebrewOccurrence{Date: date, HebrewYear: year})
	}
	return occ
}

// anniversaryIn places the birth month/day into the target Hebrew year.
// Births in either Adar fall on plain Adar in non-leap years, and day
// numbers beyond the target month's length (30 Cheshvan, 30 Kislev) clamp
// to its last day.
func anniversaryIn(year int, birth record.HebrewDate) hdate.HDate {
	month := hdate.HMonth(birth.Month)
	if (month == hdate.Adar1 || month == hdate.Adar2) && !hdate.IsLeapYear(year) {
		month = hdate.Adar1
	}
	day := birth.Day
	if max := hdate.DaysInMonth(month, year); day > max {
		day = max
	}
	return hdate.New(year, month, day)
}
