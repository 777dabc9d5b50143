package dates

import "time"

// Zodiac is a western or Hebrew-calendar zodiac sign name.
type Zodiac string

const (
	Aries       Zodiac = "Aries"
	Taurus      Zodiac = "Taurus"
	Gemini      Zodiac = "Gemini"
	Cancer      Zodiac = "Cancer"
	Leo         Zodiac = "Leo"
	Virgo       Zodiac = "Virgo"
	Libra       Zodiac = "Libra"
	Scorpio     Zodiac = "Scorpio"
	Sagittarius Zodiac = "Sagittarius"
	Capricorn   Zodiac = "Capricorn"
	Aquarius    Zodiac = "Aquarius"
	Pisces      Zodiac = "Pisces"
)

// zodiacRange is one interval of the Gregorian sign table.
// A sign runs from (startMonth, startDay) inclusive to the day before the
// next entry's start.
type zodiacRange struct {
	month time.Month
	day   int
	sign  Zodiac
}

// gregorianZodiacTable lists sign starts in calendar order.
var gregorianZodiacTable = []zodiacRange{
	{time.January, 20, Aquarius},
	{time.February, 19, Pisces},
	{time.March, 21, Aries},
	{time.April, 20, Taurus},
	{time.May, 21, Gemini},
	{time.June, 21, Cancer},
	{time.July, 23, Leo},
	{time.August, 23, Virgo},
	{time.September, 23, Libra},
	{time.October, 23, Scorpio},
	{time.November, 22, Sagittarius},
	{time.December, 22, Capricorn},
}

// GregorianZodiac returns the western sign for a month/day pair.
func GregorianZodiac(month time.Month, day int) Zodiac {
	// Before January 20 we are still in Capricorn, the sign wrapping the
	// year boundary.
	sign := Capricorn
	for _, r := range gregorianZodiacTable {
		if month > r.month || (month == r.month && day >= r.day) {
			sign = r.sign
		}
	}
	return sign
}

// hebrewZodiacTable maps Hebrew month numbers (1 = Nisan) to signs.
// Both Adar variants map to Pisces.
var hebrewZodiacTable = map[int]Zodiac{
	1:  Aries,       // Nisan
	2:  Taurus,      // Iyyar
	3:  Gemini,      // Sivan
	4:  Cancer,      // Tamuz
	5:  Leo,         // Av
	6:  Virgo,       // Elul
	7:  Libra,       // Tishrei
	8:  Scorpio,     // Cheshvan
	9:  Sagittarius, // Kislev
	10: Capricorn,   // Tevet
	11: Aquarius,    // Shvat
	12: Pisces,      // Adar / Adar I
	13: Pisces,      // Adar II
}

// HebrewZodiac returns the sign for a Hebrew month number, or the empty
// Zodiac for an out-of-range month.
func HebrewZodiac(month int) Zodiac {
	return hebrewZodiacTable[month]
}
