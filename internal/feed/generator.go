// Package feed renders the tenant's birthdays as an iCalendar subscription
// feed and serves it over localhost HTTP. The feed is a read-only derived
// view; the authoritative calendar copy lives behind the remote service.
package feed

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/dates"
	"github.com/Chagai33/birthday-sync/internal/record"
)

// BuildICS renders one VEVENT per upcoming Gregorian birthday and one per
// oracle-projected future Hebrew occurrence. Records without a valid
// Gregorian date still contribute their Hebrew occurrences when present.
func BuildICS(records []record.BirthdayRecord, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Local time drives the day logic; UTC is only for ICS stamping.
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for i := range records {
		rec := &records[i]
		comp := dates.ComputeAll(rec, now)
		uidBase := recordUID(rec)

		if comp.GregorianKnown {
			summary := fmt.Sprintf(config.SummaryGregorianAge, rec.DisplayName(), comp.GregorianAge+1)
			e := newEvent(uidBase, config.TrackGregorian, comp.NextGregorian.Year(), summary, comp.NextGregorian)
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}

		for _, occ := range rec.FutureOccurrences {
			summary := fmt.Sprintf(config.SummaryHebrew, rec.DisplayName(), occ.HebrewYear)
			e := newEvent(uidBase, config.TrackHebrew, occ.HebrewYear, summary, occ.Date)
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	if len(cal.Children) == 0 {
		// A valid empty VCALENDAR keeps clients from flagging the feed.
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// recordUID derives a stable per-record UID base so feed refreshes never
// churn event identities.
func recordUID(rec *record.BirthdayRecord) string {
	birth := fmt.Sprintf("%04d-%02d-%02d", rec.BirthYear, int(rec.BirthMonth), rec.BirthDay)
	input := fmt.Sprintf(config.FormatHashInput, rec.DisplayName(), birth, config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

func newEvent(uidBase, track string, year int, summary string, date time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, track, year, config.ICalDomain))
	event.Props.SetText(config.PropSummary, summary)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(date)
	event.Props.Set(dtStartProp)
	return event
}
