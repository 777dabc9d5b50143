// Package vcfimport turns a vCard stream into birthday records. Cards
// without a usable birth date are skipped, not fatal: imports should
// recover as much data as possible.
package vcfimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/dates"
	"github.com/Chagai33/birthday-sync/internal/hebcal"
	"github.com/Chagai33/birthday-sync/internal/record"
)

// Importer decodes vCards into records, projecting Hebrew fields through
// the oracle when one is configured.
type Importer struct {
	Clock  dates.Clock
	Oracle hebcal.Oracle // optional; nil leaves Hebrew fields empty
}

// Import reads the stream to EOF and returns the decoded records for the
// tenant. Malformed cards and unusable dates are logged and skipped.
func (im *Importer) Import(ctx context.Context, r io.Reader, tenantID string) ([]record.BirthdayRecord, error) {
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompImport),
		slog.String(config.LogKeyTenant, tenantID),
	)

	now := im.Clock.Now()
	decoder := vcard.NewDecoder(r)
	stats := struct{ processed, imported, skipped int }{}
	var records []record.BirthdayRecord

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			stats.skipped++
			continue
		}

		stats.processed++
		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		birthDate, err := parseDate(bday.Value)
		if err != nil {
			log.Debug(config.MsgSkippedDate, config.LogKeyError, err)
			stats.skipped++
			continue
		}

		rec := record.BirthdayRecord{
			TenantID:   tenantID,
			BirthYear:  birthDate.Year(),
			BirthMonth: birthDate.Month(),
			BirthDay:   birthDate.Day(),
		}
		rec.FirstName, rec.LastName = splitName(cardName(card))
		if note := card.Get(config.VCardNote); note != nil {
			rec.Notes = note.Value
		}

		hebcal.Project(im.Oracle, &rec, now, config.MaxHebrewHorizon)
		records = append(records, rec)
		stats.imported++
	}

	log.Info(config.MsgImported,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyImported, stats.imported),
			slog.Int(config.LogKeySkipped, stats.skipped),
		),
	)
	return records, nil
}

// cardName applies the FN (formatted) > N (structured) > fallback
// strategy.
func cardName(card vcard.Card) string {
	if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
		return fn.Value
	}
	if n := card.Get(config.VCardN); n != nil && n.Value != "" {
		return n.Value
	}
	return config.FallbackName
}

// splitName breaks a display name at the last space. Single-token names
// become a first name only.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], strings.TrimSpace(name[idx+1:])
}

// parseDate handles the full-date vCard BDAY formats. Year-less truncated
// forms (--MM-DD) are rejected: without a birth year neither age nor the
// Hebrew projection is meaningful.
func parseDate(value string) (time.Time, error) {
	formats := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: %q", config.ErrDateParse, value)
}
