// Package fingerprint computes the deterministic content hash used to
// detect drift between a record and what was last pushed to the calendar.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
)

// Fingerprint hashes the calendar-relevant, user-editable fields of a
// record: first name, last name, notes, the sorted group set and the
// calendar preference, in that fixed order. Sync bookkeeping fields are
// deliberately excluded; changing them never changes the fingerprint.
func Fingerprint(rec *record.BirthdayRecord) string {
	groups := append([]string(nil), rec.GroupIDs...)
	sort.Strings(groups)

	input := strings.Join([]string{
		rec.FirstName,
		rec.LastName,
		rec.Notes,
		strings.Join(groups, config.GroupJoinSeparator),
		rec.CalendarPreference,
	}, config.FingerprintSeparator)

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
