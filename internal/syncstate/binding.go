package syncstate

import (
	"github.com/Chagai33/birthday-sync/internal/config"
)

// Binding is the one active Google account connection of a tenant-owning
// user, together with the tenant-wide activity state and recent history.
//
// It is an owned value passed through service boundaries and refreshed by
// an explicit pull, never an ambient global.
type Binding struct {
	Connected bool `json:"isConnected"`

	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName"`

	AccountEmail   string `json:"accountEmail,omitempty"`
	AccountName    string `json:"accountName,omitempty"`
	AccountPicture string `json:"accountPicture,omitempty"`

	Status TenantStatus `json:"syncStatus"`

	// RecentActivity is most-recent-first and capped at config.HistoryCap.
	RecentActivity []HistoryItem `json:"recentActivity,omitempty"`
}

// Disconnected returns the default binding for a tenant with no active
// connection.
func Disconnected() Binding {
	return Binding{Status: TenantIdle}
}

// IsPrimaryCalendar reports whether the bound calendar is the account's
// personal default calendar, either via the "primary" sentinel or because
// the calendar id equals the account's own address.
func (b *Binding) IsPrimaryCalendar() bool {
	if b.CalendarID == config.PrimaryCalendarID {
		return true
	}
	return b.AccountEmail != "" && b.CalendarID == b.AccountEmail
}

// Disconnect clears every field, returning the binding to the disconnected
// default.
func (b *Binding) Disconnect() {
	*b = Disconnected()
}

// AppendHistory prepends an item and trims the oldest entries beyond the
// cap.
func (b *Binding) AppendHistory(item HistoryItem) {
	b.RecentActivity = append([]HistoryItem{item}, b.RecentActivity...)
	if len(b.RecentActivity) > config.HistoryCap {
		b.RecentActivity = b.RecentActivity[:config.HistoryCap]
	}
}
