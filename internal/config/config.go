package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Sync/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Birthday Sync"
	AppID             = "com.github.chagai33.birthday-sync"
	KeyringService    = "com.github.chagai33.birthday-sync"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the local database.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion     = "version"
	FlagDebug       = "debug"
	FlagDB          = "db"
	FlagPort        = "port"
	FlagServiceURL  = "service-url"
	FlagImport      = "import"
	FlagTenant      = "tenant"
	FlagDescVersion = "Show application version and exit"
	FlagDescDebug   = "Enable debug logging to stdout"
	FlagDescDB      = "Path to the SQLite database file (empty = in-memory store)"
	FlagDescPort    = "Port for the local ICS feed server"
	FlagDescSvcURL  = "Base URL of the remote calendar service"
	FlagDescImport  = "Path to a .vcf file to import on startup"
	FlagDescTenant  = "Tenant identifier used for store scoping"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Calendar Tracks & Sync Field Values
// -----------------------------------------------------------------------------

// Track keys identify which calendar an external event belongs to.
// They are the keys of BirthdayRecord.EventIDs.
const (
	TrackHebrew    = "hebrew"
	TrackGregorian = "gregorian"
)

// Stored per-record sync status values. An empty string means settled/clean.
const (
	SyncStatusPending = "PENDING"
	SyncStatusError   = "ERROR"
	SyncStatusPartial = "PARTIAL_SYNC"
)

// PrimaryCalendarID is the sentinel identifying the account's personal
// default calendar. Syncing into it is always refused.
const PrimaryCalendarID = "primary"

// -----------------------------------------------------------------------------
// Defaults, Limits & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort       = "18080"
	DefaultTenantID   = "default"
	DefaultLeapYear   = 2000 // Leap year fallback for normalization
	MaxHebrewHorizon  = 10   // Bounded number of projected Hebrew occurrences
	HistoryCap        = 20   // Most-recent-first sync history entries kept per tenant
	SameDayTolerance  = 24 * time.Hour
	FallbackYearAhead = 1 // Years ahead used when a birth date is malformed

	// UID / Hash Generation
	UIDSalt         = "birthday-sync-v1-"
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%s-%d@%s"

	// Fingerprint canonicalization (order and separators are part of the contract).
	FingerprintSeparator = "|"
	GroupJoinSeparator   = ","
)

// -----------------------------------------------------------------------------
// Polling (fire-and-forget bulk operations)
// -----------------------------------------------------------------------------

const (
	PollInitialDelay = 2 * time.Second
	PollMaxDelay     = 30 * time.Second
	PollCeiling      = 5 * time.Minute
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Birthday Sync//Feed//EN"
	ICalCalName = "Birthdays"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "birthdaysync"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events exist.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Standards: vCard
// -----------------------------------------------------------------------------

const (
	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
	VCardNote = "NOTE"

	// Date layouts used for parsing vCard BDAY fields.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	BulkCallTimeout     = 3 * time.Minute // Batches against the remote service can be large
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 8 * 1024 * 1024 // Remote service replies are small JSON documents
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	AddrSeparator       = ":"
)

// Remote calendar-service routes.
const (
	PathStatus          = "/v1/status"
	PathSyncOne         = "/v1/records/%s/sync"
	PathSyncMany        = "/v1/records/sync-batch"
	PathRemove          = "/v1/records/%s/events"
	PathPreviewDeletion = "/v1/tenants/%s/deletion-preview"
	PathDeleteAll       = "/v1/tenants/%s/events"
	PathPreviewOrphans  = "/v1/tenants/%s/orphans-preview"
	PathCleanupOrphans  = "/v1/tenants/%s/orphans"
	PathCalendars       = "/v1/calendars"
	PathCalendar        = "/v1/calendars/%s"
	PathSelectCalendar  = "/v1/calendars/selection"
	PathDisconnect      = "/v1/connection"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderContentLength   = "Content-Length"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrNotConnected    = "no calendar account is connected"
	ErrPrimaryBlocked  = "the primary calendar cannot be used as a sync target"
	ErrSyncInFlight    = "a sync for this record is already in flight"
	ErrRecordNotFound  = "record not found"
	ErrEmptyBatch      = "no record ids submitted for bulk sync"
	ErrNoPreview       = "cleanup requires a prior orphan preview"
	ErrNothingToClean  = "orphan preview found nothing to clean"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrServiceCall     = "calendar service call failed"
	ErrDecodeResponse  = "failed to decode calendar service response"
	ErrEncodeRequest   = "failed to encode calendar service request"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrServerStartup   = "feed server startup failed"
	ErrServerShutdown  = "feed server shutdown failed"
	ErrPortRequired    = "feed server port is required"
	ErrFeedBuild       = "failed to build birthday feed"
	ErrNoBuilder       = "feed builder is required"
	ErrWriteResp       = "failed to write response body"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrOpenDB          = "failed to open database"
	ErrInitSchema      = "failed to initialize database schema"
	ErrScanRow         = "failed to scan database row"
	ErrEncodeJSON      = "failed to encode column payload"
	ErrDecodeJSON      = "failed to decode column payload"
	ErrCredentialSave  = "failed to store account credential"
	ErrCredentialLoad  = "failed to load account credential"
	ErrCredentialClear = "failed to clear account credential"
	ErrImportOpen      = "failed to open import file"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Messages
// -----------------------------------------------------------------------------

const (
	FallbackName = "Unknown"

	SummaryGregorian      = "Birthday: %s"
	SummaryGregorianAge   = "Birthday: %s (%d)"
	SummaryHebrew         = "Hebrew birthday: %s (%d)" // Name, Hebrew year being entered
	FailReasonUnspecified = "unspecified failure"

	MsgSyncStarted     = "Record sync started"
	MsgSyncDone        = "Record sync completed"
	MsgSyncFailed      = "Record sync failed"
	MsgBatchQueued     = "Bulk sync accepted by calendar service"
	MsgBatchSettled    = "Bulk operation settled"
	MsgPollStart       = "Status poll started"
	MsgPollStop        = "Status poll stopped"
	MsgRemoveNoop      = "Record already unsynced, nothing to remove"
	MsgRemoved         = "Record events removed"
	MsgConnected       = "Calendar account connected"
	MsgDisconnected    = "Calendar account disconnected"
	MsgSelectTentative = "Calendar selection applied optimistically"
	MsgSelectRollback  = "Calendar selection rolled back"
	MsgCalendarCreated = "Dedicated calendar created"
	MsgOrphanPreview   = "Orphan preview computed"
	MsgOrphanCleanup   = "Orphan cleanup completed"
	MsgDeletionPreview = "Deletion preview computed"
	MsgDeleteAllDone   = "Bulk delete completed"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping unusable birth date"
	MsgImported        = "vCard import finished"
	MsgFeedUpdated     = "Feed cache updated"
	MsgServerListen    = "Feed server listening"
	MsgServerStop      = "Shutting down feed server..."
	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyTenant    = "tenant"
	LogKeyRecord    = "record_id"
	LogKeyCalendar  = "calendar_id"
	LogKeyState     = "state"
	LogKeyCount     = "count"
	LogKeyQueued    = "queued"
	LogKeyFound     = "found"
	LogKeyDeleted   = "deleted"
	LogKeyFailed    = "failed"
	LogKeyName      = "name"
	LogKeyPort      = "port"
	LogKeyDelay     = "delay"
	LogKeyAttempt   = "attempt"
	LogKeyDuration  = "duration_ms"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyTotal     = "total"
	LogKeyImported  = "imported"
	LogKeySkipped   = "skipped"
	LogKeyFile      = "file"
	LogKeyStats     = "stats"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompDates     = "dates"
	CompOrch      = "orchestrator"
	CompCalSvc    = "calendar_service"
	CompStore     = "store"
	CompFeed      = "feed"
	CompImport    = "importer"
	CompReconcile = "reconcile"
	CompMain      = "main"
)
