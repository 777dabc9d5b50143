package calsvc

import (
	"errors"
	"fmt"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// Guard sentinels. Both fail fast: the user must reconnect or switch
// calendars, retrying without that changes nothing.
var (
	ErrNotConnected           = errors.New(config.ErrNotConnected)
	ErrPrimaryCalendarBlocked = errors.New(config.ErrPrimaryBlocked)
)

// TransientError marks a retryable failure: network trouble, rate limits,
// upstream 5xx. The UI exposes a manual retry affordance rather than
// auto-retrying, to avoid duplicate event creation.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d", config.ErrServiceCall, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", config.ErrServiceCall, e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks an unrecoverable failure, such as the bound calendar
// having been deleted externally. Recovery requires user action: re-select
// a calendar or reset the affected record's sync metadata.
type FatalError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d", config.ErrServiceCall, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", config.ErrServiceCall, e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure may be resolved by re-invoking
// the same operation.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
