package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/record"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// pollUntilSettled owns the status-poll loop after a fire-and-forget bulk
// operation. It refreshes the binding with a short exponential backoff and
// publishes each terminal state on the updates channel, stopping at the
// first settled status, on context cancellation, or at the ceiling.
//
// Bulk operations can outlive the session that started them; the service
// records the durable outcome, so abandoning a poll loses nothing.
func (o *Orchestrator) pollUntilSettled(ctx context.Context) {
	o.log.Debug(config.MsgPollStart)
	deadline := o.Clock.Now().Add(config.PollCeiling)
	delay := config.PollInitialDelay

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			o.log.Debug(config.MsgPollStop, slog.Any(config.LogKeyError, ctx.Err()))
			return
		case <-time.After(delay):
		}

		binding, err := o.Refresh(ctx)
		if err != nil {
			o.log.Warn(config.MsgPollStop,
				slog.Int(config.LogKeyAttempt, attempt),
				slog.Any(config.LogKeyError, err),
			)
			if !calsvc.IsRetryable(err) {
				return
			}
		} else if binding.Status.Terminal() {
			o.log.Info(config.MsgBatchSettled,
				slog.String(config.LogKeyState, string(binding.Status)),
				slog.Int(config.LogKeyAttempt, attempt),
			)
			o.publish(binding)
			return
		}

		if o.Clock.Now().After(deadline) {
			o.log.Warn(config.MsgPollStop, slog.Int(config.LogKeyAttempt, attempt))
			return
		}
		delay *= 2
		if delay > config.PollMaxDelay {
			delay = config.PollMaxDelay
		}
	}
}

// publish hands a refreshed binding to the updates channel without ever
// blocking the poll loop; a stale unread update is simply replaced.
func (o *Orchestrator) publish(b syncstate.Binding) {
	select {
	case o.updates <- b:
	default:
		select {
		case <-o.updates:
		default:
		}
		select {
		case o.updates <- b:
		default:
		}
	}
}

// singleHistory builds the audit record for a single-record operation.
func singleHistory(rec *record.BirthdayRecord, outcome calsvc.SyncOutcome, success bool, ts time.Time) syncstate.HistoryItem {
	item := syncstate.HistoryItem{
		Type:      syncstate.HistorySingle,
		Status:    syncstate.HistorySuccess,
		Total:     1,
		Timestamp: ts,
	}
	if success {
		item.SuccessCount = 1
		return item
	}
	item.Status = syncstate.HistoryFailed
	item.FailedCount = 1
	item.FailedItems = []syncstate.FailedItem{{
		Name:   rec.DisplayName(),
		Reason: firstNonEmpty(outcome.Error, config.FailReasonUnspecified),
	}}
	return item
}
