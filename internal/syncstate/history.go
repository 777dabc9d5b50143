package syncstate

import "time"

// HistoryType distinguishes single-record from batch operations.
type HistoryType string

const (
	HistorySingle HistoryType = "SINGLE"
	HistoryBatch  HistoryType = "BATCH"
)

// HistoryStatus is the terminal outcome recorded for an operation.
// PARTIAL is a distinct terminal state, not an error: some records
// succeeded and some failed.
type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "SUCCESS"
	HistoryPartial HistoryStatus = "PARTIAL"
	HistoryFailed  HistoryStatus = "FAILED"
)

// FailedItem names one record that failed within an operation.
type FailedItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// HistoryItem is an immutable audit record of a sync, cleanup or delete
// operation. Items are appended most-recent-first and trimmed by the store.
type HistoryItem struct {
	ID           string        `json:"id"`
	Type         HistoryType   `json:"type"`
	Status       HistoryStatus `json:"status"`
	Total        int           `json:"total"`
	SuccessCount int           `json:"successCount"`
	FailedCount  int           `json:"failedCount"`
	FailedItems  []FailedItem  `json:"failedItems,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// SummarizeBatch builds the audit record for a batch with the given
// success and failure counts. Per-record failure detail is optional;
// bulk deletes only report counts.
func SummarizeBatch(success, failed int, failures []FailedItem, ts time.Time) HistoryItem {
	item := HistoryItem{
		Type:         HistoryBatch,
		Total:        success + failed,
		SuccessCount: success,
		FailedCount:  failed,
		FailedItems:  failures,
		Timestamp:    ts,
	}
	switch {
	case failed == 0:
		item.Status = HistorySuccess
	case success == 0:
		item.Status = HistoryFailed
	default:
		item.Status = HistoryPartial
	}
	return item
}
