package calsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// TestNewClient_Validation rejects malformed and non-HTTP base URLs.
func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("ftp://example.com", nil)
	assert.ErrorContains(t, err, config.ErrProtocol)

	_, err = NewClient("://broken", nil)
	require.Error(t, err)

	c, err := NewClient("https://calendar.example.com", nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

// TestClient_StatusMapping verifies the failure taxonomy: 429 and 5xx are
// transient and retryable, other non-2xx statuses are fatal.
func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"Rate limited", http.StatusTooManyRequests, true},
		{"Upstream error", http.StatusInternalServerError, true},
		{"Bad gateway", http.StatusBadGateway, true},
		{"Not found", http.StatusNotFound, false},
		{"Forbidden", http.StatusForbidden, false},
		{"Gone calendar", http.StatusGone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, srv.Client())
			require.NoError(t, err)

			_, err = c.SyncOne(context.Background(), "rec-1")
			require.Error(t, err)
			assert.Equal(t, tt.retryable, IsRetryable(err))

			if tt.retryable {
				var te *TransientError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.status, te.StatusCode)
			} else {
				var fe *FatalError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.status, fe.StatusCode)
			}
		})
	}
}

// TestClient_NetworkFailure verifies connection errors surface as
// transient.
func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // deliberately unreachable

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.SyncOne(context.Background(), "rec-1")
	require.Error(t, err)
	assert.True(t, IsRetryable(err), "a refused connection must be retryable")
}

// TestClient_Timeout verifies a deadline expiry surfaces as a retryable
// transient failure, not as a bare context error.
func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.SyncMany(ctx, []string{"a"})
	require.Error(t, err)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.True(t, IsRetryable(err), "a timed-out call must stay retryable")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestClient_ContextCancellation verifies a cancelled context surfaces as
// the context error, not as a service failure.
func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.SyncOne(ctx, "rec-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryable(err))
}

// TestClient_SyncOne verifies the request shape and response decoding of
// the single-record sync call.
func TestClient_SyncOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, fmt.Sprintf(config.PathSyncOne, "rec-1"), r.URL.Path)
		assert.Equal(t, config.UserAgent, r.Header.Get(config.HeaderUserAgent))

		_ = json.NewEncoder(w).Encode(SyncOutcome{
			Success:  true,
			EventIDs: map[string]string{config.TrackHebrew: "evt-1"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	outcome, err := c.SyncOne(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "evt-1", outcome.EventIDs[config.TrackHebrew])
}

// TestClient_SyncMany verifies the batch payload and acknowledgment.
func TestClient_SyncMany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, config.PathSyncMany, r.URL.Path)
		assert.Equal(t, config.MimeJSON, r.Header.Get(config.HeaderContentType))

		var in struct {
			RecordIDs []string `json:"recordIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, []string{"a", "b"}, in.RecordIDs)

		_ = json.NewEncoder(w).Encode(BulkAccepted{Accepted: true, QueuedCount: 2})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	accepted, err := c.SyncMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)
	assert.Equal(t, 2, accepted.QueuedCount)
}

// TestClient_GetStatus verifies the binding decode including the wire field
// names.
func TestClient_GetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.PathStatus, r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("user"))
		_, _ = w.Write([]byte(`{
            "isConnected": true,
            "calendarId": "cal_abc",
            "calendarName": "Birthdays",
            "syncStatus": "IN_PROGRESS"
        }`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	b, err := c.GetStatus(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, b.Connected)
	assert.Equal(t, "cal_abc", b.CalendarID)
	assert.False(t, b.Status.Terminal())
}

// TestClient_RoutePlumbing spot-checks method and path for the remaining
// operations.
func TestClient_RoutePlumbing(t *testing.T) {
	type call func(c *Client) error

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		invoke call
	}{
		{
			name: "Remove", method: http.MethodDelete,
			path: fmt.Sprintf(config.PathRemove, "rec-1"), body: `{"success": true}`,
			invoke: func(c *Client) error { _, err := c.Remove(context.Background(), "rec-1"); return err },
		},
		{
			name: "PreviewOrphans", method: http.MethodGet,
			path: fmt.Sprintf(config.PathPreviewOrphans, "t1"), body: `{"foundCount": 3}`,
			invoke: func(c *Client) error { _, err := c.PreviewOrphans(context.Background(), "t1"); return err },
		},
		{
			name: "CleanupOrphans", method: http.MethodDelete,
			path: fmt.Sprintf(config.PathCleanupOrphans, "t1"), body: `{"deletedCount": 3}`,
			invoke: func(c *Client) error { _, err := c.CleanupOrphans(context.Background(), "t1"); return err },
		},
		{
			name: "DeleteAll", method: http.MethodDelete,
			path: fmt.Sprintf(config.PathDeleteAll, "t1"), body: `{"totalDeleted": 5}`,
			invoke: func(c *Client) error { _, err := c.DeleteAll(context.Background(), "t1"); return err },
		},
		{
			name: "ListCalendars", method: http.MethodGet,
			path: config.PathCalendars, body: `[]`,
			invoke: func(c *Client) error { _, err := c.ListCalendars(context.Background()); return err },
		},
		{
			name: "SelectCalendar", method: http.MethodPut,
			path: config.PathSelectCalendar, body: ``,
			invoke: func(c *Client) error { return c.SelectCalendar(context.Background(), "cal_abc", "Birthdays") },
		},
		{
			name: "Disconnect", method: http.MethodDelete,
			path: config.PathDisconnect, body: ``,
			invoke: func(c *Client) error { return c.Disconnect(context.Background()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, nil)
			require.NoError(t, err)
			assert.NoError(t, tt.invoke(c))
		})
	}
}

// TestErrorTaxonomy_Unwrap verifies wrapped causes stay reachable through
// errors.Is.
func TestErrorTaxonomy_Unwrap(t *testing.T) {
	cause := errors.New("boom")

	te := &TransientError{Op: "syncOne", Err: cause}
	assert.ErrorIs(t, te, cause)
	assert.Contains(t, te.Error(), "syncOne")

	fe := &FatalError{Op: "remove", StatusCode: http.StatusGone}
	assert.Contains(t, fe.Error(), "410")
	assert.False(t, IsRetryable(fe))
}
