package calsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/syncstate"
)

// Client implements Service over the calendar service's JSON HTTP API.
// The supplied http.Client must already carry the account credential
// (an authorized transport); this package never touches tokens.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *slog.Logger
}

// NewClient validates the base URL and builds a client with configured
// timeouts. Passing httpClient nil selects a default client.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.HTTPTimeout}
	}
	return &Client{
		baseURL: u,
		http:    httpClient,
		log: slog.With(
			slog.String(config.LogKeyComponent, config.CompCalSvc),
			slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host),
		),
	}, nil
}

var _ Service = (*Client)(nil)

// do performs one JSON round trip. Responses are size-bounded; non-2xx
// statuses map onto the failure taxonomy: 429 and 5xx are transient,
// anything else fatal.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrEncodeRequest, err)
		}
		body = bytes.NewReader(payload)
	}

	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if in != nil {
		req.Header.Set(config.HeaderContentType, config.MimeJSON)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Only caller cancellation surfaces as a bare context error. A
		// deadline expiry is a timeout, and timeouts are transient.
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &TransientError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn(config.ErrServiceCall,
			slog.String(config.LogKeyURL, path),
			slog.Int(config.LogKeyStatus, resp.StatusCode),
		)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &TransientError{Op: op, StatusCode: resp.StatusCode}
		}
		return &FatalError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	limited := io.LimitReader(resp.Body, config.MaxHTTPResponseSize)
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDecodeResponse, err)
	}
	return nil
}

// GetStatus implements Service.
func (c *Client) GetStatus(ctx context.Context, userID string) (syncstate.Binding, error) {
	var b syncstate.Binding
	q := url.Values{"user": {userID}}
	if err := c.do(ctx, "getStatus", http.MethodGet, config.PathStatus, q, nil, &b); err != nil {
		return syncstate.Binding{}, err
	}
	return b, nil
}

// SyncOne implements Service.
func (c *Client) SyncOne(ctx context.Context, recordID string) (SyncOutcome, error) {
	var out SyncOutcome
	path := fmt.Sprintf(config.PathSyncOne, recordID)
	if err := c.do(ctx, "syncOne", http.MethodPost, path, nil, nil, &out); err != nil {
		return SyncOutcome{}, err
	}
	return out, nil
}

// SyncMany implements Service. The enqueue itself is quick, but the bound
// is generous because the service validates the whole batch up front.
func (c *Client) SyncMany(ctx context.Context, recordIDs []string) (BulkAccepted, error) {
	ctx, cancel := context.WithTimeout(ctx, config.BulkCallTimeout)
	defer cancel()

	var out BulkAccepted
	in := struct {
		RecordIDs []string `json:"recordIds"`
	}{RecordIDs: recordIDs}
	if err := c.do(ctx, "syncMany", http.MethodPost, config.PathSyncMany, nil, in, &out); err != nil {
		return BulkAccepted{}, err
	}
	return out, nil
}

// Remove implements Service.
func (c *Client) Remove(ctx context.Context, recordID string) (RemoveResult, error) {
	var out RemoveResult
	path := fmt.Sprintf(config.PathRemove, recordID)
	if err := c.do(ctx, "remove", http.MethodDelete, path, nil, nil, &out); err != nil {
		return RemoveResult{}, err
	}
	return out, nil
}

// PreviewDeletion implements Service.
func (c *Client) PreviewDeletion(ctx context.Context, tenantID string) (DeletionPreview, error) {
	var out DeletionPreview
	path := fmt.Sprintf(config.PathPreviewDeletion, tenantID)
	if err := c.do(ctx, "previewDeletion", http.MethodGet, path, nil, nil, &out); err != nil {
		return DeletionPreview{}, err
	}
	return out, nil
}

// DeleteAll implements Service.
func (c *Client) DeleteAll(ctx context.Context, tenantID string) (DeleteAllResult, error) {
	ctx, cancel := context.WithTimeout(ctx, config.BulkCallTimeout)
	defer cancel()

	var out DeleteAllResult
	path := fmt.Sprintf(config.PathDeleteAll, tenantID)
	if err := c.do(ctx, "deleteAll", http.MethodDelete, path, nil, nil, &out); err != nil {
		return DeleteAllResult{}, err
	}
	return out, nil
}

// PreviewOrphans implements Service.
func (c *Client) PreviewOrphans(ctx context.Context, tenantID string) (OrphanPreview, error) {
	var out OrphanPreview
	path := fmt.Sprintf(config.PathPreviewOrphans, tenantID)
	if err := c.do(ctx, "previewOrphans", http.MethodGet, path, nil, nil, &out); err != nil {
		return OrphanPreview{}, err
	}
	return out, nil
}

// CleanupOrphans implements Service.
func (c *Client) CleanupOrphans(ctx context.Context, tenantID string) (CleanupResult, error) {
	ctx, cancel := context.WithTimeout(ctx, config.BulkCallTimeout)
	defer cancel()

	var out CleanupResult
	path := fmt.Sprintf(config.PathCleanupOrphans, tenantID)
	if err := c.do(ctx, "cleanupOrphans", http.MethodDelete, path, nil, nil, &out); err != nil {
		return CleanupResult{}, err
	}
	return out, nil
}

// ListCalendars implements Service.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var out []CalendarInfo
	if err := c.do(ctx, "listCalendars", http.MethodGet, config.PathCalendars, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCalendar implements Service.
func (c *Client) CreateCalendar(ctx context.Context, name string) (CreatedCalendar, error) {
	var out CreatedCalendar
	in := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, "createCalendar", http.MethodPost, config.PathCalendars, nil, in, &out); err != nil {
		return CreatedCalendar{}, err
	}
	return out, nil
}

// SelectCalendar implements Service.
func (c *Client) SelectCalendar(ctx context.Context, id, name string) error {
	in := struct {
		CalendarID   string `json:"calendarId"`
		CalendarName string `json:"calendarName"`
	}{CalendarID: id, CalendarName: name}
	return c.do(ctx, "selectCalendar", http.MethodPut, config.PathSelectCalendar, nil, in, nil)
}

// DeleteCalendar implements Service.
func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	path := fmt.Sprintf(config.PathCalendar, id)
	return c.do(ctx, "deleteCalendar", http.MethodDelete, path, nil, nil, nil)
}

// Disconnect implements Service.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, "disconnect", http.MethodDelete, config.PathDisconnect, nil, nil, nil)
}
