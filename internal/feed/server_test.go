package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// feedSource is a settable builder backing the server under test.
type feedSource struct {
	mu   sync.Mutex
	body []byte
	err  error
}

func (f *feedSource) set(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *feedSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *feedSource) build(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newTestServer(t *testing.T, initial []byte) (*Server, *feedSource) {
	t.Helper()
	src := &feedSource{body: initial}
	srv := NewServer("0", src.build) // Port irrelevant for handler tests
	if initial != nil {
		require.NoError(t, srv.Refresh(context.Background()))
	}
	return srv, src
}

// TestServeFeed_Content verifies the standard headers and body once a
// snapshot is installed.
func TestServeFeed_Content(t *testing.T) {
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")
	srv, _ := newTestServer(t, expectedICS)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.serveFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.Equal(t, strconv.Itoa(len(expectedICS)), resp.Header.Get(config.HeaderContentLength))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestServeFeed_ETagCaching verifies If-None-Match round trips as a 304.
func TestServeFeed_ETagCaching(t *testing.T) {
	srv, _ := newTestServer(t, []byte("DATA_VERSION_1"))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	srv.serveFeed(w1, req1)

	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()
	srv.serveFeed(w2, req2)

	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")
}

// TestServeFeed_IfModifiedSince verifies the date-based fallback when the
// client sends no ETag.
func TestServeFeed_IfModifiedSince(t *testing.T) {
	srv, _ := newTestServer(t, []byte("DATA_VERSION_1"))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	srv.serveFeed(w1, req1)

	lastMod := w1.Result().Header.Get(config.HeaderLastModified)
	require.NotEmpty(t, lastMod)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(config.HeaderIfModifiedSince, lastMod)
	w2 := httptest.NewRecorder()
	srv.serveFeed(w2, req2)

	assert.Equal(t, http.StatusNotModified, w2.Result().StatusCode)
}

// TestServeFeed_ETagInvalidation verifies a content change after a rebuild
// makes clients refetch.
func TestServeFeed_ETagInvalidation(t *testing.T) {
	srv, src := newTestServer(t, []byte("DATA_VERSION_1"))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	srv.serveFeed(w1, req1)
	etag1 := w1.Result().Header.Get(config.HeaderETag)

	src.set([]byte("DATA_VERSION_2"))
	require.NoError(t, srv.Refresh(context.Background()))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag1)
	w2 := httptest.NewRecorder()
	srv.serveFeed(w2, req2)

	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp2.StatusCode, "stale ETag must trigger a full response")
	assert.NotEqual(t, etag1, resp2.Header.Get(config.HeaderETag))
}

// TestRefresh_UnchangedContentKeepsValidators verifies a rebuild that
// renders identical bytes leaves both cache validators untouched, so
// subscribed clients keep getting 304s across rebuild ticks.
func TestRefresh_UnchangedContentKeepsValidators(t *testing.T) {
	srv, _ := newTestServer(t, []byte("STABLE_DATA"))
	first := srv.current.Load()
	require.NotNil(t, first)

	require.NoError(t, srv.Refresh(context.Background()))
	second := srv.current.Load()

	assert.Equal(t, first.etag, second.etag)
	assert.Equal(t, first.modTime, second.modTime, "unchanged content must not advance Last-Modified")
}

// TestRefresh_BuilderError verifies a failed rebuild reports the error and
// keeps serving the last good snapshot.
func TestRefresh_BuilderError(t *testing.T) {
	srv, src := newTestServer(t, []byte("GOOD_DATA"))

	src.fail(errors.New("store unavailable"))
	err := srv.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrFeedBuild)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.serveFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte("GOOD_DATA"), body, "the last good snapshot survives a failed rebuild")
}

// TestRefresh_RequiresBuilder pins the misconfiguration error.
func TestRefresh_RequiresBuilder(t *testing.T) {
	srv := NewServer("0", nil)
	err := srv.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrNoBuilder)
}

// TestServeFeed_MethodNotAllowed ensures strictly GET and HEAD are
// accepted.
func TestServeFeed_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	srv.serveFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderAllow))
}

// TestServeFeed_Head verifies HEAD returns headers and the feed size
// without a body.
func TestServeFeed_Head(t *testing.T) {
	srv, _ := newTestServer(t, []byte("SOME_DATA"))

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	w := httptest.NewRecorder()
	srv.serveFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.Equal(t, strconv.Itoa(len("SOME_DATA")), resp.Header.Get(config.HeaderContentLength))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

// TestServeFeed_Initializing verifies the 503 behavior before the first
// successful refresh.
func TestServeFeed_Initializing(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.serveFeed(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// TestServer_ConcurrentAccess hammers the snapshot from rebuilders and
// readers; meaningful under -race.
func TestServer_ConcurrentAccess(t *testing.T) {
	srv, src := newTestServer(t, []byte("INITIAL"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			src.set([]byte("UPDATED_CONTENT"))
			assert.NoError(t, srv.Refresh(context.Background()))
		}()
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			srv.serveFeed(w, req)
			assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		}()
	}
	wg.Wait()
}

// TestServer_StartRequiresPort pins the misconfiguration error.
func TestServer_StartRequiresPort(t *testing.T) {
	srv := NewServer("", nil)
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPortRequired)
}
