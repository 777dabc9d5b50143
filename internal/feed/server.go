package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// Builder renders the current feed body. The server calls it through
// Refresh before serving and again on every rebuild tick, so ages and
// countdowns stay current without restarting the process.
type Builder func(ctx context.Context) ([]byte, error)

// snapshot is one immutable rendered feed plus its caching metadata.
type snapshot struct {
	body    []byte
	etag    string
	modTime time.Time
}

func (s *snapshot) lastModified() string {
	return s.modTime.Format(http.TimeFormat)
}

// Server serves the rendered ICS feed over HTTP, rebuilding it on the
// same cadence the feed advertises to subscribers (REFRESH-INTERVAL), so
// a client never fetches data staler than one interval.
type Server struct {
	// current uses atomic.Pointer for lock-free reads: calendar clients
	// poll often, rebuilds happen hourly.
	current atomic.Pointer[snapshot]

	Port    string
	Build   Builder
	Rebuild time.Duration // 0 selects config.DefaultICalRefresh
}

// NewServer creates a feed server bound to a port, rendering through the
// given builder.
func NewServer(port string, build Builder) *Server {
	return &Server{Port: port, Build: build, Rebuild: config.DefaultICalRefresh}
}

// Refresh renders the feed and installs it atomically. Concurrent
// readers see either the old or the new complete snapshot, never a
// partial state.
func (s *Server) Refresh(ctx context.Context) error {
	if s.Build == nil {
		return errors.New(config.ErrNoBuilder)
	}
	body, err := s.Build(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrFeedBuild, err)
	}

	sum := sha256.Sum256(body)
	snap := &snapshot{
		body:    body,
		etag:    fmt.Sprintf(config.FormatETag, hex.EncodeToString(sum[:])),
		modTime: time.Now().UTC(),
	}
	// A rebuild that produced identical bytes keeps the previous
	// Last-Modified, so conditional requests keep answering 304 across
	// rebuild ticks.
	if prev := s.current.Load(); prev != nil && prev.etag == snap.etag {
		snap.modTime = prev.modTime
	}
	s.current.Store(snap)

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompFeed,
		config.LogKeySizeBytes, len(body),
		config.LogKeyETag, snap.etag,
	)
	return nil
}

// Start runs the HTTP server and the periodic rebuild loop, blocking
// until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.serveFeed)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompFeed,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	interval := s.Rebuild
	if interval <= 0 {
		interval = config.DefaultICalRefresh
	}
	rebuild := time.NewTicker(interval)
	defer rebuild.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompFeed)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
			}
			return nil

		case <-rebuild.C:
			// A failed rebuild keeps serving the last good snapshot.
			if err := s.Refresh(ctx); err != nil {
				slog.Warn(config.ErrFeedBuild,
					config.LogKeyComponent, config.CompFeed,
					config.LogKeyError, err,
				)
			}

		case err := <-serverError:
			return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
		}
	}
}

// serveFeed answers GET and HEAD with conditional-request support.
func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := s.current.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, snap.etag)
	w.Header().Set(config.HeaderLastModified, snap.lastModified())

	if notModified(r, snap) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// Explicit Content-Length so HEAD responses report the feed size.
	w.Header().Set(config.HeaderContentLength, strconv.Itoa(len(snap.body)))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if _, err := w.Write(snap.body); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompFeed,
			config.LogKeyError, err,
		)
	}
}

// notModified evaluates If-None-Match first, then falls back to
// If-Modified-Since at second precision.
func notModified(r *http.Request, snap *snapshot) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		return match == snap.etag
	}
	since := r.Header.Get(config.HeaderIfModifiedSince)
	if since == "" {
		return false
	}
	clientTime, err := time.Parse(http.TimeFormat, since)
	if err != nil {
		return false
	}
	return !snap.modTime.Truncate(time.Second).After(clientTime)
}
