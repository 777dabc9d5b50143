package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/Chagai33/birthday-sync/internal/calsvc"
	"github.com/Chagai33/birthday-sync/internal/config"
	"github.com/Chagai33/birthday-sync/internal/credentials"
	"github.com/Chagai33/birthday-sync/internal/dates"
	"github.com/Chagai33/birthday-sync/internal/feed"
	"github.com/Chagai33/birthday-sync/internal/hebcal"
	"github.com/Chagai33/birthday-sync/internal/orchestrator"
	"github.com/Chagai33/birthday-sync/internal/store"
	"github.com/Chagai33/birthday-sync/internal/vcfimport"
)

// main delegates to runMain so deferred cleanups run before the process
// terminates; os.Exit() does not run defers.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit
// codes.
func runMain() int {
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	dbPath := flag.String(config.FlagDB, "", config.FlagDescDB)
	port := flag.String(config.FlagPort, config.DefaultPort, config.FlagDescPort)
	serviceURL := flag.String(config.FlagServiceURL, "", config.FlagDescSvcURL)
	importPath := flag.String(config.FlagImport, "", config.FlagDescImport)
	tenantID := flag.String(config.FlagTenant, config.DefaultTenantID, config.FlagDescTenant)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	if err := run(ctx, *dbPath, *port, *serviceURL, *importPath, *tenantID); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run opens the store, performs an optional vCard import, refreshes the
// calendar binding when a service is configured, then renders the feed and
// serves it until the context is cancelled.
func run(ctx context.Context, dbPath, port, serviceURL, importPath, tenantID string) error {
	st, closeStore, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	clock := dates.RealClock{}

	if importPath != "" {
		if err := importFile(ctx, st, clock, importPath, tenantID); err != nil {
			return err
		}
	}

	if serviceURL != "" {
		if err := refreshBinding(ctx, st, clock, serviceURL, tenantID); err != nil {
			return err
		}
	}

	srv := feed.NewServer(port, func(ctx context.Context) ([]byte, error) {
		records, err := st.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return feed.BuildICS(records, clock.Now())
	})
	if err := srv.Refresh(ctx); err != nil {
		return err
	}
	return srv.Start(ctx)
}

// openStore selects SQLite or in-memory persistence.
func openStore(dbPath string) (store.Store, func(), error) {
	if dbPath == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// refreshBinding pulls the tenant's calendar connection state from the
// remote service and persists it, so the sync state shown alongside the
// feed is current from the first request. A connection failure here is
// logged, not fatal: the feed works offline.
func refreshBinding(ctx context.Context, st store.Store, clock dates.Clock, serviceURL, tenantID string) error {
	client, err := calsvc.NewClient(serviceURL, nil)
	if err != nil {
		return err
	}

	orch := orchestrator.New(st, st, client, clock, tenantID, tenantID)
	orch.Credentials = credentials.NewStore()

	binding, err := orch.Refresh(ctx)
	if err != nil {
		slog.Warn(config.ErrServiceCall,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return nil
	}

	slog.Info(config.MsgConnected,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyCalendar, binding.CalendarID,
		config.LogKeyState, string(binding.Status),
	)
	return nil
}

// importFile loads a vCard file into the store, projecting Hebrew fields
// through the conversion oracle.
func importFile(ctx context.Context, st store.Store, clock dates.Clock, path, tenantID string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrImportOpen, err)
	}
	defer func() { _ = f.Close() }()

	importer := &vcfimport.Importer{Clock: clock, Oracle: hebcal.HdateOracle{}}
	records, err := importer.Import(ctx, f, tenantID)
	if err != nil {
		return err
	}
	for i := range records {
		if err := st.Put(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
