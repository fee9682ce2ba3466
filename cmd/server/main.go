/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the time-clock server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, TIMECLOCK_* variables, then flags)
  2. Build the slog logger
  3. Initialize SQLite store
  4. Build the punch engine over the store
  5. Start the snapshot scheduler
  6. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -db      SQLite database path, ":memory:" for an in-memory database
  -tz      IANA timezone for calendar days

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the snapshot scheduler
  4. Close database connection

EXAMPLES:
  ./server -db="./data/timeclock.db"
  TIMECLOCK_LOG_FORMAT=text ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/timeclock/api"
	"github.com/warp/timeclock/config"
	"github.com/warp/timeclock/logging"
	"github.com/warp/timeclock/punch"
	"github.com/warp/timeclock/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	tz := flag.String("tz", cfg.TimezoneName, "IANA timezone for calendar days")
	flag.Parse()

	cfg.Port, cfg.DBPath = *port, *dbPath
	if *tz != cfg.TimezoneName {
		cfg.TimezoneName = *tz
		if err := cfg.Resolve(); err != nil {
			return err
		}
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	engine := punch.NewEngine(store, store, cfg.Location)
	engine.Tolerance = cfg.GeoTolerance
	engine.JustifyOvertime = cfg.JustifyOvertime
	engine.Logger = logger

	scheduler := api.NewSnapshotScheduler(store, engine, cfg.SnapshotCron, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}

	handler := api.NewHandler(store, engine, logger)
	handler.Scheduler = scheduler

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.DBPath, "timezone", cfg.TimezoneName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		scheduler.Stop(context.Background())
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	scheduler.Stop(ctx)

	logger.Info("server stopped")
	return nil
}
