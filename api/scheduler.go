/*
scheduler.go - Nightly daily-aggregate snapshots

PURPOSE:
  Once a day, after midnight in the configured zone, reconciles the day
  that just ended for every user and stores its DailyAggregate. Payroll
  reads the frozen snapshots instead of re-reconciling months of punches.

DESIGN:
  - Cron spec evaluated in the engine's zone (robfig/cron/v3)
  - One engine report per user for a single-day period
  - Users without a complete interval that day get no snapshot
  - Re-running a day replaces its snapshots (upsert on user + date)
  - Manual edits made after the snapshot are picked up by re-running

USAGE:
  scheduler := NewSnapshotScheduler(store, engine, "5 0 * * *", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop(ctx)

SEE ALSO:
  - handlers.go: TriggerSnapshots endpoint (manual run)
  - store/sqlite: daily_snapshots table
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/warp/timeclock/logging"
	"github.com/warp/timeclock/punch"
	"github.com/warp/timeclock/store/sqlite"
)

// SnapshotScheduler stores yesterday's aggregates on a cron schedule.
type SnapshotScheduler struct {
	Store  *sqlite.Store
	Engine *punch.Engine
	Spec   string
	Logger *slog.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

// NewSnapshotScheduler creates a scheduler. An empty spec disables Start.
func NewSnapshotScheduler(store *sqlite.Store, engine *punch.Engine, spec string, logger *slog.Logger) *SnapshotScheduler {
	return &SnapshotScheduler{Store: store, Engine: engine, Spec: spec, Logger: logger}
}

func (s *SnapshotScheduler) log(ctx context.Context, op string) *slog.Logger {
	return logging.Component(ctx, s.Logger, "api.snapshots", op)
}

func (s *SnapshotScheduler) now() time.Time {
	if s.Engine.Now != nil {
		return s.Engine.Now()
	}
	return time.Now()
}

func (s *SnapshotScheduler) zone() *time.Location {
	if s.Engine.Location != nil {
		return s.Engine.Location
	}
	return time.UTC
}

// Start registers the job and starts the cron runner.
func (s *SnapshotScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Spec == "" {
		s.log(context.Background(), "start").Info("snapshot scheduler disabled")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(s.zone()))
	if _, err := c.AddFunc(s.Spec, s.run); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.Spec, err)
	}
	c.Start()
	s.cron = c

	s.log(context.Background(), "start").Info("snapshot scheduler started", "spec", s.Spec)
	return nil
}

// Stop stops the runner and waits for a running job, or for ctx.
func (s *SnapshotScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.cron = nil
	s.log(ctx, "stop").Info("snapshot scheduler stopped")
}

func (s *SnapshotScheduler) run() {
	ctx := context.Background()
	date := s.Yesterday()
	n, err := s.SnapshotDay(ctx, date)
	if err != nil {
		s.log(ctx, "run").Error("snapshot run failed", "date", date.String(), "error", err)
		return
	}
	s.log(ctx, "run").Info("snapshot run completed", "date", date.String(), "snapshots", n)
}

// Yesterday is the local date before today in the engine's zone.
func (s *SnapshotScheduler) Yesterday() punch.Date {
	return punch.DateOf(s.now(), s.zone()).AddDays(-1)
}

// SnapshotDay stores date's aggregate for every user and returns how many
// were written. A failing user is logged and skipped; the first error is
// returned after all users were tried.
func (s *SnapshotScheduler) SnapshotDay(ctx context.Context, date punch.Date) (int, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	day := punch.Period{Start: date, End: date}
	var firstErr error
	written := 0
	for _, u := range users {
		rep, err := s.Engine.Report(ctx, punch.UserID(u.ID), day, punch.GranularityDay)
		if err == nil {
			written, err = s.save(ctx, rep, written)
		}
		if err != nil {
			s.log(ctx, "snapshot").Warn("user skipped", "user_id", u.ID, "date", date.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return written, firstErr
}

func (s *SnapshotScheduler) save(ctx context.Context, rep punch.Report, written int) (int, error) {
	takenAt := s.now().UTC()
	for _, d := range rep.Days {
		snap := punch.Snapshot{ID: uuid.NewString(), TakenAt: takenAt, DailyAggregate: d}
		if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
			return written, fmt.Errorf("save snapshot: %w", err)
		}
		written++
	}
	return written, nil
}
