// ABOUTME: Cron-driven bulk diagnostics runs across every machine
// ABOUTME: Overlapping runs are skipped; each run's counts are logged

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/2389/predictera-console/internal/api"
)

// parser accepts five-field specs and descriptors such as "@hourly" or
// "@every 15m".
var parser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// Runner starts a bulk diagnostics run.
type Runner interface {
	Bulk(ctx context.Context) (*api.BulkDiagnostics, error)
}

// Result is the outcome of one scheduled run.
type Result struct {
	Started time.Time
	Summary *api.BulkDiagnostics
	Err     error
}

// Scheduler runs bulk diagnostics on a cron schedule.
type Scheduler struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
	cron    *cronlib.Cron

	mu       sync.Mutex
	onResult func(Result)
	entry    cronlib.EntryID
}

// Validate reports whether spec is a usable schedule.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// New creates a scheduler. timeout bounds each run (0 = unbounded).
func New(runner Runner, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		runner:  runner,
		timeout: timeout,
		logger:  logger,
		cron: cronlib.New(
			cronlib.WithParser(parser),
			cronlib.WithLogger(cl),
			cronlib.WithChain(cronlib.Recover(cl), cronlib.SkipIfStillRunning(cl)),
		),
	}
}

// OnResult registers fn to receive every scheduled run's outcome.
func (s *Scheduler) OnResult(fn func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Schedule replaces the current schedule with spec.
func (s *Scheduler) Schedule(spec string) error {
	if err := Validate(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("adding schedule: %w", err)
	}
	s.entry = id
	s.logger.Info("bulk diagnostics scheduled", "spec", spec)
	return nil
}

// Next returns the next planned run, or the zero time when nothing is
// scheduled or the scheduler is not started.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Start begins firing scheduled runs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire() {
	started := time.Now()
	summary, err := s.RunOnce(context.Background())

	s.mu.Lock()
	fn := s.onResult
	s.mu.Unlock()
	if fn != nil {
		fn(Result{Started: started, Summary: summary, Err: err})
	}
}

// RunOnce performs one bulk run now.
func (s *Scheduler) RunOnce(ctx context.Context) (*api.BulkDiagnostics, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := s.runner.Bulk(ctx)
	if err != nil {
		s.logger.Error("bulk diagnostics failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("running bulk diagnostics: %w", err)
	}

	s.logger.Info("bulk diagnostics finished",
		"total", summary.Total,
		"succeeded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"duration", time.Since(start),
	)
	for _, f := range summary.Failed {
		s.logger.Warn("machine diagnostics failed", "machine_id", f.MachineID, "error", f.Error)
	}
	return summary, nil
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
