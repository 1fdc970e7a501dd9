package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campushub/smartmail/internal/joblock"
	"github.com/campushub/smartmail/internal/observability"
	"github.com/campushub/smartmail/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultElectionInterval = 15 * time.Minute
	defaultSessionInterval  = time.Hour
	defaultReminderInterval = time.Minute
	defaultDeepSweepAt      = "03:30"
	defaultTokenSweepAt     = "04:00"
	defaultSessionLifetime  = 60 * time.Minute

	reminderLockName = "event_reminders"
	reminderLockTTL  = 10 * time.Minute

	deepSweepAge = 24 * time.Hour
	tokenMaxAge  = 24 * time.Hour
)

// ReminderRunner is one pass of the event reminder job.
type ReminderRunner interface {
	Run(ctx context.Context) error
}

// SchedulerConfig tunes cadences; zero values fall back to production
// defaults. Intervals are injectable so tests can tick fast.
type SchedulerConfig struct {
	ElectionInterval time.Duration
	SessionInterval  time.Duration
	ReminderInterval time.Duration
	SessionLifetime  time.Duration
	DeepSweepAt      string
	TokenSweepAt     string
}

// Scheduler runs the time-driven maintenance jobs for the lifetime of the
// process: election closing, session and token sweeps, and the
// no-overlap event reminder job.
type Scheduler struct {
	elections repository.ElectionRepository
	sessions  repository.SessionRepository
	tokens    repository.TokenRepository
	reminders ReminderRunner
	lock      joblock.Lock
	logger    *zap.Logger
	metrics   *observability.Metrics
	cfg       SchedulerConfig
	now       func() time.Time
}

func NewScheduler(
	elections repository.ElectionRepository,
	sessions repository.SessionRepository,
	tokens repository.TokenRepository,
	reminders ReminderRunner,
	lock joblock.Lock,
	cfg SchedulerConfig,
	logger *zap.Logger,
) (*Scheduler, error) {
	if elections == nil {
		return nil, fmt.Errorf("election repository is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session repository is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder runner is required")
	}
	if lock == nil {
		lock = joblock.NewLocalLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.ElectionInterval <= 0 {
		cfg.ElectionInterval = defaultElectionInterval
	}
	if cfg.SessionInterval <= 0 {
		cfg.SessionInterval = defaultSessionInterval
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = defaultReminderInterval
	}
	if cfg.SessionLifetime <= 0 {
		cfg.SessionLifetime = defaultSessionLifetime
	}
	if cfg.DeepSweepAt == "" {
		cfg.DeepSweepAt = defaultDeepSweepAt
	}
	if cfg.TokenSweepAt == "" {
		cfg.TokenSweepAt = defaultTokenSweepAt
	}
	if _, err := time.Parse("15:04", cfg.DeepSweepAt); err != nil {
		return nil, fmt.Errorf("invalid deep sweep time %q: %w", cfg.DeepSweepAt, err)
	}
	if _, err := time.Parse("15:04", cfg.TokenSweepAt); err != nil {
		return nil, fmt.Errorf("invalid token sweep time %q: %w", cfg.TokenSweepAt, err)
	}

	return &Scheduler{
		elections: elections,
		sessions:  sessions,
		tokens:    tokens,
		reminders: reminders,
		lock:      lock,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs every job loop until context cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.loop(groupCtx, "election_close", s.cfg.ElectionInterval, s.closeElections) })
	g.Go(func() error { return s.loop(groupCtx, "session_sweep", s.cfg.SessionInterval, s.sweepIdleSessions) })
	g.Go(func() error { return s.dailyLoop(groupCtx, "session_deep_sweep", s.cfg.DeepSweepAt, s.deepSweepSessions) })
	g.Go(func() error { return s.dailyLoop(groupCtx, "token_sweep", s.cfg.TokenSweepAt, s.sweepResetTokens) })
	g.Go(func() error { return s.loop(groupCtx, "event_reminders", s.cfg.ReminderInterval, s.runReminders) })

	return g.Wait()
}

// loop runs job immediately and then on every ticker edge until ctx is
// canceled. Job errors are logged, never fatal to the loop.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, job func(ctx context.Context) error) error {
	s.runJob(ctx, name, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runJob(ctx, name, job)
		}
	}
}

// dailyLoop fires job once per day at the given wall-clock time.
func (s *Scheduler) dailyLoop(ctx context.Context, name string, at string, job func(ctx context.Context) error) error {
	for {
		wait := s.untilNext(at)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			s.runJob(ctx, name, job)
		}
	}
}

func (s *Scheduler) untilNext(at string) time.Duration {
	target, _ := time.Parse("15:04", at)

	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) runJob(ctx context.Context, name string, job func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}

	start := s.now()
	err := job(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJobDuration(name, s.now().Sub(start))
	}

	if err != nil && ctx.Err() == nil {
		if s.metrics != nil {
			s.metrics.IncJobFailure(name)
		}
		s.logger.Error("scheduled job failed",
			zap.String("job", name),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) closeElections(ctx context.Context) error {
	closed, err := s.elections.CompleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to complete expired elections: %w", err)
	}
	if closed > 0 {
		s.logger.Info("expired elections completed", zap.Int64("count", closed))
	}
	return nil
}

func (s *Scheduler) sweepIdleSessions(ctx context.Context) error {
	deleted, err := s.sessions.DeleteLastSeenBefore(ctx, s.now().Add(-s.cfg.SessionLifetime))
	if err != nil {
		return fmt.Errorf("failed to sweep idle sessions: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("idle sessions deleted", zap.Int64("count", deleted))
	}
	return nil
}

func (s *Scheduler) deepSweepSessions(ctx context.Context) error {
	deleted, err := s.sessions.DeleteCreatedBefore(ctx, s.now().Add(-deepSweepAge))
	if err != nil {
		return fmt.Errorf("failed to deep sweep sessions: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("stale sessions deleted", zap.Int64("count", deleted))
	}
	return nil
}

func (s *Scheduler) sweepResetTokens(ctx context.Context) error {
	deleted, err := s.tokens.DeleteCreatedBefore(ctx, s.now().Add(-tokenMaxAge))
	if err != nil {
		return fmt.Errorf("failed to sweep password reset tokens: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("expired reset tokens deleted", zap.Int64("count", deleted))
	}
	return nil
}

// runReminders guards the reminder pass with the job lock: if a previous
// run still holds it, this tick is skipped entirely.
func (s *Scheduler) runReminders(ctx context.Context) error {
	acquired, err := s.lock.TryAcquire(ctx, reminderLockName, reminderLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire reminder job lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("reminder tick skipped, previous run still in progress")
		if s.metrics != nil {
			s.metrics.IncJobSkipped("event_reminders")
		}
		return nil
	}
	defer func() {
		// Release must work even when the run ended on ctx cancellation.
		if err := s.lock.Release(context.WithoutCancel(ctx), reminderLockName); err != nil {
			s.logger.Warn("failed to release reminder job lock", zap.Error(err))
		}
	}()

	return s.reminders.Run(ctx)
}
