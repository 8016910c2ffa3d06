package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/analytics/rollup"
	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/internal/ratelimit"
)

// Job names as they appear in logs and metric labels.
const (
	JobDailyRollup         = "analytics_daily_rollup"
	JobRetentionSweep      = "retention_sweep"
	JobPerformanceSnapshot = "performance_snapshot"
)

// SnapshotRunner takes one performance sample. Satisfied by the
// performance sampler worker.
type SnapshotRunner interface {
	RunOnce(ctx context.Context) error
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Rollup      *rollup.Service
	Events      eventdomain.Service
	Performance perfdomain.Service
	Sampler     SnapshotRunner    `optional:"true"`
	Locker      *ratelimit.Locker `optional:"true"`
	Clock       clock.Clock       `optional:"true"`
	Retention   config.RetentionConfig
	Config      Config
}

// Scheduler drives the periodic analytics jobs: the nightly rollup, the
// retention sweep and the performance snapshot. Daily jobs fire at a
// fixed wall-clock time (UTC) and then every 24 hours; the snapshot
// fires on a plain interval.
type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	rollup      *rollup.Service
	events      eventdomain.Service
	performance perfdomain.Service
	sampler     SnapshotRunner
	locker      *ratelimit.Locker
	clock       clock.Clock
	retention   config.RetentionConfig
	cfg         Config

	rollupHour   int
	rollupMinute int
	sweepHour    int
	sweepMinute  int

	nextRollup   time.Time
	nextSweep    time.Time
	nextSnapshot time.Time
}

func New(p Params) (*Scheduler, error) {
	cfg := p.Config.withDefaults()

	rollupHour, rollupMinute, err := parseWallClock(cfg.RollupAt)
	if err != nil {
		return nil, err
	}
	sweepHour, sweepMinute, err := parseWallClock(cfg.RetentionSweepAt)
	if err != nil {
		return nil, err
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}

	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler"),
		genID:        p.GenID,
		rollup:       p.Rollup,
		events:       p.Events,
		performance:  p.Performance,
		sampler:      p.Sampler,
		locker:       p.Locker,
		clock:        clk,
		retention:    p.Retention,
		cfg:          cfg,
		rollupHour:   rollupHour,
		rollupMinute: rollupMinute,
		sweepHour:    sweepHour,
		sweepMinute:  sweepMinute,
	}, nil
}

// RunOnce fires every job whose next occurrence has passed and advances
// the schedule. Job failures are joined and returned; one failing job
// never blocks the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now().UTC()
	s.ensureSchedule(now)

	var jobErr error

	if s.isJobEnabled(JobDailyRollup) && !now.Before(s.nextRollup) {
		jobErr = errors.Join(jobErr, s.runExclusive(ctx, JobDailyRollup, s.rollupJob))
		s.nextRollup = advancePast(s.nextRollup, now, 24*time.Hour)
	}

	if s.isJobEnabled(JobRetentionSweep) && !now.Before(s.nextSweep) {
		jobErr = errors.Join(jobErr, s.runExclusive(ctx, JobRetentionSweep, s.retentionSweepJob))
		s.nextSweep = advancePast(s.nextSweep, now, 24*time.Hour)
	}

	if s.isJobEnabled(JobPerformanceSnapshot) && !now.Before(s.nextSnapshot) {
		jobErr = errors.Join(jobErr, s.runJob(ctx, JobPerformanceSnapshot, s.snapshotJob))
		s.nextSnapshot = advancePast(s.nextSnapshot, now, s.cfg.SnapshotInterval)
	}

	return jobErr
}

// RunForever ticks RunOnce until the context is cancelled. Both the
// tick and the lag measurement run on the injected clock.
func (s *Scheduler) RunForever(ctx context.Context) {
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.cfg.RunInterval):
		}

		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			obsmetrics.Scheduler().ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func (s *Scheduler) ensureSchedule(now time.Time) {
	if s.nextRollup.IsZero() {
		s.nextRollup = nextOccurrence(now, s.rollupHour, s.rollupMinute)
	}
	if s.nextSweep.IsZero() {
		s.nextSweep = nextOccurrence(now, s.sweepHour, s.sweepMinute)
	}
	if s.nextSnapshot.IsZero() {
		s.nextSnapshot = now.Add(s.cfg.SnapshotInterval)
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, job := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(job), name) {
			return true
		}
	}
	return false
}

// runExclusive wraps runJob with a redis lock so concurrent instances
// skip duplicate daily runs. Lock errors fail open: the jobs are
// idempotent, so a duplicate run beats a missed one.
func (s *Scheduler) runExclusive(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.locker == nil {
		return s.runJob(ctx, name, fn)
	}

	key := "insight:scheduler:" + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("job lock unavailable, running without it",
			zap.String("job", name),
			zap.Error(err),
		)
		return s.runJob(ctx, name, fn)
	}
	if !ok {
		obsmetrics.Scheduler().IncBatchDeferred(name, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.log.Info("job lock held by another instance, skipping", zap.String("job", name))
		return nil
	}
	defer func() {
		if releaseErr := s.locker.Release(context.Background(), key, token); releaseErr != nil {
			s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(releaseErr))
		}
	}()

	return s.runJob(ctx, name, fn)
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(context.Context) error) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
		defer func() { s.logJobFinish(ctx, run) }()
	}

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
			run.IncError()
			schedMetrics.IncJobError(name, err)
			s.logger(ctx).Error("job panicked",
				zap.String("job", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	err = fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		schedMetrics.IncJobError(name, err)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	run.IncError()
	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

// rollupJob aggregates the previous UTC day. Reruns overwrite the same
// rows, so firing twice for one day is harmless.
func (s *Scheduler) rollupJob(ctx context.Context) error {
	day := s.clock.Now().UTC().AddDate(0, 0, -1)
	if err := s.rollup.AggregateDay(ctx, day); err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(1)
	return nil
}

// retentionSweepJob deletes raw events, performance samples and daily
// aggregates past their configured retention windows.
func (s *Scheduler) retentionSweepJob(ctx context.Context) error {
	schedMetrics := obsmetrics.Scheduler()
	run := jobRunFromContext(ctx)
	var jobErr error

	removed, err := s.events.PurgeOlderThan(ctx, s.retention.RawEventDays)
	if err != nil {
		jobErr = errors.Join(jobErr, err)
		run.IncError()
	} else {
		schedMetrics.AddBatchProcessed(JobRetentionSweep, "analytics_events", int(removed))
		run.AddProcessed(int(removed))
	}

	removed, err = s.performance.PurgeOlderThan(ctx, s.retention.PerformanceLogDays)
	if err != nil {
		jobErr = errors.Join(jobErr, err)
		run.IncError()
	} else {
		schedMetrics.AddBatchProcessed(JobRetentionSweep, "analytics_performance_log", int(removed))
		run.AddProcessed(int(removed))
	}

	removed, err = s.purgeDailyMetrics(ctx, s.retention.DailyMetricDays)
	if err != nil {
		jobErr = errors.Join(jobErr, err)
		run.IncError()
	} else {
		schedMetrics.AddBatchProcessed(JobRetentionSweep, "analytics_daily_metrics", int(removed))
		run.AddProcessed(int(removed))
	}

	return jobErr
}

func (s *Scheduler) purgeDailyMetrics(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("daily metric retention must be positive, got %d", days)
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM analytics_daily_metrics WHERE metric_date < ?`,
		cutoff,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Scheduler) snapshotJob(ctx context.Context) error {
	if s.sampler == nil {
		return nil
	}
	if err := s.sampler.RunOnce(ctx); err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(1)
	return nil
}

func parseWallClock(value string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid wall clock time %q: %w", value, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// nextOccurrence returns the next time the given UTC wall-clock time
// comes around, strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// advancePast steps next forward by interval until it is in the future,
// so a stalled loop catches up with a single run instead of a burst.
func advancePast(next, now time.Time, interval time.Duration) time.Time {
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
