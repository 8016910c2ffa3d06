package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/analytics/rollup"
	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/pkg/db"
)

type stubEventSvc struct {
	purgeCalls []int
	purgeErr   error
}

func (s *stubEventSvc) Record(context.Context, eventdomain.RecordRequest) error { return nil }
func (s *stubEventSvc) Query(context.Context, eventdomain.QueryRequest) (eventdomain.QueryResponse, error) {
	return eventdomain.QueryResponse{}, nil
}
func (s *stubEventSvc) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	s.purgeCalls = append(s.purgeCalls, days)
	if s.purgeErr != nil {
		return 0, s.purgeErr
	}
	return 3, nil
}
func (s *stubEventSvc) DistinctTenants(context.Context, time.Time) ([]snowflake.ID, error) {
	return nil, nil
}

type stubPerfSvc struct {
	purgeCalls []int
}

func (s *stubPerfSvc) RecordSample(context.Context, *perfdomain.Sample) error { return nil }
func (s *stubPerfSvc) Series(context.Context, perfdomain.SeriesRequest) (perfdomain.SeriesResponse, error) {
	return perfdomain.SeriesResponse{}, nil
}
func (s *stubPerfSvc) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	s.purgeCalls = append(s.purgeCalls, days)
	return 2, nil
}

type stubSnapshot struct {
	runs int
	err  error
	ran  chan struct{}
}

func (s *stubSnapshot) RunOnce(context.Context) error {
	s.runs++
	if s.ran != nil {
		s.ran <- struct{}{}
	}
	return s.err
}

type schedulerFixture struct {
	sched    *Scheduler
	db       *gorm.DB
	clock    *clock.FakeClock
	events   *stubEventSvc
	perf     *stubPerfSvc
	snapshot *stubSnapshot
}

func setupScheduler(t *testing.T, start time.Time, cfg Config) *schedulerFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&eventdomain.Event{}, &analyticsdomain.DailyMetric{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	fakeClock := clock.NewFakeClock(start)
	rollupSvc := rollup.NewService(rollup.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	})

	events := &stubEventSvc{}
	perf := &stubPerfSvc{}
	snapshot := &stubSnapshot{}

	sched, err := New(Params{
		DB:          dbConn,
		Log:         zap.NewNop(),
		GenID:       node,
		Rollup:      rollupSvc,
		Events:      events,
		Performance: perf,
		Sampler:     snapshot,
		Clock:       fakeClock,
		Retention: config.RetentionConfig{
			RawEventDays:       30,
			DailyMetricDays:    365,
			PerformanceLogDays: 30,
		},
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	return &schedulerFixture{
		sched:    sched,
		db:       dbConn,
		clock:    fakeClock,
		events:   events,
		perf:     perf,
		snapshot: snapshot,
	}
}

func seedTestEvent(t *testing.T, dbConn *gorm.DB, at time.Time, eventType string, userID string) {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	event := eventdomain.Event{
		ID:         node.Generate(),
		OccurredAt: at,
		EventType:  eventType,
		UserID:     &userID,
		Properties: datatypes.JSONMap{},
		CreatedAt:  at,
	}
	if err := dbConn.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func countDailyMetrics(t *testing.T, dbConn *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := dbConn.Model(&analyticsdomain.DailyMetric{}).Count(&count).Error; err != nil {
		t.Fatalf("count metrics: %v", err)
	}
	return count
}

func TestParseWallClock(t *testing.T) {
	hour, minute, err := parseWallClock("02:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hour != 2 || minute != 30 {
		t.Fatalf("expected 02:30, got %02d:%02d", hour, minute)
	}

	if _, _, err := parseWallClock("25:00"); err == nil {
		t.Fatal("expected error for invalid hour")
	}
	if _, _, err := parseWallClock("midnight"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	next := nextOccurrence(base, 14, 30)
	want := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	// Already past today: rolls to tomorrow.
	next = nextOccurrence(base, 2, 0)
	want = time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	// Exactly at the wall-clock time: next run is tomorrow.
	at := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	next = nextOccurrence(at, 0, 0)
	want = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestRunOnceRollupFiresAtMidnight(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{SnapshotInterval: time.Hour})

	seedTestEvent(t, fixture.db, start.Add(-time.Hour), "content.view", "user-1")

	ctx := context.Background()
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce before midnight: %v", err)
	}
	if count := countDailyMetrics(t, fixture.db); count != 0 {
		t.Fatalf("expected no metrics before midnight, got %d", count)
	}

	fixture.clock.Advance(time.Hour)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce at midnight: %v", err)
	}
	if count := countDailyMetrics(t, fixture.db); count == 0 {
		t.Fatal("expected rollup to write metrics for the previous day")
	}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	var row analyticsdomain.DailyMetric
	err := fixture.db.
		Where("metric_date = ? AND tenant_id = ? AND metric_name = ?",
			day, analyticsdomain.PlatformTenantID, analyticsdomain.MetricContentViews).
		First(&row).Error
	if err != nil {
		t.Fatalf("load platform views: %v", err)
	}
	if row.MetricValue != 1 {
		t.Fatalf("expected 1 view, got %v", row.MetricValue)
	}
}

func TestRunOnceRollupDoesNotRepeatSameDay(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{SnapshotInterval: 24 * time.Hour})

	ctx := context.Background()
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("initial RunOnce: %v", err)
	}

	fixture.clock.Advance(30 * time.Minute)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	first := countDailyMetrics(t, fixture.db)
	if first == 0 {
		t.Fatal("expected zero-event platform rows from first rollup")
	}

	// Later the same day nothing is due.
	fixture.clock.Advance(6 * time.Hour)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if count := countDailyMetrics(t, fixture.db); count != first {
		t.Fatalf("expected %d rows, got %d", first, count)
	}

	// Next midnight writes rows for the following day.
	fixture.clock.Advance(18 * time.Hour)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("third RunOnce: %v", err)
	}
	if count := countDailyMetrics(t, fixture.db); count != first*2 {
		t.Fatalf("expected %d rows after second day, got %d", first*2, count)
	}
}

func TestRunOnceRetentionSweep(t *testing.T) {
	start := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{
		SnapshotInterval: 24 * time.Hour,
		EnabledJobs:      []string{JobRetentionSweep},
	})

	// One stale aggregate past the 365 day window, one fresh.
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	stale := analyticsdomain.DailyMetric{
		ID:           node.Generate(),
		MetricDate:   start.AddDate(-2, 0, 0),
		TenantID:     analyticsdomain.PlatformTenantID,
		MetricName:   analyticsdomain.MetricContentViews,
		DimensionKey: analyticsdomain.DefaultDimensionKey,
	}
	fresh := analyticsdomain.DailyMetric{
		ID:           node.Generate(),
		MetricDate:   start.AddDate(0, 0, -1),
		TenantID:     analyticsdomain.PlatformTenantID,
		MetricName:   analyticsdomain.MetricContentCompletions,
		DimensionKey: analyticsdomain.DefaultDimensionKey,
	}
	if err := fixture.db.Create(&stale).Error; err != nil {
		t.Fatalf("seed stale metric: %v", err)
	}
	if err := fixture.db.Create(&fresh).Error; err != nil {
		t.Fatalf("seed fresh metric: %v", err)
	}

	ctx := context.Background()
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce before sweep time: %v", err)
	}
	if len(fixture.events.purgeCalls) != 0 {
		t.Fatal("sweep ran before its wall-clock time")
	}

	fixture.clock.Advance(30 * time.Minute)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce at sweep time: %v", err)
	}

	if got := fixture.events.purgeCalls; len(got) != 1 || got[0] != 30 {
		t.Fatalf("expected event purge with 30 days, got %v", got)
	}
	if got := fixture.perf.purgeCalls; len(got) != 1 || got[0] != 30 {
		t.Fatalf("expected performance purge with 30 days, got %v", got)
	}
	if count := countDailyMetrics(t, fixture.db); count != 1 {
		t.Fatalf("expected only the fresh metric to survive, got %d rows", count)
	}
}

func TestRunOnceRetentionSweepJoinsErrors(t *testing.T) {
	start := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{
		SnapshotInterval: 24 * time.Hour,
		EnabledJobs:      []string{JobRetentionSweep},
	})
	fixture.events.purgeErr = errors.New("purge exploded")

	if err := fixture.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce before sweep time: %v", err)
	}
	fixture.clock.Advance(time.Hour)
	err := fixture.sched.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected sweep error to surface")
	}
	// The other purges still ran.
	if len(fixture.perf.purgeCalls) != 1 {
		t.Fatalf("expected performance purge despite event failure, got %v", fixture.perf.purgeCalls)
	}
}

func TestRunOnceSnapshotInterval(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{
		SnapshotInterval: time.Minute,
		EnabledJobs:      []string{JobPerformanceSnapshot},
	})

	ctx := context.Background()
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fixture.snapshot.runs != 0 {
		t.Fatalf("expected no snapshot before first interval, got %d", fixture.snapshot.runs)
	}

	fixture.clock.Advance(time.Minute)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fixture.snapshot.runs != 1 {
		t.Fatalf("expected 1 snapshot, got %d", fixture.snapshot.runs)
	}

	// A stalled loop catches up with a single run, not a burst.
	fixture.clock.Advance(10 * time.Minute)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fixture.snapshot.runs != 2 {
		t.Fatalf("expected 2 snapshots after catch-up, got %d", fixture.snapshot.runs)
	}
}

func TestRunForeverTicksOnInjectedClock(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{
		RunInterval:      time.Minute,
		SnapshotInterval: time.Minute,
		EnabledJobs:      []string{JobPerformanceSnapshot},
	})
	fixture.snapshot.ran = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fixture.sched.RunForever(ctx)
		close(done)
	}()

	// First tick only seeds the snapshot schedule.
	fixture.clock.BlockUntil(1)
	fixture.clock.Advance(time.Minute)
	select {
	case <-fixture.snapshot.ran:
		t.Fatal("snapshot ran before its first interval")
	case <-time.After(50 * time.Millisecond):
	}

	// Second tick reaches the snapshot deadline.
	fixture.clock.BlockUntil(1)
	fixture.clock.Advance(time.Minute)
	select {
	case <-fixture.snapshot.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot did not run on the advanced clock")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunForever did not stop on context cancel")
	}
}

func TestRunOnceDisabledJobsSkipped(t *testing.T) {
	start := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{
		SnapshotInterval: time.Minute,
		EnabledJobs:      []string{JobRetentionSweep},
	})

	ctx := context.Background()
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	fixture.clock.Advance(time.Minute)
	if err := fixture.sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if count := countDailyMetrics(t, fixture.db); count != 0 {
		t.Fatalf("expected rollup to stay disabled, found %d rows", count)
	}
	if fixture.snapshot.runs != 0 {
		t.Fatalf("expected snapshot to stay disabled, got %d runs", fixture.snapshot.runs)
	}
}

func TestRunOnceRecoversFromPanic(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	fixture := setupScheduler(t, start, Config{SnapshotInterval: time.Minute})

	err := fixture.sched.runJob(context.Background(), "boom", func(context.Context) error {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
}
