package scheduler

import (
	"time"

	"github.com/brightclass/insight/internal/config"
)

// Config controls scheduler loop timing and job schedules.
type Config struct {
	RunInterval      time.Duration
	JobTimeout       time.Duration
	LockTTL          time.Duration
	RollupAt         string
	RetentionSweepAt string
	SnapshotInterval time.Duration
	EnabledJobs      []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      15 * time.Second,
		JobTimeout:       5 * time.Minute,
		LockTTL:          10 * time.Minute,
		RollupAt:         "00:00",
		RetentionSweepAt: "02:00",
		SnapshotInterval: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.RollupAt == "" {
		c.RollupAt = defaults.RollupAt
	}
	if c.RetentionSweepAt == "" {
		c.RetentionSweepAt = defaults.RetentionSweepAt
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = defaults.SnapshotInterval
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	if cfg.Jobs.RollupAt != "" {
		c.RollupAt = cfg.Jobs.RollupAt
	}
	if cfg.Jobs.RetentionSweepAt != "" {
		c.RetentionSweepAt = cfg.Jobs.RetentionSweepAt
	}
	if cfg.Jobs.SnapshotInterval > 0 {
		c.SnapshotInterval = cfg.Jobs.SnapshotInterval
	}
	return c
}
