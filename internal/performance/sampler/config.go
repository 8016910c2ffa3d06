package sampler

import "time"

// Config controls the performance sampler loop.
type Config struct {
	Interval   time.Duration
	RunTimeout time.Duration
	HostID     string
}

func DefaultConfig() Config {
	return Config{
		Interval:   time.Minute,
		RunTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
