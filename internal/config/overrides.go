package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Overrides carries the tunables operators adjust without a restart:
// per-prefix event sampling rates and the break recommendation thresholds.
type Overrides struct {
	Sampling       SamplingConfig       `mapstructure:"sampling"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
}

// SamplingConfig maps event type prefixes to keep rates in [0, 1].
// The longest matching prefix wins; unmatched types use Default.
type SamplingConfig struct {
	Default float64            `mapstructure:"default"`
	Rates   map[string]float64 `mapstructure:"rates"`
}

// RecommendationConfig holds cognitive load boundaries and the energy
// cutoff used by the break recommendation heuristic.
type RecommendationConfig struct {
	LoadLow      float64 `mapstructure:"loadLow"`
	LoadMedium   float64 `mapstructure:"loadMedium"`
	LoadHigh     float64 `mapstructure:"loadHigh"`
	LowEnergyMax float64 `mapstructure:"lowEnergyMax"`
}

func DefaultOverrides() Overrides {
	return Overrides{
		Sampling: SamplingConfig{
			Default: 1.0,
			Rates: map[string]float64{
				"performance.": 0.10,
				"journey.":     0.25,
			},
		},
		Recommendation: RecommendationConfig{
			LoadLow:      0.3,
			LoadMedium:   0.6,
			LoadHigh:     0.8,
			LowEnergyMax: 0.4,
		},
	}
}

// RateFor resolves the sampling rate for an event type.
func (s SamplingConfig) RateFor(eventType string) float64 {
	best := ""
	rate := s.Default
	for prefix, r := range s.Rates {
		if strings.HasPrefix(eventType, prefix) && len(prefix) > len(best) {
			best = prefix
			rate = r
		}
	}
	return rate
}

// OverridesHolder exposes the current overrides and swaps them atomically
// when the watched file changes. Invalid updates are ignored.
type OverridesHolder struct {
	current atomic.Value // holds Overrides
}

func NewOverridesHolder(cfg Config) (*OverridesHolder, error) {
	holder := &OverridesHolder{}
	holder.current.Store(DefaultOverrides())

	if cfg.OverridesFile == "" {
		return holder, nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.OverridesFile)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return holder, nil
		}
		return nil, err
	}

	loaded, err := unmarshalOverrides(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalOverrides(v)
		if err != nil {
			log.Printf("[overrides] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[overrides] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *OverridesHolder) Get() Overrides {
	return h.current.Load().(Overrides)
}

func unmarshalOverrides(v *viper.Viper) (Overrides, error) {
	cfg := DefaultOverrides()
	if err := v.Unmarshal(&cfg); err != nil {
		return Overrides{}, err
	}
	if err := validateOverrides(cfg); err != nil {
		return Overrides{}, err
	}
	return cfg, nil
}

func validateOverrides(cfg Overrides) error {
	if cfg.Sampling.Default < 0 || cfg.Sampling.Default > 1 {
		return errors.New("sampling.default must be within [0, 1]")
	}
	for prefix, rate := range cfg.Sampling.Rates {
		if rate < 0 || rate > 1 {
			return errors.New("sampling rate for " + prefix + " must be within [0, 1]")
		}
	}
	r := cfg.Recommendation
	if !(r.LoadLow < r.LoadMedium && r.LoadMedium < r.LoadHigh) {
		return errors.New("recommendation load thresholds must satisfy low < medium < high")
	}
	if r.LowEnergyMax <= 0 || r.LowEnergyMax >= 1 {
		return errors.New("recommendation.lowEnergyMax must be within (0, 1)")
	}
	return nil
}
