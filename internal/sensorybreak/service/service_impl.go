package service

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/cloudmetrics"
	"github.com/brightclass/insight/internal/config"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
	"github.com/brightclass/insight/internal/tenantcontext"
	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
	"github.com/brightclass/insight/pkg/repository"
)

const (
	historyLimit        = 10
	recentWindow        = 3
	defaultLoad         = 0.5
	defaultBreakMins    = 3
	minIntervalMins     = 15
	maxIntervalMins     = 60
	intervalStepMins    = 5
	defaultIntervalMins = 30
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      repository.Repository[breakdomain.Effectiveness]
	Overrides *config.OverridesHolder
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Clock     clock.Clock         `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[breakdomain.Effectiveness]
	overrides *config.OverridesHolder
	metrics   *obsmetrics.Metrics
	clock     clock.Clock

	randIndex func(n int) int

	mu      sync.Mutex
	history map[string][]string
}

func New(p Params) breakdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		log:       p.Log.Named("sensorybreak.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		overrides: p.Overrides,
		metrics:   p.Metrics,
		clock:     clk,
		randIndex: rand.IntN,
		history:   map[string][]string{},
	}
}

func (s *Service) Recommend(ctx context.Context, req breakdomain.RecommendRequest) (breakdomain.Recommendation, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return breakdomain.Recommendation{}, breakdomain.ErrInvalidUser
	}

	thresholds := s.overrides.Get().Recommendation
	ranked := rankChannels(req.Profile)
	loadLevel := classifyLoad(req.State, thresholds)
	energizing := needsEnergizing(req.Profile, req.State, thresholds)

	channel, intensity := s.decide(ranked, loadLevel, energizing)
	channel = resolveAversion(channel, ranked, req.Profile.SensoryAversions)

	pool := breakdomain.ActivitiesBy(channel, intensity)
	pool = s.excludeRecent(userID, pool)
	if len(pool) == 0 {
		// The catalog guarantees two entries per pair, so an empty pool
		// means the pair itself is unknown.
		return breakdomain.Recommendation{}, breakdomain.ErrUnknownActivity
	}

	activity := pool[s.randIndex(len(pool))]
	s.recordHistory(userID, activity.ID)
	s.metrics.RecordRecommendation(ctx, channel)
	cloudmetrics.RecordRecommendationServed(tenantLabel(ctx), channel)

	return breakdomain.Recommendation{
		Activity:        activity,
		DurationMinutes: activity.DurationMinutes,
		Reasoning: breakdomain.Reasoning{
			LoadLevel:  loadLevel,
			Energizing: energizing,
			Channel:    channel,
			Neurotype:  strings.TrimSpace(req.Profile.Neurotype),
		},
		Benefits:     activity.Benefits,
		Alternatives: alternatives(activity),
	}, nil
}

func (s *Service) Schedule(_ context.Context, req breakdomain.ScheduleRequest) (breakdomain.SchedulePlan, error) {
	if req.SessionMinutes <= 0 {
		return breakdomain.SchedulePlan{}, breakdomain.ErrInvalidSession
	}

	interval := defaultIntervalMins
	if strings.TrimSpace(req.Profile.Neurotype) == breakdomain.NeurotypeADHD {
		interval = 20
	} else {
		switch strings.TrimSpace(req.Profile.AttentionSpan) {
		case "short":
			interval = 25
		case "long":
			interval = 40
		}
	}

	plan := breakdomain.SchedulePlan{
		IntervalMinutes:      interval,
		BreakDurationMinutes: defaultBreakMins,
	}
	for at := interval; at < req.SessionMinutes; at += interval {
		plan.Breaks = append(plan.Breaks, breakdomain.ScheduledBreak{
			AtMinute:        at,
			DurationMinutes: defaultBreakMins,
		})
	}
	return plan, nil
}

func (s *Service) AdjustSchedule(_ context.Context, req breakdomain.AdjustRequest) (breakdomain.AdjustResponse, error) {
	interval := req.CurrentIntervalMinutes
	if interval <= 0 {
		interval = defaultIntervalMins
	}

	resp := breakdomain.AdjustResponse{IntervalMinutes: interval, Reason: "interval unchanged"}
	switch {
	case req.FatigueScore > 0.7 || req.FocusScore < 0.4:
		resp.IntervalMinutes = max(interval-intervalStepMins, minIntervalMins)
		resp.Reason = "high fatigue or low focus, breaks moved closer together"
	case req.FocusScore > 0.8 && req.FatigueScore < 0.3:
		resp.IntervalMinutes = min(interval+intervalStepMins, maxIntervalMins)
		resp.Reason = "sustained focus with low fatigue, breaks spaced out"
	}
	return resp, nil
}

func (s *Service) TrackEffectiveness(ctx context.Context, report breakdomain.EffectivenessReport) error {
	userID := strings.TrimSpace(report.UserID)
	if userID == "" {
		return breakdomain.ErrInvalidUser
	}
	if _, ok := breakdomain.ActivityByID(strings.TrimSpace(report.ActivityID)); !ok {
		return breakdomain.ErrUnknownActivity
	}
	if report.Rating < 1 || report.Rating > 5 {
		return breakdomain.ErrInvalidRating
	}

	now := s.clock.Now()
	return s.repo.Create(ctx, &breakdomain.Effectiveness{
		ID:          s.genID.Generate(),
		UserID:      userID,
		ActivityID:  strings.TrimSpace(report.ActivityID),
		Rating:      report.Rating,
		Notes:       strings.TrimSpace(report.Notes),
		CompletedAt: now,
		CreatedAt:   now,
	})
}

// rankChannels scores the five channels for a profile and returns them
// in descending score order, catalog order breaking ties.
func rankChannels(profile breakdomain.Profile) []string {
	scores := map[string]int{}
	for _, channel := range breakdomain.Channels {
		scores[channel] = 1
	}

	prefers := func(sense string) bool {
		return strings.EqualFold(profile.SensoryPreferences[sense], "high")
	}

	switch strings.TrimSpace(profile.Neurotype) {
	case breakdomain.NeurotypeADHD:
		scores[breakdomain.ChannelPhysical] += 2
		scores[breakdomain.ChannelTactile]++
	case breakdomain.NeurotypeDyslexia:
		scores[breakdomain.ChannelAuditory]++
		scores[breakdomain.ChannelVisual]++
	case breakdomain.NeurotypeAutismSpectrum:
		if prefers(breakdomain.SenseVisual) {
			scores[breakdomain.ChannelVisual] += 2
		}
		if prefers(breakdomain.SenseAuditory) {
			scores[breakdomain.ChannelAuditory] += 2
		}
	}

	if prefers(breakdomain.SenseMovement) {
		scores[breakdomain.ChannelPhysical] += 2
	}
	if prefers(breakdomain.SenseTouch) {
		scores[breakdomain.ChannelTactile] += 2
	}
	if prefers(breakdomain.SenseVisual) {
		scores[breakdomain.ChannelVisual] += 2
	}
	if prefers(breakdomain.SenseAuditory) {
		scores[breakdomain.ChannelAuditory] += 2
	}

	for _, aversion := range profile.SensoryAversions {
		if channel := channelForSense(aversion); channel != "" {
			scores[channel] -= 3
		}
	}

	ranked := append([]string(nil), breakdomain.Channels...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	return ranked
}

func tenantLabel(ctx context.Context) string {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return ""
	}
	return tenantID.String()
}

func channelForSense(sense string) string {
	switch strings.ToLower(strings.TrimSpace(sense)) {
	case breakdomain.SenseMovement:
		return breakdomain.ChannelPhysical
	case breakdomain.SenseVisual:
		return breakdomain.ChannelVisual
	case breakdomain.SenseAuditory:
		return breakdomain.ChannelAuditory
	case breakdomain.SenseTouch:
		return breakdomain.ChannelTactile
	default:
		return ""
	}
}

func classifyLoad(state *breakdomain.State, thresholds config.RecommendationConfig) string {
	load := defaultLoad
	if state != nil && state.CognitiveLoad != nil {
		load = *state.CognitiveLoad
	}
	switch {
	case load >= thresholds.LoadHigh:
		return "high"
	case load >= thresholds.LoadMedium:
		return "medium"
	default:
		return "low"
	}
}

// needsEnergizing reports whether the break should lift energy: either
// the measured level sits below the cutoff, or the profile carries a
// low energy pattern regardless of the current reading.
func needsEnergizing(profile breakdomain.Profile, state *breakdomain.State, thresholds config.RecommendationConfig) bool {
	if state != nil && state.EnergyLevel != nil && *state.EnergyLevel < thresholds.LowEnergyMax {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(profile.EnergyPattern), "low")
}

// decide maps (load level, energizing) to a channel and intensity.
func (s *Service) decide(ranked []string, loadLevel string, energizing bool) (string, string) {
	top := ranked[0]
	switch loadLevel {
	case "high":
		if energizing {
			return breakdomain.ChannelPhysical, breakdomain.IntensityModerate
		}
		return top, breakdomain.IntensityDeep
	case "medium":
		if energizing {
			if s.randIndex(2) == 0 {
				return breakdomain.ChannelPhysical, breakdomain.IntensityModerate
			}
			return top, breakdomain.IntensityModerate
		}
		return top, breakdomain.IntensityModerate
	default:
		return top, breakdomain.IntensityLight
	}
}

func resolveAversion(channel string, ranked []string, aversions []string) string {
	averted := map[string]bool{}
	for _, aversion := range aversions {
		if mapped := channelForSense(aversion); mapped != "" {
			averted[mapped] = true
		}
	}
	if !averted[channel] {
		return channel
	}
	for _, candidate := range ranked[1:] {
		if !averted[candidate] {
			return candidate
		}
	}
	return breakdomain.ChannelCognitive
}

func (s *Service) excludeRecent(userID string, pool []breakdomain.Activity) []breakdomain.Activity {
	s.mu.Lock()
	recent := s.history[userID]
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}
	recentSet := map[string]bool{}
	for _, id := range recent {
		recentSet[id] = true
	}
	s.mu.Unlock()

	var filtered []breakdomain.Activity
	for _, activity := range pool {
		if !recentSet[activity.ID] {
			filtered = append(filtered, activity)
		}
	}
	if len(filtered) == 0 {
		return pool
	}
	return filtered
}

func (s *Service) recordHistory(userID, activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]string{activityID}, s.history[userID]...)
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	s.history[userID] = entries
}

// alternatives returns up to two alternates: the same channel at the
// next intensity, and physical or cognitive at the same intensity.
func alternatives(chosen breakdomain.Activity) []breakdomain.Activity {
	var out []breakdomain.Activity

	for _, intensity := range []string{breakdomain.IntensityLight, breakdomain.IntensityModerate, breakdomain.IntensityDeep} {
		if intensity == chosen.Intensity {
			continue
		}
		if options := breakdomain.ActivitiesBy(chosen.Channel, intensity); len(options) > 0 {
			out = append(out, options[0])
			break
		}
	}

	altChannel := breakdomain.ChannelPhysical
	if chosen.Channel == breakdomain.ChannelPhysical {
		altChannel = breakdomain.ChannelCognitive
	}
	if options := breakdomain.ActivitiesBy(altChannel, chosen.Intensity); len(options) > 0 {
		out = append(out, options[0])
	}

	return out
}
