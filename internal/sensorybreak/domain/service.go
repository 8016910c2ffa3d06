package domain

import (
	"context"
	"errors"
)

// Neurotype tags with dedicated channel weights.
const (
	NeurotypeADHD           = "adhd"
	NeurotypeDyslexia       = "dyslexia"
	NeurotypeAutismSpectrum = "autism_spectrum"
)

// Sensory preference and aversion keys accepted in profiles.
const (
	SenseMovement = "movement"
	SenseVisual   = "visual"
	SenseAuditory = "auditory"
	SenseTouch    = "touch"
)

// Profile describes the learner the recommendation is for.
type Profile struct {
	Neurotype          string            `json:"neurotype,omitempty"`
	AttentionSpan      string            `json:"attention_span,omitempty"`
	EnergyPattern      string            `json:"energy_pattern,omitempty"`
	SensoryPreferences map[string]string `json:"sensory_preferences,omitempty"`
	SensoryAversions   []string          `json:"sensory_aversions,omitempty"`
}

// State is an optional snapshot of the learner right now. Both values
// are fractions in [0, 1].
type State struct {
	CognitiveLoad *float64 `json:"cognitive_load,omitempty"`
	EnergyLevel   *float64 `json:"energy_level,omitempty"`
}

// RecommendRequest asks for one break activity.
type RecommendRequest struct {
	UserID  string  `json:"user_id"`
	Profile Profile `json:"profile"`
	State   *State  `json:"state,omitempty"`
}

// Reasoning is the trace of how a recommendation was chosen.
type Reasoning struct {
	LoadLevel  string `json:"load_level"`
	Energizing bool   `json:"energizing"`
	Channel    string `json:"channel"`
	Neurotype  string `json:"neurotype,omitempty"`
}

// Recommendation is one selected activity plus context.
type Recommendation struct {
	Activity        Activity   `json:"activity"`
	DurationMinutes int        `json:"duration_minutes"`
	Reasoning       Reasoning  `json:"reasoning"`
	Benefits        []string   `json:"benefits"`
	Alternatives    []Activity `json:"alternatives,omitempty"`
}

// ScheduleRequest plans breaks across a study session.
type ScheduleRequest struct {
	Profile        Profile `json:"profile"`
	SessionMinutes int     `json:"session_minutes"`
}

// ScheduledBreak is one planned pause inside the session.
type ScheduledBreak struct {
	AtMinute        int `json:"at_minute"`
	DurationMinutes int `json:"duration_minutes"`
}

// SchedulePlan is the full break plan for a session.
type SchedulePlan struct {
	IntervalMinutes      int              `json:"interval_minutes"`
	BreakDurationMinutes int              `json:"break_duration_minutes"`
	Breaks               []ScheduledBreak `json:"breaks"`
}

// AdjustRequest tunes an interval from observed session performance.
// Scores are fractions in [0, 1].
type AdjustRequest struct {
	CurrentIntervalMinutes int     `json:"current_interval_minutes"`
	FocusScore             float64 `json:"focus_score"`
	FatigueScore           float64 `json:"fatigue_score"`
}

// AdjustResponse carries the tuned interval and why it moved.
type AdjustResponse struct {
	IntervalMinutes int    `json:"interval_minutes"`
	Reason          string `json:"reason"`
}

// EffectivenessReport is user feedback about a completed break.
type EffectivenessReport struct {
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
	Rating     int    `json:"rating"`
	Notes      string `json:"notes,omitempty"`
}

// Service recommends, schedules and records sensory breaks.
type Service interface {
	Recommend(ctx context.Context, req RecommendRequest) (Recommendation, error)
	Schedule(ctx context.Context, req ScheduleRequest) (SchedulePlan, error)
	AdjustSchedule(ctx context.Context, req AdjustRequest) (AdjustResponse, error)
	TrackEffectiveness(ctx context.Context, report EffectivenessReport) error
}

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidSession  = errors.New("invalid_session")
	ErrInvalidRating   = errors.New("invalid_rating")
	ErrUnknownActivity = errors.New("unknown_activity")
)
