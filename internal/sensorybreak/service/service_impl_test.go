package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/config"
	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
	"github.com/brightclass/insight/pkg/db"
	"github.com/brightclass/insight/pkg/repository"
)

func setupBreakService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&breakdomain.Effectiveness{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := config.NewOverridesHolder(config.Config{})
	require.NoError(t, err)

	svc := New(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.ProvideStore[breakdomain.Effectiveness](dbConn),
		Overrides: holder,
	}).(*Service)

	return svc, dbConn
}

func floatPtr(v float64) *float64 { return &v }

func TestCatalogShape(t *testing.T) {
	activities := breakdomain.Catalog()
	require.Len(t, activities, 30)

	for _, channel := range breakdomain.Channels {
		for _, intensity := range []string{breakdomain.IntensityLight, breakdomain.IntensityModerate, breakdomain.IntensityDeep} {
			require.Len(t, breakdomain.ActivitiesBy(channel, intensity), 2, "%s/%s", channel, intensity)
		}
	}
}

func TestRecommendDecisionTable(t *testing.T) {
	tests := []struct {
		name          string
		load          float64
		energy        float64
		wantChannel   string
		wantIntensity string
		wantLoad      string
	}{
		{"high load energizing", 0.9, 0.2, breakdomain.ChannelPhysical, breakdomain.IntensityModerate, "high"},
		{"high load calm", 0.9, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityDeep, "high"},
		{"high boundary", 0.8, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityDeep, "high"},
		{"medium load calm", 0.7, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityModerate, "medium"},
		{"medium boundary", 0.6, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityModerate, "medium"},
		{"default load is low", 0.5, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityLight, "low"},
		{"low load", 0.1, 0.9, breakdomain.ChannelPhysical, breakdomain.IntensityLight, "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupBreakService(t)
			svc.randIndex = func(int) int { return 0 }

			// adhd weights rank physical first.
			got, err := svc.Recommend(context.Background(), breakdomain.RecommendRequest{
				UserID:  "u-1",
				Profile: breakdomain.Profile{Neurotype: breakdomain.NeurotypeADHD},
				State: &breakdomain.State{
					CognitiveLoad: floatPtr(tt.load),
					EnergyLevel:   floatPtr(tt.energy),
				},
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantChannel, got.Activity.Channel)
			require.Equal(t, tt.wantIntensity, got.Activity.Intensity)
			require.Equal(t, tt.wantLoad, got.Reasoning.LoadLevel)
		})
	}
}

func TestRecommendLowEnergyPatternEnergizes(t *testing.T) {
	svc, _ := setupBreakService(t)
	svc.randIndex = func(int) int { return 0 }

	// A low energy pattern energizes even when the measured level is
	// high, so high load lands on physical/moderate instead of deep.
	got, err := svc.Recommend(context.Background(), breakdomain.RecommendRequest{
		UserID: "u-1",
		Profile: breakdomain.Profile{
			Neurotype:     breakdomain.NeurotypeADHD,
			EnergyPattern: "low",
		},
		State: &breakdomain.State{
			CognitiveLoad: floatPtr(0.9),
			EnergyLevel:   floatPtr(0.9),
		},
	})
	require.NoError(t, err)
	require.True(t, got.Reasoning.Energizing)
	require.Equal(t, breakdomain.ChannelPhysical, got.Activity.Channel)
	require.Equal(t, breakdomain.IntensityModerate, got.Activity.Intensity)
}

func TestRecommendMediumEnergizingCoinflip(t *testing.T) {
	svc, _ := setupBreakService(t)

	// With visual as the top preference, the coin decides between
	// physical and visual at moderate intensity.
	req := breakdomain.RecommendRequest{
		UserID: "u-1",
		Profile: breakdomain.Profile{
			SensoryPreferences: map[string]string{breakdomain.SenseVisual: "high"},
		},
		State: &breakdomain.State{
			CognitiveLoad: floatPtr(0.7),
			EnergyLevel:   floatPtr(0.2),
		},
	}

	svc.randIndex = func(int) int { return 0 }
	got, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, breakdomain.ChannelPhysical, got.Activity.Channel)

	svc.randIndex = func(n int) int { return n - 1 }
	got, err = svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, breakdomain.ChannelVisual, got.Activity.Channel)
	require.Equal(t, breakdomain.IntensityModerate, got.Activity.Intensity)
}

func TestRecommendNeverPicksAvertedChannel(t *testing.T) {
	svc, _ := setupBreakService(t)

	// Movement averted while adhd weights would otherwise put physical
	// on top; no recommendation may land on the physical channel.
	req := breakdomain.RecommendRequest{
		UserID: "u-1",
		Profile: breakdomain.Profile{
			Neurotype:        breakdomain.NeurotypeADHD,
			SensoryAversions: []string{breakdomain.SenseMovement},
		},
		State: &breakdomain.State{
			CognitiveLoad: floatPtr(0.9),
			EnergyLevel:   floatPtr(0.2),
		},
	}

	for i := 0; i < 20; i++ {
		got, err := svc.Recommend(context.Background(), req)
		require.NoError(t, err)
		require.NotEqual(t, breakdomain.ChannelPhysical, got.Activity.Channel)
	}
}

func TestRecommendHistoryExclusion(t *testing.T) {
	svc, _ := setupBreakService(t)
	svc.randIndex = func(int) int { return 0 }

	req := breakdomain.RecommendRequest{
		UserID:  "u-1",
		Profile: breakdomain.Profile{Neurotype: breakdomain.NeurotypeADHD},
		State: &breakdomain.State{
			CognitiveLoad: floatPtr(0.9),
			EnergyLevel:   floatPtr(0.9),
		},
	}

	first, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	// The first pick sits in the exclusion window, so the second call
	// is forced onto the other entry of the pair.
	second, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, first.Activity.ID, second.Activity.ID)
	require.Equal(t, first.Activity.Channel, second.Activity.Channel)

	// Both entries are now recent; excluding them would empty the pool,
	// so the exclusion is skipped and repeats become possible again.
	third, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.Activity.ID, third.Activity.ID)
}

func TestRecommendHistoryBounded(t *testing.T) {
	svc, _ := setupBreakService(t)

	req := breakdomain.RecommendRequest{
		UserID:  "u-1",
		Profile: breakdomain.Profile{},
	}
	for i := 0; i < 25; i++ {
		_, err := svc.Recommend(context.Background(), req)
		require.NoError(t, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.LessOrEqual(t, len(svc.history["u-1"]), 10)
}

func TestRecommendRejectsEmptyUser(t *testing.T) {
	svc, _ := setupBreakService(t)

	_, err := svc.Recommend(context.Background(), breakdomain.RecommendRequest{UserID: " "})
	require.ErrorIs(t, err, breakdomain.ErrInvalidUser)
}

func TestRecommendAlternatives(t *testing.T) {
	svc, _ := setupBreakService(t)
	svc.randIndex = func(int) int { return 0 }

	got, err := svc.Recommend(context.Background(), breakdomain.RecommendRequest{
		UserID:  "u-1",
		Profile: breakdomain.Profile{Neurotype: breakdomain.NeurotypeADHD},
		State: &breakdomain.State{
			CognitiveLoad: floatPtr(0.9),
			EnergyLevel:   floatPtr(0.9),
		},
	})
	require.NoError(t, err)
	require.Equal(t, breakdomain.ChannelPhysical, got.Activity.Channel)
	require.Len(t, got.Alternatives, 2)
	require.Equal(t, breakdomain.ChannelPhysical, got.Alternatives[0].Channel)
	require.NotEqual(t, got.Activity.Intensity, got.Alternatives[0].Intensity)
	require.Equal(t, breakdomain.ChannelCognitive, got.Alternatives[1].Channel)
	require.Equal(t, got.Activity.Intensity, got.Alternatives[1].Intensity)
}

func TestScheduleIntervals(t *testing.T) {
	svc, _ := setupBreakService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		profile  breakdomain.Profile
		interval int
	}{
		{"adhd", breakdomain.Profile{Neurotype: breakdomain.NeurotypeADHD}, 20},
		{"short span", breakdomain.Profile{AttentionSpan: "short"}, 25},
		{"long span", breakdomain.Profile{AttentionSpan: "long"}, 40},
		{"default", breakdomain.Profile{}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := svc.Schedule(ctx, breakdomain.ScheduleRequest{
				Profile:        tt.profile,
				SessionMinutes: 90,
			})
			require.NoError(t, err)
			require.Equal(t, tt.interval, plan.IntervalMinutes)
			require.Equal(t, 3, plan.BreakDurationMinutes)
			for i, scheduled := range plan.Breaks {
				require.Equal(t, (i+1)*tt.interval, scheduled.AtMinute)
			}
		})
	}

	_, err := svc.Schedule(ctx, breakdomain.ScheduleRequest{SessionMinutes: 0})
	require.ErrorIs(t, err, breakdomain.ErrInvalidSession)
}

func TestAdjustSchedule(t *testing.T) {
	svc, _ := setupBreakService(t)
	ctx := context.Background()

	shorter, err := svc.AdjustSchedule(ctx, breakdomain.AdjustRequest{
		CurrentIntervalMinutes: 30,
		FocusScore:             0.3,
		FatigueScore:           0.5,
	})
	require.NoError(t, err)
	require.Equal(t, 25, shorter.IntervalMinutes)

	longer, err := svc.AdjustSchedule(ctx, breakdomain.AdjustRequest{
		CurrentIntervalMinutes: 30,
		FocusScore:             0.9,
		FatigueScore:           0.1,
	})
	require.NoError(t, err)
	require.Equal(t, 35, longer.IntervalMinutes)

	clampedLow, err := svc.AdjustSchedule(ctx, breakdomain.AdjustRequest{
		CurrentIntervalMinutes: 16,
		FocusScore:             0.1,
		FatigueScore:           0.9,
	})
	require.NoError(t, err)
	require.Equal(t, 15, clampedLow.IntervalMinutes)

	unchanged, err := svc.AdjustSchedule(ctx, breakdomain.AdjustRequest{
		CurrentIntervalMinutes: 30,
		FocusScore:             0.6,
		FatigueScore:           0.5,
	})
	require.NoError(t, err)
	require.Equal(t, 30, unchanged.IntervalMinutes)
}

func TestTrackEffectiveness(t *testing.T) {
	svc, dbConn := setupBreakService(t)
	ctx := context.Background()

	require.NoError(t, svc.TrackEffectiveness(ctx, breakdomain.EffectivenessReport{
		UserID:     "u-1",
		ActivityID: "physical-light-1",
		Rating:     4,
		Notes:      "helped a lot",
	}))

	var rows []breakdomain.Effectiveness
	require.NoError(t, dbConn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "physical-light-1", rows[0].ActivityID)
	require.Equal(t, 4, rows[0].Rating)

	err := svc.TrackEffectiveness(ctx, breakdomain.EffectivenessReport{
		UserID: "u-1", ActivityID: "nope", Rating: 4,
	})
	require.ErrorIs(t, err, breakdomain.ErrUnknownActivity)

	err = svc.TrackEffectiveness(ctx, breakdomain.EffectivenessReport{
		UserID: "u-1", ActivityID: "physical-light-1", Rating: 9,
	})
	require.ErrorIs(t, err, breakdomain.ErrInvalidRating)

	err = svc.TrackEffectiveness(ctx, breakdomain.EffectivenessReport{
		ActivityID: "physical-light-1", Rating: 3,
	})
	require.ErrorIs(t, err, breakdomain.ErrInvalidUser)
}
