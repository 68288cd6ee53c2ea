package progress

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/storage"
)

func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	l := zerolog.Nop()
	tracker := NewTracker(storage.NewMemoryStore(), nil, nil, &l)
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker.SetClock(func() time.Time { return current })
	return tracker, &current
}

func TestStreakConsecutiveDays(t *testing.T) {
	tracker, current := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.RecordDailyActivity(ctx, "u1")
	require.NoError(t, err)
	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 1, state.CurrentStreak)

	*current = current.AddDate(0, 0, 1)
	_, err = tracker.RecordDailyActivity(ctx, "u1")
	require.NoError(t, err)
	state, _ = tracker.State(ctx, "u1")
	assert.Equal(t, 2, state.CurrentStreak)

	*current = current.AddDate(0, 0, 1)
	tracker.RecordDailyActivity(ctx, "u1")
	state, _ = tracker.State(ctx, "u1")
	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
}

func TestStreakSkippedDayResets(t *testing.T) {
	tracker, current := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordDailyActivity(ctx, "u1")
	*current = current.AddDate(0, 0, 1)
	tracker.RecordDailyActivity(ctx, "u1")

	*current = current.AddDate(0, 0, 2) // skip one day
	tracker.RecordDailyActivity(ctx, "u1")

	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 2, state.BestStreak, "best streak survives the reset")
}

func TestStreakSameDayRepeatIsNoop(t *testing.T) {
	tracker, current := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordDailyActivity(ctx, "u1")
	*current = current.Add(3 * time.Hour) // later the same day
	tracker.RecordDailyActivity(ctx, "u1")
	tracker.RecordDailyActivity(ctx, "u1")

	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 1, state.CurrentStreak)
}

func TestFirstActivityUnlocksFirstStep(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	unlocked, err := tracker.RecordDailyActivity(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_step", unlocked[0].ID)
	assert.True(t, unlocked[0].Unlocked)

	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 10, state.TotalPoints)
}

func TestUnlockIsIdempotent(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.RecordERPSession(ctx, "u1")
	require.NoError(t, err)
	// first_step and erp_1 both trigger on the first session.
	require.Len(t, first, 2)

	state, _ := tracker.State(ctx, "u1")
	points := state.TotalPoints

	again, err := tracker.RecordERPSession(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again, "already unlocked achievements must not re-unlock")

	state, _ = tracker.State(ctx, "u1")
	assert.Equal(t, points, state.TotalPoints, "points must not be re-added")
}

func TestThresholdAchievements(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	var all []string
	for i := 0; i < 10; i++ {
		unlocked, err := tracker.RecordERPSession(ctx, "u1")
		require.NoError(t, err)
		for _, a := range unlocked {
			all = append(all, a.ID)
		}
	}

	assert.Contains(t, all, "erp_1")
	assert.Contains(t, all, "erp_10")
	assert.NotContains(t, all, "erp_50")

	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 10, state.ERPSessions)
}

func TestResistanceCounter(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	var all []string
	for i := 0; i < 10; i++ {
		unlocked, _ := tracker.RecordCompulsionResistance(ctx, "u1")
		for _, a := range unlocked {
			all = append(all, a.ID)
		}
	}

	assert.Contains(t, all, "resist_10")
	state, _ := tracker.State(ctx, "u1")
	assert.Equal(t, 10, state.Resisted)
}

func TestStreakAchievementUnlocks(t *testing.T) {
	tracker, current := newTestTracker(t)
	ctx := context.Background()

	var all []string
	for day := 0; day < 3; day++ {
		unlocked, _ := tracker.RecordDailyActivity(ctx, "u1")
		for _, a := range unlocked {
			all = append(all, a.ID)
		}
		*current = current.AddDate(0, 0, 1)
	}

	assert.Contains(t, all, "streak_3")
}

func TestAchievementsJoinedView(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordERPSession(ctx, "u1")

	achievements, err := tracker.Achievements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, achievements, len(Catalog()))

	byID := make(map[string]bool)
	for _, a := range achievements {
		byID[a.ID] = a.Unlocked
	}
	assert.True(t, byID["erp_1"])
	assert.False(t, byID["erp_10"])
}
