package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/events"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/metrics"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// Tracker maintains the gamification counters and evaluates the
// achievement catalog after every recordable event. It is constructed
// and injected, never a package-level singleton; all state lives in the
// KV store.
type Tracker struct {
	store  domain.Store
	syncer domain.Syncer
	bus    domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewTracker(store domain.Store, syncer domain.Syncer, bus domain.EventPublisher, logger *zerolog.Logger) *Tracker {
	return &Tracker{store: store, syncer: syncer, bus: bus, logger: logger, now: time.Now}
}

// SetClock overrides the time source; streak tests depend on it.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// RecordERPSession counts a completed ERP exercise.
func (t *Tracker) RecordERPSession(ctx context.Context, userID string) ([]models.Achievement, error) {
	return t.record(ctx, userID, func(state *models.UserProgress) {
		state.ERPSessions++
	})
}

// RecordCompulsionResistance counts a resisted compulsion.
func (t *Tracker) RecordCompulsionResistance(ctx context.Context, userID string) ([]models.Achievement, error) {
	return t.record(ctx, userID, func(state *models.UserProgress) {
		state.Resisted++
	})
}

// RecordDailyActivity only touches the streak; any app interaction that
// should keep the chain alive routes here.
func (t *Tracker) RecordDailyActivity(ctx context.Context, userID string) ([]models.Achievement, error) {
	return t.record(ctx, userID, func(state *models.UserProgress) {})
}

// State returns the persisted counters, zero-valued for a new user.
func (t *Tracker) State(ctx context.Context, userID string) (*models.UserProgress, error) {
	raw, ok, err := t.store.Get(ctx, models.KeyProgress(userID))
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	state := &models.UserProgress{UserID: userID}
	if ok {
		if err := json.Unmarshal([]byte(raw), state); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
	}
	if state.Unlocked == nil {
		state.Unlocked = make(map[string]models.AchievementUnlock)
	}
	return state, nil
}

// Achievements joins the catalog with the user's unlock state.
func (t *Tracker) Achievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	state, err := t.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Achievement, 0, len(catalog))
	for _, def := range catalog {
		a := models.Achievement{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Metric:      def.Metric,
			Requirement: def.Requirement,
			Points:      def.Points,
			Progress:    metricValue(state, def.Metric),
		}
		if unlock, ok := state.Unlocked[def.ID]; ok {
			a.Unlocked = true
			unlockedAt := unlock.UnlockedAt
			a.UnlockedAt = &unlockedAt
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *Tracker) record(ctx context.Context, userID string, mutate func(*models.UserProgress)) ([]models.Achievement, error) {
	state, err := t.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutate(state)
	t.touchStreak(state)

	unlocked := t.evaluate(state)
	state.UpdatedAt = t.now()

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	if err := t.store.Set(ctx, models.KeyProgress(userID), string(data)); err != nil {
		return nil, fmt.Errorf("persist progress: %w", err)
	}

	for i := range unlocked {
		metrics.IncAchievementUnlocked()
		t.logger.Info().Str("user", userID).Str("achievement", unlocked[i].ID).Msg("achievement unlocked")
		if t.bus != nil {
			t.bus.PublishJSON(events.EventAchievementUnlocked, unlocked[i])
		}
	}

	if t.syncer != nil {
		snapshot := *state
		t.syncer.Enqueue(ctx, models.OpCreate, models.EntityUserProgress, models.SyncPayload{Progress: &snapshot})
		for i := range unlocked {
			achievement := unlocked[i]
			t.syncer.Enqueue(ctx, models.OpCreate, models.EntityAchievement, models.SyncPayload{Achievement: &achievement})
		}
	}

	return unlocked, nil
}

// touchStreak advances the daily streak: consecutive calendar days grow
// it, a gap resets it to 1, repeats within the same day change nothing.
func (t *Tracker) touchStreak(state *models.UserProgress) {
	today := t.now().Format(models.DateLayout)
	if state.LastActiveDate == today {
		return
	}

	yesterday := t.now().AddDate(0, 0, -1).Format(models.DateLayout)
	if state.LastActiveDate == yesterday {
		state.CurrentStreak++
	} else {
		state.CurrentStreak = 1
	}
	state.LastActiveDate = today
	if state.CurrentStreak > state.BestStreak {
		state.BestStreak = state.CurrentStreak
	}
}

// evaluate unlocks any not-yet-unlocked definition whose metric now
// meets its requirement. Sequential evaluation means points earned by an
// earlier unlock count toward point-based achievements later in the
// catalog.
func (t *Tracker) evaluate(state *models.UserProgress) []models.Achievement {
	var unlocked []models.Achievement
	now := t.now()

	for _, def := range catalog {
		if _, done := state.Unlocked[def.ID]; done {
			continue
		}
		value := metricValue(state, def.Metric)
		if value < def.Requirement {
			continue
		}

		state.Unlocked[def.ID] = models.AchievementUnlock{UnlockedAt: now, Points: def.Points}
		state.TotalPoints += def.Points

		unlockedAt := now
		unlocked = append(unlocked, models.Achievement{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Metric:      def.Metric,
			Requirement: def.Requirement,
			Points:      def.Points,
			Progress:    value,
			Unlocked:    true,
			UnlockedAt:  &unlockedAt,
		})
	}
	return unlocked
}

func metricValue(state *models.UserProgress, metric string) int {
	switch metric {
	case MetricERPSessions:
		return state.ERPSessions
	case MetricResisted:
		return state.Resisted
	case MetricStreak:
		return state.CurrentStreak
	case MetricPoints:
		return state.TotalPoints
	case MetricAnyActivity:
		if state.LastActiveDate != "" {
			return 1
		}
		return 0
	default:
		return 0
	}
}
