package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/events"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

// The Y-BOCS is a fixed 10-item instrument: five obsession questions and
// five compulsion questions, each answered 0..4.
var (
	ObsessionQuestions  = []string{"obs_1", "obs_2", "obs_3", "obs_4", "obs_5"}
	CompulsionQuestions = []string{"comp_1", "comp_2", "comp_3", "comp_4", "comp_5"}
)

const (
	MaxAnswer     = 4
	MaxTotalScore = 40
)

// Severity bands, inclusive lower bounds checked from highest to lowest.
const (
	SeveritySubclinical = "Subclinical"
	SeverityMild        = "Mild"
	SeverityModerate    = "Moderate"
	SeveritySevere      = "Severe"
	SeverityExtreme     = "Extreme"
)

// Result is one scored Y-BOCS submission.
type Result struct {
	ObsessionScore  int       `json:"obsession_score"`
	CompulsionScore int       `json:"compulsion_score"`
	TotalScore      int       `json:"total_score"`
	Severity        string    `json:"severity"`
	TakenAt         time.Time `json:"taken_at"`
}

// Score sums the two subscales and classifies severity. Missing or
// out-of-range answers count as 0; callers wanting strictness run
// Validate first.
func Score(answers map[string]int) Result {
	obsession := sumAnswers(answers, ObsessionQuestions)
	compulsion := sumAnswers(answers, CompulsionQuestions)
	total := obsession + compulsion

	return Result{
		ObsessionScore:  obsession,
		CompulsionScore: compulsion,
		TotalScore:      total,
		Severity:        ClassifySeverity(total),
	}
}

// Validate rejects unknown question ids and out-of-range answers instead
// of silently zeroing them.
func Validate(answers map[string]int) error {
	known := make(map[string]bool, 10)
	for _, id := range ObsessionQuestions {
		known[id] = true
	}
	for _, id := range CompulsionQuestions {
		known[id] = true
	}

	for id, answer := range answers {
		if !known[id] {
			return fmt.Errorf("unknown question id %q", id)
		}
		if answer < 0 || answer > MaxAnswer {
			return fmt.Errorf("answer for %q out of range: %d", id, answer)
		}
	}
	for id := range known {
		if _, ok := answers[id]; !ok {
			return fmt.Errorf("missing answer for %q", id)
		}
	}
	return nil
}

// ClassifySeverity maps a total score onto the standard bands.
func ClassifySeverity(total int) string {
	switch {
	case total >= 32:
		return SeverityExtreme
	case total >= 24:
		return SeveritySevere
	case total >= 16:
		return SeverityModerate
	case total >= 8:
		return SeverityMild
	default:
		return SeveritySubclinical
	}
}

func sumAnswers(answers map[string]int, ids []string) int {
	sum := 0
	for _, id := range ids {
		answer := answers[id]
		if answer < 0 || answer > MaxAnswer {
			continue
		}
		sum += answer
	}
	return sum
}

// Service persists assessment history and announces new results.
type Service struct {
	store  domain.Store
	bus    domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store domain.Store, bus domain.EventPublisher, logger *zerolog.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger, now: time.Now}
}

// Record scores the submission and appends it to the user's history.
func (s *Service) Record(ctx context.Context, userID string, answers map[string]int) (Result, error) {
	result := Score(answers)
	result.TakenAt = s.now()

	history, err := s.History(ctx, userID)
	if err != nil {
		// Degrade to an empty history rather than losing the new result.
		s.logger.Error().Err(err).Str("user", userID).Msg("load assessment history failed")
		history = []Result{}
	}
	history = append(history, result)

	data, err := json.Marshal(history)
	if err != nil {
		return result, fmt.Errorf("encode assessment history: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyAssessments(userID), string(data)); err != nil {
		return result, fmt.Errorf("persist assessment history: %w", err)
	}

	if s.bus != nil {
		s.bus.PublishJSON(events.EventAssessmentRecorded, result)
	}
	s.logger.Info().Str("user", userID).Int("total", result.TotalScore).Str("severity", result.Severity).Msg("assessment recorded")
	return result, nil
}

// History returns past results in submission order.
func (s *Service) History(ctx context.Context, userID string) ([]Result, error) {
	raw, ok, err := s.store.Get(ctx, models.KeyAssessments(userID))
	if err != nil {
		return nil, fmt.Errorf("get assessment history: %w", err)
	}
	if !ok {
		return []Result{}, nil
	}
	var history []Result
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode assessment history: %w", err)
	}
	return history, nil
}
