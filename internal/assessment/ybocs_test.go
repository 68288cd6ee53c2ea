package assessment

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/storage"
)

func answersWithTotal(total int) map[string]int {
	answers := make(map[string]int, 10)
	ids := append(append([]string{}, ObsessionQuestions...), CompulsionQuestions...)
	for _, id := range ids {
		answers[id] = 0
	}
	for _, id := range ids {
		if total <= 0 {
			break
		}
		v := total
		if v > MaxAnswer {
			v = MaxAnswer
		}
		answers[id] = v
		total -= v
	}
	return answers
}

func TestScoreSumsSubscales(t *testing.T) {
	answers := map[string]int{
		"obs_1": 1, "obs_2": 2, "obs_3": 3, "obs_4": 4, "obs_5": 0,
		"comp_1": 4, "comp_2": 3, "comp_3": 2, "comp_4": 1, "comp_5": 0,
	}

	result := Score(answers)
	assert.Equal(t, 10, result.ObsessionScore)
	assert.Equal(t, 10, result.CompulsionScore)
	assert.Equal(t, 20, result.TotalScore)
	assert.Equal(t, result.ObsessionScore+result.CompulsionScore, result.TotalScore)
}

func TestScoreSeverityBoundaries(t *testing.T) {
	cases := []struct {
		total    int
		severity string
	}{
		{0, SeveritySubclinical},
		{7, SeveritySubclinical},
		{8, SeverityMild},
		{15, SeverityMild},
		{16, SeverityModerate},
		{23, SeverityModerate},
		{24, SeveritySevere},
		{31, SeveritySevere},
		{32, SeverityExtreme},
		{40, SeverityExtreme},
	}

	for _, tc := range cases {
		result := Score(answersWithTotal(tc.total))
		assert.Equal(t, tc.total, result.TotalScore, "total %d", tc.total)
		assert.Equal(t, tc.severity, result.Severity, "total %d", tc.total)
	}
}

func TestScoreTreatsMissingAndInvalidAsZero(t *testing.T) {
	result := Score(map[string]int{
		"obs_1":  9, // out of range, counts as 0
		"obs_2":  -1,
		"comp_1": 3,
	})

	assert.Equal(t, 0, result.ObsessionScore)
	assert.Equal(t, 3, result.CompulsionScore)
	assert.Equal(t, 3, result.TotalScore)
	assert.Equal(t, SeveritySubclinical, result.Severity)
}

func TestScoreRange(t *testing.T) {
	result := Score(answersWithTotal(40))
	assert.Equal(t, 40, result.TotalScore)
	assert.LessOrEqual(t, result.TotalScore, MaxTotalScore)
}

func TestValidate(t *testing.T) {
	valid := answersWithTotal(10)
	assert.NoError(t, Validate(valid))

	invalid := answersWithTotal(10)
	invalid["obs_1"] = 5
	assert.Error(t, Validate(invalid))

	unknown := answersWithTotal(10)
	unknown["obs_99"] = 1
	assert.Error(t, Validate(unknown))

	missing := answersWithTotal(10)
	delete(missing, "comp_3")
	assert.Error(t, Validate(missing))
}

func TestServiceRecordAppendsHistory(t *testing.T) {
	l := zerolog.Nop()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil, &l)
	ctx := context.Background()

	first, err := svc.Record(ctx, "u1", answersWithTotal(12))
	require.NoError(t, err)
	assert.Equal(t, SeverityMild, first.Severity)
	assert.False(t, first.TakenAt.IsZero())

	second, err := svc.Record(ctx, "u1", answersWithTotal(25))
	require.NoError(t, err)
	assert.Equal(t, SeveritySevere, second.Severity)

	history, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 12, history[0].TotalScore)
	assert.Equal(t, 25, history[1].TotalScore)
}
