package reaction

import (
	"testing"

	"github.com/mcdev12/reactionduel/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reactionRound(index int, ms int64) models.Round {
	return models.Round{
		Index:          index,
		Phase:          models.PhaseResult,
		ResponseTimeMs: &ms,
		IsPerfect:      IsPerfect(ms, 200),
		ClickedBy:      models.SidePlayer1,
		Winner:         models.SidePlayer1,
	}
}

func foulRound(index int) models.Round {
	return models.Round{
		Index:     index,
		Phase:     models.PhaseResult,
		IsFoul:    true,
		ClickedBy: models.SidePlayer1,
		Winner:    models.SidePlayer2,
	}
}

func TestIsPerfect_Boundary(t *testing.T) {
	assert.True(t, IsPerfect(0, 200))
	assert.True(t, IsPerfect(199, 200))
	assert.False(t, IsPerfect(200, 200))
	assert.False(t, IsPerfect(201, 200))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.ResponseTimesMs)
	assert.Nil(t, s.BestTimeMs)
	assert.Zero(t, s.PerfectCount)
	assert.Zero(t, s.Combo)
	assert.Nil(t, s.AverageMs())
}

func TestSummarize_Combo(t *testing.T) {
	tests := []struct {
		name      string
		rounds    []models.Round
		wantCombo int
		wantPerf  int
	}{
		{
			name:      "consecutive perfect rounds increment",
			rounds:    []models.Round{reactionRound(1, 150), reactionRound(2, 199)},
			wantCombo: 2,
			wantPerf:  2,
		},
		{
			name:      "foul resets",
			rounds:    []models.Round{reactionRound(1, 150), foulRound(2)},
			wantCombo: 0,
			wantPerf:  1,
		},
		{
			name:      "slow reaction resets",
			rounds:    []models.Round{reactionRound(1, 150), reactionRound(2, 200)},
			wantCombo: 0,
			wantPerf:  1,
		},
		{
			name:      "counts again after reset",
			rounds:    []models.Round{reactionRound(1, 150), foulRound(2), reactionRound(3, 120)},
			wantCombo: 1,
			wantPerf:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.rounds)
			assert.Equal(t, tt.wantCombo, s.Combo)
			assert.Equal(t, tt.wantPerf, s.PerfectCount)
		})
	}
}

func TestSummarize_BestAndAverage(t *testing.T) {
	s := Summarize([]models.Round{
		reactionRound(1, 301),
		foulRound(2),
		reactionRound(3, 250),
	})

	assert.Equal(t, []int64{301, 250}, s.ResponseTimesMs)
	require.NotNil(t, s.BestTimeMs)
	assert.Equal(t, int64(250), *s.BestTimeMs)

	// 275.5 rounds half-up
	avg := s.AverageMs()
	require.NotNil(t, avg)
	assert.Equal(t, int64(276), *avg)
}

func TestSummarize_SkipsUnresolvedRounds(t *testing.T) {
	pending := models.Round{Index: 2, Phase: models.PhaseSet}
	s := Summarize([]models.Round{reactionRound(1, 150), pending})
	assert.Equal(t, 1, s.Combo)
	assert.Len(t, s.ResponseTimesMs, 1)
}

func TestRecorder_MatchesReplay(t *testing.T) {
	rounds := []models.Round{
		reactionRound(1, 180),
		reactionRound(2, 120),
		foulRound(3),
	}

	var rec Recorder
	for i, r := range rounds {
		prev := rec
		rec = rec.Record(r)
		assert.Equal(t, i, prev.Len(), "Record must not modify its receiver")
		assert.Equal(t, Summarize(rounds[:i+1]), rec.Summary())
	}
}

func TestRecorder_IgnoresUnresolved(t *testing.T) {
	rec := Recorder{}.Record(models.Round{Index: 1, Phase: models.PhaseGo})
	assert.Zero(t, rec.Len())
}
