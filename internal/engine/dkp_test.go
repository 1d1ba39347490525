package engine

import (
	"testing"

	"kvk-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreKillPointsOnly(t *testing.T) {
	p := domain.PlayerDelta{
		GovernorID: "1001",
		Stats:      domain.StatVector{T4Kills: 10, T5Kills: 5},
	}

	score := testEngine().Score(p, true)

	assert.Equal(t, int64(10), score.T4KillScore)
	assert.Equal(t, int64(10), score.T5KillScore)
	assert.Equal(t, int64(20), score.TotalKillScore)
	assert.Equal(t, int64(0), score.TotalDeathScore)
	assert.Equal(t, int64(20), score.TotalContributionScore)
	assert.False(t, score.HasVerifiedDeaths)
}

func TestScoreVerifiedDeathsCounted(t *testing.T) {
	p := domain.PlayerDelta{
		GovernorID: "1001",
		Stats:      domain.StatVector{T4Kills: 10, T5Kills: 5},
		VerifiedDeaths: &domain.VerifiedDeaths{
			T4Deaths: 3,
			T5Deaths: 2,
			Verified: true,
		},
	}

	score := testEngine().Score(p, true)

	assert.Equal(t, int64(12), score.T4DeathScore)
	assert.Equal(t, int64(16), score.T5DeathScore)
	assert.Equal(t, int64(28), score.TotalDeathScore)
	assert.Equal(t, int64(48), score.TotalContributionScore)
	assert.True(t, score.HasVerifiedDeaths)
}

func TestScoreUnverifiedDeathsIgnored(t *testing.T) {
	p := domain.PlayerDelta{
		GovernorID: "1001",
		Stats:      domain.StatVector{T4Kills: 10, Deads: 10_000},
		VerifiedDeaths: &domain.VerifiedDeaths{
			T4Deaths: 3,
			T5Deaths: 2,
			Verified: false,
		},
	}

	score := testEngine().Score(p, true)

	assert.Equal(t, int64(0), score.TotalDeathScore, "pending review contributes nothing")
	assert.Equal(t, int64(10), score.TotalContributionScore)
	assert.False(t, score.HasVerifiedDeaths)
}

func TestScoreAllSortedWithRanks(t *testing.T) {
	players := []domain.PlayerDelta{
		{GovernorID: "low", Stats: domain.StatVector{T4Kills: 1}},
		{GovernorID: "high", Stats: domain.StatVector{T5Kills: 100}},
		{GovernorID: "mid", Stats: domain.StatVector{T4Kills: 50}},
	}

	scores := testEngine().ScoreAll(players, true)

	require.Len(t, scores, 3)
	assert.Equal(t, "high", scores[0].GovernorID)
	assert.Equal(t, "mid", scores[1].GovernorID)
	assert.Equal(t, "low", scores[2].GovernorID)
	for i, sc := range scores {
		assert.Equal(t, i+1, sc.Rank)
	}
}
