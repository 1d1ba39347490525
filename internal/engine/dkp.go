package engine

import (
	"sort"

	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
)

// Score derives a player's DKP contribution score. Kill scores use total
// kills, not deltas: kills are cumulative combat value. Death scores count
// only when an admin-verified T4/T5 breakdown exists; an unverified player's
// score is a lower bound, not a true zero.
func (e *Engine) Score(p domain.PlayerDelta, useVerified bool) domain.ContributionScore {
	score := domain.ContributionScore{
		GovernorID:   p.GovernorID,
		GovernorName: p.GovernorName,
		T4KillScore:  p.Stats.T4Kills * constants.T4KillWeight,
		T5KillScore:  p.Stats.T5Kills * constants.T5KillWeight,
	}
	score.TotalKillScore = score.T4KillScore + score.T5KillScore

	if useVerified && p.VerifiedDeaths != nil && p.VerifiedDeaths.Verified {
		score.T4DeathScore = p.VerifiedDeaths.T4Deaths * constants.T4DeathWeight
		score.T5DeathScore = p.VerifiedDeaths.T5Deaths * constants.T5DeathWeight
		score.HasVerifiedDeaths = true
	}
	score.TotalDeathScore = score.T4DeathScore + score.T5DeathScore

	score.TotalContributionScore = score.TotalKillScore + score.TotalDeathScore
	return score
}

// ScoreAll computes contribution scores for every player, sorted by total
// score descending with dense 1-based ranks.
func (e *Engine) ScoreAll(players []domain.PlayerDelta, useVerified bool) []domain.ContributionScore {
	scores := make([]domain.ContributionScore, 0, len(players))
	for _, p := range players {
		scores = append(scores, e.Score(p, useVerified))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalContributionScore > scores[j].TotalContributionScore
	})

	for i := range scores {
		scores[i].Rank = i + 1
	}

	return scores
}
