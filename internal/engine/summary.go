package engine

import (
	"kvk-tracker/internal/domain"
)

// deltaTopFields are the summary categories led by gains rather than totals.
// Power is the exception: the power leader is whoever is biggest overall.
var deltaTopFields = map[string]bool{
	"kill_points": true,
	"t4_kills":    true,
	"t5_kills":    true,
	"deads":       true,
}

// Summarize computes kingdom-wide totals, averages, and per-category leaders
// for one snapshot.
func (e *Engine) Summarize(players []domain.PlayerDelta) domain.Summary {
	summary := domain.Summary{
		PlayerCount: len(players),
		Totals:      make(map[string]int64, len(domain.StatFields)),
		Averages:    make(map[string]int64, len(domain.StatFields)),
		TopPlayers:  make(map[string]domain.TopPlayer, len(domain.StatFields)),
	}

	if len(players) == 0 {
		return summary
	}

	for _, field := range domain.StatFields {
		var total int64
		best := 0
		var bestValue int64

		for i, p := range players {
			total += p.Stats.Field(field)

			value := p.Stats.Field(field)
			if deltaTopFields[field] {
				value = p.Delta.Field(field)
			}
			if i == 0 || value > bestValue {
				best, bestValue = i, value
			}
		}

		summary.Totals[field] = total
		summary.Averages[field] = total / int64(len(players))
		summary.TopPlayers[field] = domain.TopPlayer{
			GovernorID:   players[best].GovernorID,
			GovernorName: players[best].GovernorName,
			Value:        bestValue,
		}
	}

	return summary
}
