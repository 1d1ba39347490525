package engine

import (
	"sort"

	"kvk-tracker/internal/domain"
)

// Consolidate merges each main (or unclassified) account with its linked farm
// accounts into one combined row, re-ranked by sortKey over the combined
// values. Farm and vacation accounts never appear standalone.
//
// A farm whose link points at a missing account, or at an account that is
// itself a farm, is corrupt data: it is logged and omitted from every total
// rather than failing the board.
func (e *Engine) Consolidate(players []domain.PlayerDelta, sortKey string) []domain.CombinedRow {
	byID := make(map[string]domain.PlayerDelta, len(players))
	for _, p := range players {
		byID[p.GovernorID] = p
	}

	// Group farms under their visible main.
	farmsByMain := make(map[string][]domain.PlayerDelta)
	for _, p := range players {
		if p.AccountType != domain.AccountFarm || p.LinkedToMain == "" {
			continue
		}
		main, ok := byID[p.LinkedToMain]
		if !ok || main.AccountType == domain.AccountFarm {
			e.logger.Warn().
				Str("farm_id", p.GovernorID).
				Str("linked_to", p.LinkedToMain).
				Msg("farm linked to missing or farm account, omitting from consolidation")
			continue
		}
		farmsByMain[p.LinkedToMain] = append(farmsByMain[p.LinkedToMain], p)
	}

	rows := make([]domain.CombinedRow, 0, len(players))
	for _, p := range players {
		if p.AccountType == domain.AccountFarm || p.AccountType == domain.AccountVacation {
			continue
		}

		row := domain.CombinedRow{
			GovernorID:    p.GovernorID,
			GovernorName:  p.GovernorName,
			AccountType:   p.AccountType,
			CombinedStats: p.Stats,
			CombinedDelta: p.Delta,
			MainStats:     p.Stats,
			MainDelta:     p.Delta,
		}
		if row.AccountType == "" {
			row.AccountType = domain.AccountMain
		}

		for _, farm := range farmsByMain[p.GovernorID] {
			row.CombinedStats = row.CombinedStats.Add(farm.Stats)
			row.CombinedDelta = row.CombinedDelta.Add(farm.Delta)
			row.FarmDetails = append(row.FarmDetails, domain.FarmDetail{
				GovernorID:   farm.GovernorID,
				GovernorName: farm.GovernorName,
				Stats:        farm.Stats,
				Delta:        farm.Delta,
			})
		}
		row.FarmCount = len(row.FarmDetails)

		rows = append(rows, row)
	}

	return rankCombined(rows, sortKey)
}

func rankCombined(rows []domain.CombinedRow, sortKey string) []domain.CombinedRow {
	// Reuse the standard sort-key resolution by viewing each combined row
	// through a PlayerDelta shim.
	value := func(r domain.CombinedRow) int64 {
		return SortValue(domain.PlayerDelta{Stats: r.CombinedStats, Delta: r.CombinedDelta}, sortKey)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return value(rows[i]) > value(rows[j])
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}

	return rows
}
