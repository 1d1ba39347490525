package engine

import (
	"sort"

	"kvk-tracker/internal/domain"
)

// RebuildBaseline re-derives a season baseline from the full upload history.
// Entries are scanned in ascending timestamp order and each player's baseline
// point is the first entry in which they show KvK activity. Players who never
// show activity are omitted: they contribute no deltas and need no anchor.
//
// This is repair tooling for when the live baseline has drifted from actual
// first-appearance data; the caller recomputes current deltas afterwards.
func (e *Engine) RebuildBaseline(history []domain.UploadEntry) []domain.PlayerRecord {
	ordered := make([]domain.UploadEntry, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	seen := make(map[string]bool)
	var rebuilt []domain.PlayerRecord

	for _, entry := range ordered {
		for _, p := range entry.Players {
			if seen[p.GovernorID] || !p.Stats.HasKvKActivity() {
				continue
			}
			seen[p.GovernorID] = true
			rebuilt = append(rebuilt, domain.PlayerRecord{
				GovernorID:   p.GovernorID,
				GovernorName: p.GovernorName,
				Stats:        p.Stats,
			})
		}
	}

	e.logger.Info().
		Int("entries", len(ordered)).
		Int("players", len(rebuilt)).
		Msg("baseline rebuilt from upload history")

	return rebuilt
}
