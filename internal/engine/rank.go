package engine

import (
	"sort"
	"strings"

	"kvk-tracker/internal/domain"
)

const gainedSuffix = "_gained"

// SortValue resolves a sort key against one row. Keys ending in "_gained"
// read the delta vector; anything else reads the raw stats. Unknown fields
// resolve to 0 so a bad key degrades to input-order ranking instead of
// failing the request.
func SortValue(p domain.PlayerDelta, sortKey string) int64 {
	if field, ok := strings.CutSuffix(sortKey, gainedSuffix); ok {
		return p.Delta.Field(field)
	}
	return p.Stats.Field(sortKey)
}

// Rank returns a sorted copy of players with dense 1-based ranks assigned by
// position. Descending by default. Ties keep their input order; the tie-break
// is deterministic for a given input but carries no meaning of its own.
func (e *Engine) Rank(players []domain.PlayerDelta, sortKey string, ascending bool) []domain.PlayerDelta {
	ranked := make([]domain.PlayerDelta, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := SortValue(ranked[i], sortKey), SortValue(ranked[j], sortKey)
		if ascending {
			return a < b
		}
		return a > b
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
