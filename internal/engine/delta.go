// Package engine implements the snapshot delta and ranking core: per-player
// deltas against a season baseline, leaderboard ranking, main/farm
// consolidation, contribution scoring, and baseline replay from upload
// history. The engine is stateless pure computation over supplied data;
// persistence and caching live with the callers.
package engine

import (
	"errors"

	"kvk-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrBaselineRequired is returned when delta computation is attempted without
// a baseline. Uploads for a season must start with one.
var ErrBaselineRequired = errors.New("engine: baseline required")

type Engine struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger}
}

// DeltaResult carries the computed rows plus the players that must be folded
// into the persisted baseline by the caller.
type DeltaResult struct {
	Players []domain.PlayerDelta

	// BaselineUpserts are new or returning players whose current stats
	// become their baseline point going forward. Upsert semantics:
	// insert if absent, overwrite if present.
	BaselineUpserts []domain.PlayerRecord
}

// ComputeDeltas compares a current snapshot against the season baseline.
//
// Three cases per current player:
//   - known and active: delta = current - baseline, field-wise, negatives
//     surfaced as-is;
//   - known but with zero KvK activity (migrated out or game-side reset):
//     zero delta, and the displayed stats revert to the last baseline stats
//     so a temporarily vanished account does not collapse its row;
//   - unknown: zero delta, current stats queued as the new baseline point.
//
// The activity test ignores power: a power-only record is inactive for KvK
// purposes.
func (e *Engine) ComputeDeltas(baseline []domain.PlayerRecord, current []domain.PlayerRecord) (DeltaResult, error) {
	if baseline == nil {
		return DeltaResult{}, ErrBaselineRequired
	}

	byID := make(map[string]domain.StatVector, len(baseline))
	for _, p := range baseline {
		byID[p.GovernorID] = p.Stats
	}

	result := DeltaResult{Players: make([]domain.PlayerDelta, 0, len(current))}

	for _, p := range current {
		baseStats, inBaseline := byID[p.GovernorID]
		active := p.Stats.HasKvKActivity()

		row := domain.PlayerDelta{
			GovernorID:   p.GovernorID,
			GovernorName: p.GovernorName,
			Stats:        p.Stats,
			InBaseline:   inBaseline,
		}

		switch {
		case inBaseline && active:
			row.Delta = p.Stats.Sub(baseStats)

		case inBaseline && !active:
			// Migrated out or reset. Keep the last known baseline stats
			// on display and hold the delta at zero until real activity
			// reappears.
			row.Stats = baseStats
			e.logger.Info().
				Str("governor_id", p.GovernorID).
				Str("governor_name", p.GovernorName).
				Msg("player inactive, preserving baseline stats")

		default:
			// New or returning player: re-anchor their baseline here.
			row.NewlyAddedToBaseline = true
			result.BaselineUpserts = append(result.BaselineUpserts, domain.PlayerRecord{
				GovernorID:   p.GovernorID,
				GovernorName: p.GovernorName,
				Stats:        p.Stats,
			})
			e.logger.Info().
				Str("governor_id", p.GovernorID).
				Str("governor_name", p.GovernorName).
				Msg("new player, anchoring baseline to current stats")
		}

		result.Players = append(result.Players, row)
	}

	if n := len(result.BaselineUpserts); n > 0 {
		e.logger.Info().Int("count", n).Msg("players queued for baseline amendment")
	}

	return result, nil
}

// UpsertBaseline folds amendment records into a baseline player list:
// insert if absent, overwrite if an entry already exists. The latter covers
// accounts that reset and came back under the same governor id.
func UpsertBaseline(players []domain.PlayerRecord, upserts []domain.PlayerRecord) []domain.PlayerRecord {
	index := make(map[string]int, len(players))
	for i, p := range players {
		index[p.GovernorID] = i
	}

	for _, u := range upserts {
		if i, ok := index[u.GovernorID]; ok {
			players[i] = u
		} else {
			index[u.GovernorID] = len(players)
			players = append(players, u)
		}
	}

	return players
}

// CarryClassification copies classification, rank, and verified death fields
// from a previous snapshot's rows onto freshly computed rows. Recomputing
// deltas must not wipe admin-entered data.
func CarryClassification(fresh []domain.PlayerDelta, previous []domain.PlayerDelta) []domain.PlayerDelta {
	if len(previous) == 0 {
		return fresh
	}

	prevByID := make(map[string]domain.PlayerDelta, len(previous))
	for _, p := range previous {
		prevByID[p.GovernorID] = p
	}

	for i := range fresh {
		prev, ok := prevByID[fresh[i].GovernorID]
		if !ok {
			continue
		}
		fresh[i].AccountType = prev.AccountType
		fresh[i].IsDeadWeight = prev.IsDeadWeight
		fresh[i].LinkedToMain = prev.LinkedToMain
		fresh[i].FarmAccounts = prev.FarmAccounts
		fresh[i].ClassificationNotes = prev.ClassificationNotes
		fresh[i].VerifiedDeaths = prev.VerifiedDeaths
	}

	return fresh
}
