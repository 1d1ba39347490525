package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"kvk-tracker/internal/cache"
	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/engine"
	"kvk-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ErrClassificationConflict rejects a classify/link operation that would
// violate the farm-linking invariants. Mutations are validated before any
// write; a rejected operation changes nothing.
var ErrClassificationConflict = errors.New("service: classification conflict")

// ClassificationService maintains account types and farm-to-main links on the
// current snapshot, and serves the consolidated leaderboard.
type ClassificationService struct {
	eng       *engine.Engine
	snapshots *repository.SnapshotRepository
	cache     *cache.Cache
	logger    zerolog.Logger
}

func NewClassificationService(
	eng *engine.Engine,
	snapshots *repository.SnapshotRepository,
	c *cache.Cache,
	logger zerolog.Logger,
) *ClassificationService {
	return &ClassificationService{eng: eng, snapshots: snapshots, cache: c, logger: logger}
}

// Classify sets a player's account type, dead-weight flag, and notes.
// Referential integrity is kept in the same write: a farm reclassified to
// main or vacation is unlinked from its former main, and an account becoming
// a farm loses its own farm list (farms cannot have dependents).
func (s *ClassificationService) Classify(ctx context.Context, seasonID, governorID string, accountType domain.AccountType, isDeadWeight bool, notes string) error {
	if !accountType.Valid() {
		return fmt.Errorf("%w: unknown account type %q", ErrClassificationConflict, accountType)
	}

	return s.mutate(ctx, seasonID, func(players []domain.PlayerDelta, index map[string]int) error {
		i, ok := index[governorID]
		if !ok {
			return fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
		}

		player := &players[i]

		// Leaving the farm type clears the farm's link both ways.
		if player.AccountType == domain.AccountFarm && accountType != domain.AccountFarm && player.LinkedToMain != "" {
			if j, ok := index[player.LinkedToMain]; ok {
				players[j].FarmAccounts = removeString(players[j].FarmAccounts, governorID)
			}
			player.LinkedToMain = ""
		}

		// Becoming a farm: shed any dependents of our own.
		if accountType == domain.AccountFarm {
			for _, farmID := range player.FarmAccounts {
				if j, ok := index[farmID]; ok {
					players[j].LinkedToMain = ""
				}
			}
			player.FarmAccounts = nil
		}

		player.AccountType = accountType
		player.IsDeadWeight = isDeadWeight
		player.ClassificationNotes = notes

		s.logger.Info().
			Str("season_id", seasonID).
			Str("governor_id", governorID).
			Str("account_type", string(accountType)).
			Bool("is_dead_weight", isDeadWeight).
			Msg("player classified")
		return nil
	})
}

// Link attaches a farm to a main account. The farm must be classified farm,
// the main must not be a farm, and self-links are rejected. A farm already
// linked elsewhere is moved: last link wins, never multi-main.
func (s *ClassificationService) Link(ctx context.Context, seasonID, farmID, mainID string) error {
	if farmID == mainID {
		return fmt.Errorf("%w: cannot link %s to itself", ErrClassificationConflict, farmID)
	}

	return s.mutate(ctx, seasonID, func(players []domain.PlayerDelta, index map[string]int) error {
		fi, ok := index[farmID]
		if !ok {
			return fmt.Errorf("%w: farm %s in season %s", ErrPlayerNotFound, farmID, seasonID)
		}
		mi, ok := index[mainID]
		if !ok {
			return fmt.Errorf("%w: main %s in season %s", ErrPlayerNotFound, mainID, seasonID)
		}

		farm, main := &players[fi], &players[mi]

		if farm.AccountType != domain.AccountFarm {
			return fmt.Errorf("%w: %s is not classified as a farm account", ErrClassificationConflict, farmID)
		}
		if main.AccountType == domain.AccountFarm {
			return fmt.Errorf("%w: %s is a farm account and cannot own farms", ErrClassificationConflict, mainID)
		}

		if farm.LinkedToMain != "" && farm.LinkedToMain != mainID {
			if j, ok := index[farm.LinkedToMain]; ok {
				players[j].FarmAccounts = removeString(players[j].FarmAccounts, farmID)
			}
		}

		farm.LinkedToMain = mainID
		if !slices.Contains(main.FarmAccounts, farmID) {
			main.FarmAccounts = append(main.FarmAccounts, farmID)
		}

		s.logger.Info().
			Str("season_id", seasonID).
			Str("farm_id", farmID).
			Str("main_id", mainID).
			Msg("farm linked to main")
		return nil
	})
}

// Unlink detaches a farm from its main, restoring both to their pre-link
// state.
func (s *ClassificationService) Unlink(ctx context.Context, seasonID, farmID, mainID string) error {
	return s.mutate(ctx, seasonID, func(players []domain.PlayerDelta, index map[string]int) error {
		if fi, ok := index[farmID]; ok {
			if players[fi].LinkedToMain == mainID {
				players[fi].LinkedToMain = ""
			}
		}
		if mi, ok := index[mainID]; ok {
			players[mi].FarmAccounts = removeString(players[mi].FarmAccounts, farmID)
		}

		s.logger.Info().
			Str("season_id", seasonID).
			Str("farm_id", farmID).
			Str("main_id", mainID).
			Msg("farm unlinked from main")
		return nil
	})
}

// GetClassification returns one player's classification attributes.
func (s *ClassificationService) GetClassification(ctx context.Context, seasonID, governorID string) (*domain.PlayerDelta, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range snapshot.Players {
		if p.GovernorID == governorID {
			return &p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
}

// Consolidated renders the combined leaderboard: every main merged with its
// linked farms, farms and vacationers excluded as standalone rows.
func (s *ClassificationService) Consolidated(ctx context.Context, seasonID, sortBy string) ([]domain.CombinedRow, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if sortBy == "" {
		sortBy = constants.DefaultSortKey
	}

	key := cache.CombinedLeaderboardKey(seasonID)
	var cached []domain.CombinedRow
	if sortBy == constants.DefaultSortKey {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	rows := s.eng.Consolidate(snapshot.Players, sortBy)

	if sortBy == constants.DefaultSortKey {
		s.cache.Set(ctx, key, rows, constants.LeaderboardCacheTTL)
	}

	return rows, nil
}

// ClassificationSummary counts accounts by classification state.
type ClassificationSummary struct {
	TotalPlayers     int `json:"total_players"`
	MainAccounts     int `json:"main_accounts"`
	FarmAccounts     int `json:"farm_accounts"`
	VacationAccounts int `json:"vacation_accounts"`
	Unclassified     int `json:"unclassified"`
	DeadWeight       int `json:"dead_weight"`
	FarmsLinked      int `json:"farms_linked"`
	MainsWithFarms   int `json:"mains_with_farms"`
}

// Summary tallies classification counts for a season.
func (s *ClassificationService) Summary(ctx context.Context, seasonID string) (*ClassificationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	summary := &ClassificationSummary{TotalPlayers: len(snapshot.Players)}
	for _, p := range snapshot.Players {
		switch p.AccountType {
		case domain.AccountMain:
			summary.MainAccounts++
		case domain.AccountFarm:
			summary.FarmAccounts++
		case domain.AccountVacation:
			summary.VacationAccounts++
		default:
			summary.Unclassified++
		}
		if p.IsDeadWeight {
			summary.DeadWeight++
		}
		if p.LinkedToMain != "" {
			summary.FarmsLinked++
		}
		if len(p.FarmAccounts) > 0 {
			summary.MainsWithFarms++
		}
	}

	return summary, nil
}

// mutate loads the current snapshot, applies fn to the player rows, and
// writes them back in a single statement. fn validates before touching
// anything, so a returned error means no partial state was persisted.
func (s *ClassificationService) mutate(ctx context.Context, seasonID string, fn func(players []domain.PlayerDelta, index map[string]int) error) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		snapshot, err := s.snapshots.Get(ctx, seasonID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoData, seasonID)
		}
		if err != nil {
			return err
		}

		index := make(map[string]int, len(snapshot.Players))
		for i, p := range snapshot.Players {
			index[p.GovernorID] = i
		}

		if err := fn(snapshot.Players, index); err != nil {
			return err
		}

		// Conditional on the version read above; a lost race re-reads
		// and re-applies fn against the other writer's result.
		err = s.snapshots.UpdatePlayers(ctx, seasonID, snapshot.Players, snapshot.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) || attempt+1 >= constants.WriteRetries {
			return err
		}
	}

	s.cache.InvalidateSeason(ctx, seasonID)
	return nil
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
