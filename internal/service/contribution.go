package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kvk-tracker/internal/cache"
	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/engine"
	"kvk-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ContributionService scores players with the DKP formula and manages the
// verified death counts that gate the death component.
type ContributionService struct {
	eng       *engine.Engine
	snapshots *repository.SnapshotRepository
	cache     *cache.Cache
	logger    zerolog.Logger
}

func NewContributionService(
	eng *engine.Engine,
	snapshots *repository.SnapshotRepository,
	c *cache.Cache,
	logger zerolog.Logger,
) *ContributionService {
	return &ContributionService{eng: eng, snapshots: snapshots, cache: c, logger: logger}
}

// Scores ranks every player in the season by total DKP. Death points are
// included only for players whose deaths an admin has verified; kill points
// always count.
func (s *ContributionService) Scores(ctx context.Context, seasonID string) ([]domain.ContributionScore, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	key := cache.ContributionsKey(seasonID)
	var cached []domain.ContributionScore
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	scores := s.eng.ScoreAll(snapshot.Players, true)
	s.cache.Set(ctx, key, scores, constants.LeaderboardCacheTTL)
	return scores, nil
}

// PlayerScore returns one player's DKP breakdown.
func (s *ContributionService) PlayerScore(ctx context.Context, seasonID, governorID string) (*domain.ContributionScore, error) {
	scores, err := s.Scores(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	for _, sc := range scores {
		if sc.GovernorID == governorID {
			return &sc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
}

// SetVerifiedDeaths records an admin-verified T4/T5 death split for one
// player. Unverified entries are stored but do not contribute death points.
func (s *ContributionService) SetVerifiedDeaths(ctx context.Context, seasonID, governorID string, t4Deaths, t5Deaths int64, verified bool, notes string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if t4Deaths < 0 || t5Deaths < 0 {
		return fmt.Errorf("service: death counts must be non-negative, got t4=%d t5=%d", t4Deaths, t5Deaths)
	}

	for attempt := 0; ; attempt++ {
		snapshot, err := s.snapshots.Get(ctx, seasonID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoData, seasonID)
		}
		if err != nil {
			return err
		}

		found := false
		for i := range snapshot.Players {
			if snapshot.Players[i].GovernorID != governorID {
				continue
			}
			snapshot.Players[i].VerifiedDeaths = &domain.VerifiedDeaths{
				T4Deaths:   t4Deaths,
				T5Deaths:   t5Deaths,
				Verified:   verified,
				VerifiedAt: time.Now().UTC(),
				Notes:      notes,
			}
			found = true
			break
		}
		if !found {
			return fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
		}

		// Conditional on the version read above; a lost race against a
		// concurrent classification write re-reads and re-applies.
		err = s.snapshots.UpdatePlayers(ctx, seasonID, snapshot.Players, snapshot.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) || attempt+1 >= constants.WriteRetries {
			return err
		}
	}

	s.cache.InvalidateSeason(ctx, seasonID)

	s.logger.Info().
		Str("season_id", seasonID).
		Str("governor_id", governorID).
		Int64("t4_deaths", t4Deaths).
		Int64("t5_deaths", t5Deaths).
		Bool("verified", verified).
		Msg("verified deaths recorded")
	return nil
}

// VerificationStatus summarizes how much of the season has verified deaths.
type VerificationStatus struct {
	TotalPlayers    int     `json:"total_players"`
	Verified        int     `json:"verified"`
	PendingReview   int     `json:"pending_review"`
	Unverified      int     `json:"unverified"`
	VerifiedPercent float64 `json:"verified_percent"`
}

// Verification reports verified-death coverage for a season.
func (s *ContributionService) Verification(ctx context.Context, seasonID string) (*VerificationStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	status := &VerificationStatus{TotalPlayers: len(snapshot.Players)}
	for _, p := range snapshot.Players {
		switch {
		case p.VerifiedDeaths == nil:
			status.Unverified++
		case p.VerifiedDeaths.Verified:
			status.Verified++
		default:
			status.PendingReview++
		}
	}
	if status.TotalPlayers > 0 {
		status.VerifiedPercent = float64(status.Verified) / float64(status.TotalPlayers) * 100
	}

	return status, nil
}
