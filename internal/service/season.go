package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kvk-tracker/internal/cache"
	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/repository"

	"github.com/rs/zerolog"
)

var (
	// ErrSeasonNotFound reports a season ID with no stored season.
	ErrSeasonNotFound = errors.New("service: season not found")

	// ErrNoActiveSeason reports that no season is currently active.
	ErrNoActiveSeason = errors.New("service: no active season")

	// ErrSeasonState rejects a lifecycle transition the current status does
	// not allow.
	ErrSeasonState = errors.New("service: invalid season state")
)

// SeasonService manages the season lifecycle: preparing, active, completed,
// archived. At most one season is active at a time.
type SeasonService struct {
	seasons *repository.SeasonRepository
	cache   *cache.Cache
	logger  zerolog.Logger
}

func NewSeasonService(seasons *repository.SeasonRepository, c *cache.Cache, logger zerolog.Logger) *SeasonService {
	return &SeasonService{seasons: seasons, cache: c, logger: logger}
}

// Create registers a new season in PREPARING state. IDs are sequential:
// season_1, season_2, and so on.
func (s *SeasonService) Create(ctx context.Context, name, description, kingdomID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	number, err := s.seasons.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate season number: %w", err)
	}

	if name == "" {
		name = fmt.Sprintf("Season %d", number)
	}
	if kingdomID == "" {
		kingdomID = constants.DefaultKingdomID
	}

	season := &domain.Season{
		SeasonID:     fmt.Sprintf("%s%d", constants.SeasonIDPrefix, number),
		SeasonName:   name,
		SeasonNumber: number,
		Status:       domain.SeasonPreparing,
		CreatedAt:    time.Now().UTC(),
		Description:  description,
		KingdomID:    kingdomID,
	}

	if err := s.seasons.Insert(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}

	s.logger.Info().
		Str("season_id", season.SeasonID).
		Int("season_number", number).
		Msg("season created")
	return season, nil
}

// Get returns one season by ID.
func (s *SeasonService) Get(ctx context.Context, seasonID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	}
	return season, err
}

// List returns every season, newest first.
func (s *SeasonService) List(ctx context.Context) ([]domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.seasons.List(ctx)
}

// Active returns the currently active season.
func (s *SeasonService) Active(ctx context.Context) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	key := cache.ActiveSeasonKey()
	var cached domain.Season
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	season, err := s.seasons.GetActive(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSeason
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, season, constants.ActiveSeasonCacheTTL)
	return season, nil
}

// Activate makes a season the single active one, deactivating any other.
// Archived seasons cannot be reactivated.
func (s *SeasonService) Activate(ctx context.Context, seasonID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	}
	if err != nil {
		return nil, err
	}
	if season.IsArchived {
		return nil, fmt.Errorf("%w: cannot activate archived season %s", ErrSeasonState, seasonID)
	}

	now := time.Now().UTC()
	season.Status = domain.SeasonActive
	season.IsActive = true
	season.ActivatedAt = &now
	if season.StartDate == nil {
		season.StartDate = &now
	}

	// Deactivate-all and the activation write share one transaction so two
	// racing activations cannot leave two active seasons.
	if err := s.seasons.Activate(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to activate season: %w", err)
	}

	s.cache.Delete(ctx, cache.ActiveSeasonKey())

	s.logger.Info().Str("season_id", seasonID).Msg("season activated")
	return season, nil
}

// Complete ends an active season without archiving it. Data stays writable.
func (s *SeasonService) Complete(ctx context.Context, seasonID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	}
	if err != nil {
		return nil, err
	}
	if season.IsArchived {
		return nil, fmt.Errorf("%w: season %s is archived", ErrSeasonState, seasonID)
	}

	now := time.Now().UTC()
	season.Status = domain.SeasonCompleted
	season.IsActive = false
	if season.EndDate == nil {
		season.EndDate = &now
	}

	if err := s.seasons.Update(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to complete season: %w", err)
	}

	s.cache.Delete(ctx, cache.ActiveSeasonKey())

	s.logger.Info().Str("season_id", seasonID).Msg("season completed")
	return season, nil
}

// Archive locks a season read-only. Uploads and classification edits against
// it are rejected from then on; leaderboards stay queryable.
func (s *SeasonService) Archive(ctx context.Context, seasonID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	}
	if err != nil {
		return nil, err
	}
	if season.IsArchived {
		return season, nil
	}

	now := time.Now().UTC()
	season.Status = domain.SeasonArchived
	season.IsActive = false
	season.IsArchived = true
	season.ArchivedAt = &now
	if season.EndDate == nil {
		season.EndDate = &now
	}

	if err := s.seasons.Update(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to archive season: %w", err)
	}

	s.cache.Delete(ctx, cache.ActiveSeasonKey())
	s.cache.InvalidateSeason(ctx, seasonID)

	s.logger.Info().Str("season_id", seasonID).Msg("season archived")
	return season, nil
}

// UpdateDates adjusts a season's start and end dates.
func (s *SeasonService) UpdateDates(ctx context.Context, seasonID string, start, end *time.Time) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	}
	if err != nil {
		return nil, err
	}
	if season.IsArchived {
		return nil, fmt.Errorf("%w: season %s is archived", ErrSeasonState, seasonID)
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrSeasonState)
	}

	if start != nil {
		season.StartDate = start
	}
	if end != nil {
		season.EndDate = end
	}

	if err := s.seasons.Update(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to update season dates: %w", err)
	}

	s.cache.Delete(ctx, cache.ActiveSeasonKey())
	return season, nil
}
