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
	// ErrFightPeriodNotFound reports an unknown (season, fight number) pair.
	ErrFightPeriodNotFound = errors.New("service: fight period not found")

	// ErrFightPeriodConflict rejects a duplicate fight number or an invalid
	// time window.
	ErrFightPeriodConflict = errors.New("service: fight period conflict")
)

// FightPeriodService manages the named fight windows inside a season, keyed
// by (season, fight number).
type FightPeriodService struct {
	periods *repository.FightPeriodRepository
	seasons *repository.SeasonRepository
	cache   *cache.Cache
	logger  zerolog.Logger
}

func NewFightPeriodService(
	periods *repository.FightPeriodRepository,
	seasons *repository.SeasonRepository,
	c *cache.Cache,
	logger zerolog.Logger,
) *FightPeriodService {
	return &FightPeriodService{periods: periods, seasons: seasons, cache: c, logger: logger}
}

// Create adds a fight period to a season. Fight numbers are unique per
// season; an end time, when given, must come after the start.
func (s *FightPeriodService) Create(ctx context.Context, seasonID string, fightNumber int, name string, start time.Time, end *time.Time, description string) (*domain.FightPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if fightNumber < 1 {
		return nil, fmt.Errorf("%w: fight number must be positive, got %d", ErrFightPeriodConflict, fightNumber)
	}
	if end != nil && !end.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrFightPeriodConflict)
	}

	if _, err := s.seasons.Get(ctx, seasonID); errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
	} else if err != nil {
		return nil, err
	}

	if _, err := s.periods.Get(ctx, seasonID, fightNumber); err == nil {
		return nil, fmt.Errorf("%w: fight %d already exists in season %s", ErrFightPeriodConflict, fightNumber, seasonID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("Fight %d", fightNumber)
	}

	now := time.Now().UTC()
	fp := &domain.FightPeriod{
		SeasonID:    seasonID,
		FightNumber: fightNumber,
		FightName:   name,
		StartTime:   start,
		EndTime:     end,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fp.Status = deriveStatus(fp, now)

	if err := s.periods.Insert(ctx, fp); err != nil {
		return nil, fmt.Errorf("failed to create fight period: %w", err)
	}

	s.cache.Delete(ctx, cache.FightPeriodsKey(seasonID))

	s.logger.Info().
		Str("season_id", seasonID).
		Int("fight_number", fightNumber).
		Str("fight_name", name).
		Msg("fight period created")
	return fp, nil
}

// List returns a season's fight periods in fight-number order, statuses
// refreshed against the clock.
func (s *FightPeriodService) List(ctx context.Context, seasonID string) ([]domain.FightPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	key := cache.FightPeriodsKey(seasonID)
	var cached []domain.FightPeriod
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	periods, err := s.periods.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range periods {
		periods[i].Status = deriveStatus(&periods[i], now)
	}

	s.cache.Set(ctx, key, periods, constants.FightPeriodCacheTTL)
	return periods, nil
}

// Get returns one fight period.
func (s *FightPeriodService) Get(ctx context.Context, seasonID string, fightNumber int) (*domain.FightPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	fp, err := s.periods.Get(ctx, seasonID, fightNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: fight %d in season %s", ErrFightPeriodNotFound, fightNumber, seasonID)
	}
	if err != nil {
		return nil, err
	}

	fp.Status = deriveStatus(fp, time.Now().UTC())
	return fp, nil
}

// Update edits a fight period's name, window, or description. Nil arguments
// leave the corresponding field unchanged.
func (s *FightPeriodService) Update(ctx context.Context, seasonID string, fightNumber int, name *string, start, end *time.Time, description *string) (*domain.FightPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	fp, err := s.periods.Get(ctx, seasonID, fightNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: fight %d in season %s", ErrFightPeriodNotFound, fightNumber, seasonID)
	}
	if err != nil {
		return nil, err
	}

	if name != nil {
		fp.FightName = *name
	}
	if start != nil {
		fp.StartTime = *start
	}
	if end != nil {
		fp.EndTime = end
	}
	if description != nil {
		fp.Description = *description
	}
	if fp.EndTime != nil && !fp.EndTime.After(fp.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrFightPeriodConflict)
	}

	now := time.Now().UTC()
	fp.UpdatedAt = now
	fp.Status = deriveStatus(fp, now)

	if err := s.periods.Update(ctx, fp); err != nil {
		return nil, fmt.Errorf("failed to update fight period: %w", err)
	}

	s.cache.Delete(ctx, cache.FightPeriodsKey(seasonID))
	return fp, nil
}

// End closes a fight period now.
func (s *FightPeriodService) End(ctx context.Context, seasonID string, fightNumber int) (*domain.FightPeriod, error) {
	now := time.Now().UTC()
	return s.Update(ctx, seasonID, fightNumber, nil, nil, &now, nil)
}

// Delete removes a fight period.
func (s *FightPeriodService) Delete(ctx context.Context, seasonID string, fightNumber int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	err := s.periods.Delete(ctx, seasonID, fightNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: fight %d in season %s", ErrFightPeriodNotFound, fightNumber, seasonID)
	}
	if err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.FightPeriodsKey(seasonID))

	s.logger.Info().
		Str("season_id", seasonID).
		Int("fight_number", fightNumber).
		Msg("fight period deleted")
	return nil
}

// deriveStatus computes a period's status from its window: upcoming before
// the start, completed after the end, active in between or open-ended.
func deriveStatus(fp *domain.FightPeriod, now time.Time) domain.FightPeriodStatus {
	if now.Before(fp.StartTime) {
		return domain.FightUpcoming
	}
	if fp.EndTime != nil && now.After(*fp.EndTime) {
		return domain.FightCompleted
	}
	return domain.FightActive
}
