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

// ErrNoData is returned when a season has neither a baseline nor a current
// snapshot to read from.
var ErrNoData = errors.New("service: no data for season")

// ErrPlayerNotFound is returned when a governor id is absent from the
// season's data.
var ErrPlayerNotFound = errors.New("service: player not found")

// LeaderboardService serves read paths over the processed data, memoized in
// the cache collaborator when it is available.
type LeaderboardService struct {
	eng       *engine.Engine
	baselines *repository.BaselineRepository
	snapshots *repository.SnapshotRepository
	history   *repository.HistoryRepository
	cache     *cache.Cache
	logger    zerolog.Logger
}

func NewLeaderboardService(
	eng *engine.Engine,
	baselines *repository.BaselineRepository,
	snapshots *repository.SnapshotRepository,
	history *repository.HistoryRepository,
	c *cache.Cache,
	logger zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		eng:       eng,
		baselines: baselines,
		snapshots: snapshots,
		history:   history,
		cache:     c,
		logger:    logger,
	}
}

// Leaderboard is one rendered board.
type Leaderboard struct {
	SeasonID       string               `json:"season_id"`
	SortBy         string               `json:"sort_by"`
	BaselineDate   *time.Time           `json:"baseline_date,omitempty"`
	CurrentDate    *time.Time           `json:"current_date,omitempty"`
	Description    string               `json:"description,omitempty"`
	IsBaselineOnly bool                 `json:"is_baseline_only"`
	PlayerCount    int                  `json:"player_count"`
	Players        []domain.PlayerDelta `json:"leaderboard"`
	Summary        *domain.Summary      `json:"summary,omitempty"`
}

// Get renders the season leaderboard ordered by sortBy. Before the first
// current upload it falls back to the baseline with zero deltas rather than
// failing.
func (s *LeaderboardService) Get(ctx context.Context, seasonID, sortBy string, limit int) (*Leaderboard, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if sortBy == "" {
		sortBy = constants.DefaultSortKey
	}
	if limit <= 0 || limit > constants.MaxLeaderboardLimit {
		limit = constants.DefaultLeaderboardLimit
	}

	key := cache.LeaderboardKey(seasonID, fmt.Sprintf("%s:%d", sortBy, limit))
	var cached Leaderboard
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.logger.Debug().Str("season_id", seasonID).Str("sort_by", sortBy).Msg("leaderboard cache hit")
		return &cached, nil
	}

	board, err := s.build(ctx, seasonID, sortBy, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, board, constants.LeaderboardCacheTTL)
	return board, nil
}

// build renders the board from the current snapshot, falling back to the
// baseline. A limit of zero or less leaves the board uncapped.
func (s *LeaderboardService) build(ctx context.Context, seasonID, sortBy string, limit int) (*Leaderboard, error) {
	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.buildFromBaseline(ctx, seasonID, sortBy, limit)
	}
	if err != nil {
		return nil, err
	}

	ranked := s.eng.Rank(snapshot.Players, sortBy, false)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	board := &Leaderboard{
		SeasonID:    seasonID,
		SortBy:      sortBy,
		CurrentDate: &snapshot.Timestamp,
		Description: snapshot.Description,
		PlayerCount: len(ranked),
		Players:     ranked,
		Summary:     &snapshot.Summary,
	}
	if baseline, err := s.baselines.Get(ctx, seasonID); err == nil {
		board.BaselineDate = &baseline.Timestamp
	}

	return board, nil
}

// buildFromBaseline renders a zero-delta board when only a baseline exists.
func (s *LeaderboardService) buildFromBaseline(ctx context.Context, seasonID, sortBy string, limit int) (*Leaderboard, error) {
	baseline, err := s.baselines.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	players := make([]domain.PlayerDelta, 0, len(baseline.Players))
	for _, p := range baseline.Players {
		players = append(players, domain.PlayerDelta{
			GovernorID:   p.GovernorID,
			GovernorName: p.GovernorName,
			Stats:        p.Stats,
			InBaseline:   true,
		})
	}

	ranked := s.eng.Rank(players, sortBy, false)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &Leaderboard{
		SeasonID:       seasonID,
		SortBy:         sortBy,
		BaselineDate:   &baseline.Timestamp,
		CurrentDate:    &baseline.Timestamp,
		IsBaselineOnly: true,
		PlayerCount:    len(ranked),
		Players:        ranked,
	}, nil
}

// GetPlayer returns one player's row with their rank under the default sort.
// Ranks against the entire roster, not a truncated board.
func (s *LeaderboardService) GetPlayer(ctx context.Context, seasonID, governorID string) (*domain.PlayerDelta, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	key := cache.PlayerKey(seasonID, governorID)
	var cached domain.PlayerDelta
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	board, err := s.build(ctx, seasonID, constants.DefaultSortKey, 0)
	if err != nil {
		return nil, err
	}

	for _, p := range board.Players {
		if p.GovernorID == governorID {
			s.cache.Set(ctx, key, p, constants.PlayerCacheTTL)
			return &p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
}

// TimelinePoint is one player's state at one upload.
type TimelinePoint struct {
	UploadID    string            `json:"upload_id"`
	FileName    string            `json:"file_name"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Rank        int               `json:"rank"`
	Stats       domain.StatVector `json:"stats"`
	Delta       domain.StatVector `json:"delta"`
}

// Timeline is a player's progress across every upload in a season.
type Timeline struct {
	SeasonID     string               `json:"season_id"`
	GovernorID   string               `json:"governor_id"`
	GovernorName string               `json:"governor_name"`
	Baseline     *domain.PlayerRecord `json:"baseline,omitempty"`
	Points       []TimelinePoint      `json:"timeline"`
}

// GetTimeline extracts one player's row from each history entry, oldest
// first.
func (s *LeaderboardService) GetTimeline(ctx context.Context, seasonID, governorID string) (*Timeline, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entries, err := s.history.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}

	timeline := &Timeline{SeasonID: seasonID, GovernorID: governorID}
	for _, entry := range entries {
		for _, p := range entry.Players {
			if p.GovernorID != governorID {
				continue
			}
			timeline.GovernorName = p.GovernorName
			timeline.Points = append(timeline.Points, TimelinePoint{
				UploadID:    entry.ID,
				FileName:    entry.FileName,
				Description: entry.Description,
				Timestamp:   entry.Timestamp,
				Rank:        p.Rank,
				Stats:       p.Stats,
				Delta:       p.Delta,
			})
			break
		}
	}

	if len(timeline.Points) == 0 {
		return nil, fmt.Errorf("%w: %s in season %s", ErrPlayerNotFound, governorID, seasonID)
	}

	if baseline, err := s.baselines.Get(ctx, seasonID); err == nil {
		for _, p := range baseline.Players {
			if p.GovernorID == governorID {
				timeline.Baseline = &p
				break
			}
		}
	}

	return timeline, nil
}

// HistorySummary is the metadata view of one upload, without player rows.
type HistorySummary struct {
	UploadID    string         `json:"upload_id"`
	FileName    string         `json:"file_name"`
	Description string         `json:"description,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	PlayerCount int            `json:"player_count"`
	Summary     domain.Summary `json:"summary"`
}

// GetHistory lists a season's uploads, newest first.
func (s *LeaderboardService) GetHistory(ctx context.Context, seasonID string) ([]HistorySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entries, err := s.history.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	summaries := make([]HistorySummary, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		summaries = append(summaries, HistorySummary{
			UploadID:    entry.ID,
			FileName:    entry.FileName,
			Description: entry.Description,
			Timestamp:   entry.Timestamp,
			PlayerCount: len(entry.Players),
			Summary:     entry.Summary,
		})
		if len(summaries) >= constants.HistoryListLimit {
			break
		}
	}

	return summaries, nil
}

// DataStatus reports what data a season has accumulated.
type DataStatus struct {
	SeasonID     string     `json:"season_id"`
	HasBaseline  bool       `json:"has_baseline"`
	BaselineDate *time.Time `json:"baseline_date,omitempty"`
	HasCurrent   bool       `json:"has_current"`
	CurrentDate  *time.Time `json:"current_date,omitempty"`
	UploadCount  int        `json:"upload_count"`
}

// GetDataStatus summarizes baseline/current/history presence for a season.
func (s *LeaderboardService) GetDataStatus(ctx context.Context, seasonID string) (*DataStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	status := &DataStatus{SeasonID: seasonID}

	if baseline, err := s.baselines.Get(ctx, seasonID); err == nil {
		status.HasBaseline = true
		status.BaselineDate = &baseline.Timestamp
	}
	if snapshot, err := s.snapshots.Get(ctx, seasonID); err == nil {
		status.HasCurrent = true
		status.CurrentDate = &snapshot.Timestamp
	}
	if count, err := s.history.CountBySeason(ctx, seasonID); err == nil {
		status.UploadCount = count
	}

	return status, nil
}
