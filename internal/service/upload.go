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
	"golang.org/x/sync/errgroup"
)

// ErrSeasonArchived rejects mutations against a season that has been locked
// read-only.
var ErrSeasonArchived = errors.New("service: season is archived")

// ErrBaselineRequired mirrors the engine sentinel at the service boundary:
// current uploads need a baseline first.
var ErrBaselineRequired = engine.ErrBaselineRequired

// UploadService runs the snapshot processing pipeline: parse output from the
// ingestion side goes in, deltas, ranks, summary, and history come out.
type UploadService struct {
	eng       *engine.Engine
	baselines *repository.BaselineRepository
	snapshots *repository.SnapshotRepository
	history   *repository.HistoryRepository
	seasons   *repository.SeasonRepository
	cache     *cache.Cache
	logger    zerolog.Logger
}

func NewUploadService(
	eng *engine.Engine,
	baselines *repository.BaselineRepository,
	snapshots *repository.SnapshotRepository,
	history *repository.HistoryRepository,
	seasons *repository.SeasonRepository,
	c *cache.Cache,
	logger zerolog.Logger,
) *UploadService {
	return &UploadService{
		eng:       eng,
		baselines: baselines,
		snapshots: snapshots,
		history:   history,
		seasons:   seasons,
		cache:     c,
		logger:    logger,
	}
}

// UploadResult reports what a processed upload did.
type UploadResult struct {
	SeasonID    string         `json:"season_id"`
	PlayerCount int            `json:"player_count"`
	NewPlayers  int            `json:"new_players,omitempty"`
	Summary     *domain.Summary `json:"summary,omitempty"`
	Message     string         `json:"message"`
}

// ProcessBaseline installs the season's zero-point snapshot, replacing any
// previous baseline wholesale.
func (s *UploadService) ProcessBaseline(ctx context.Context, seasonID, fileName string, players []domain.PlayerRecord) (*UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.ensureWritable(ctx, seasonID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	baseline := &domain.Baseline{
		SeasonID:    seasonID,
		FileName:    fileName,
		Timestamp:   now,
		LastUpdated: now,
		Players:     players,
	}

	if err := s.baselines.Replace(ctx, baseline); err != nil {
		return nil, err
	}

	s.refreshSeasonStats(ctx, seasonID)
	s.cache.InvalidateSeason(ctx, seasonID)

	s.logger.Info().
		Str("season_id", seasonID).
		Str("file_name", fileName).
		Int("player_count", len(players)).
		Msg("baseline uploaded")

	return &UploadResult{
		SeasonID:    seasonID,
		PlayerCount: len(players),
		Message:     fmt.Sprintf("baseline saved with %d players", len(players)),
	}, nil
}

// ProcessCurrent runs a current-snapshot upload end to end: deltas against
// the baseline, baseline amendment for new or returning players, ranking,
// summary, snapshot replacement, and the append-only history record. The
// season's caches are invalidated before returning.
func (s *UploadService) ProcessCurrent(ctx context.Context, seasonID, fileName, description string, players []domain.PlayerRecord) (*UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.ensureWritable(ctx, seasonID); err != nil {
		return nil, err
	}

	result, err := s.computeAndAmend(ctx, seasonID, players)
	if err != nil {
		return nil, err
	}

	// Admin-entered classification and verified deaths survive re-uploads.
	if prev, err := s.snapshots.Get(ctx, seasonID); err == nil {
		result.Players = engine.CarryClassification(result.Players, prev.Players)
	}

	ranked := s.eng.Rank(result.Players, constants.DefaultSortKey, false)
	summary := s.eng.Summarize(ranked)
	now := time.Now().UTC()

	snapshot := &domain.Snapshot{
		SeasonID:    seasonID,
		FileName:    fileName,
		Description: description,
		Timestamp:   now,
		Players:     ranked,
		Summary:     summary,
	}
	if err := s.snapshots.Replace(ctx, snapshot); err != nil {
		return nil, err
	}

	entry := &domain.UploadEntry{
		SeasonID:    seasonID,
		FileName:    fileName,
		Description: description,
		Timestamp:   now,
		Players:     ranked,
		Summary:     summary,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.refreshSeasonStats(ctx, seasonID)
	s.cache.InvalidateSeason(ctx, seasonID)

	s.logger.Info().
		Str("season_id", seasonID).
		Str("file_name", fileName).
		Int("player_count", len(ranked)).
		Int("new_players", len(result.BaselineUpserts)).
		Msg("current snapshot uploaded")

	return &UploadResult{
		SeasonID:    seasonID,
		PlayerCount: len(ranked),
		NewPlayers:  len(result.BaselineUpserts),
		Summary:     &summary,
		Message:     fmt.Sprintf("current data saved with %d players", len(ranked)),
	}, nil
}

// computeAndAmend reads the baseline, computes deltas, and persists any
// baseline amendment with a conditional write on the version it read.
// Losing the write to a concurrent upload re-reads the amended baseline and
// recomputes, so neither upload's newly-added players are dropped.
func (s *UploadService) computeAndAmend(ctx context.Context, seasonID string, players []domain.PlayerRecord) (engine.DeltaResult, error) {
	var result engine.DeltaResult

	for attempt := 0; ; attempt++ {
		baseline, err := s.baselines.Get(ctx, seasonID)
		if errors.Is(err, repository.ErrNotFound) {
			return result, fmt.Errorf("%w: season %s has no baseline, upload one first", ErrBaselineRequired, seasonID)
		}
		if err != nil {
			return result, err
		}

		result, err = s.eng.ComputeDeltas(baseline.Players, players)
		if err != nil {
			return result, err
		}

		if len(result.BaselineUpserts) == 0 {
			return result, nil
		}

		amended := engine.UpsertBaseline(baseline.Players, result.BaselineUpserts)
		err = s.baselines.UpdatePlayers(ctx, seasonID, amended, baseline.Version)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt+1 >= constants.WriteRetries {
			return result, fmt.Errorf("failed to amend baseline: %w", err)
		}

		s.logger.Warn().
			Str("season_id", seasonID).
			Int("attempt", attempt+1).
			Msg("baseline amendment lost a race, retrying")
	}
}

// RebuildBaseline re-derives the baseline from upload history (first entry
// with activity per player), recomputes the current snapshot against it, and
// optionally recomputes every history entry for retroactive consistency.
// Idempotent; admin-triggered only.
func (s *UploadService) RebuildBaseline(ctx context.Context, seasonID string, recomputeHistory bool) (*UploadResult, error) {
	if err := s.ensureWritable(ctx, seasonID); err != nil {
		return nil, err
	}

	entries, err := s.history.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("season %s has no upload history to replay", seasonID)
	}

	rebuilt := s.eng.RebuildBaseline(entries)

	existing, err := s.baselines.Get(ctx, seasonID)
	now := time.Now().UTC()
	baseline := &domain.Baseline{
		SeasonID:    seasonID,
		Timestamp:   entries[0].Timestamp,
		LastUpdated: now,
		Players:     rebuilt,
	}
	if err == nil {
		baseline.FileName = existing.FileName
		baseline.Timestamp = existing.Timestamp
	}
	if err := s.baselines.Replace(ctx, baseline); err != nil {
		return nil, err
	}

	// Re-anchor the current snapshot against the rebuilt baseline.
	if snap, err := s.snapshots.Get(ctx, seasonID); err == nil {
		current := make([]domain.PlayerRecord, 0, len(snap.Players))
		for _, p := range snap.Players {
			current = append(current, domain.PlayerRecord{
				GovernorID:   p.GovernorID,
				GovernorName: p.GovernorName,
				Stats:        p.Stats,
			})
		}

		result, err := s.eng.ComputeDeltas(rebuilt, current)
		if err != nil {
			return nil, err
		}
		result.Players = engine.CarryClassification(result.Players, snap.Players)
		snap.Players = s.eng.Rank(result.Players, constants.DefaultSortKey, false)
		snap.Summary = s.eng.Summarize(snap.Players)
		if err := s.snapshots.Replace(ctx, snap); err != nil {
			return nil, err
		}
	}

	if recomputeHistory {
		if err := s.recomputeHistory(ctx, rebuilt, entries); err != nil {
			return nil, err
		}
	}

	s.cache.InvalidateSeason(ctx, seasonID)

	s.logger.Info().
		Str("season_id", seasonID).
		Int("player_count", len(rebuilt)).
		Bool("history_recomputed", recomputeHistory).
		Msg("baseline rebuilt")

	return &UploadResult{
		SeasonID:    seasonID,
		PlayerCount: len(rebuilt),
		Message:     fmt.Sprintf("baseline rebuilt from %d history entries", len(entries)),
	}, nil
}

// recomputeHistory rewrites each history entry's deltas against the rebuilt
// baseline. Entries are independent, so the batch fans out across a bounded
// errgroup.
func (s *UploadService) recomputeHistory(ctx context.Context, baseline []domain.PlayerRecord, entries []domain.UploadEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.ReplayWorkers)

	for _, entry := range entries {
		g.Go(func() error {
			current := make([]domain.PlayerRecord, 0, len(entry.Players))
			for _, p := range entry.Players {
				current = append(current, domain.PlayerRecord{
					GovernorID:   p.GovernorID,
					GovernorName: p.GovernorName,
					Stats:        p.Stats,
				})
			}

			result, err := s.eng.ComputeDeltas(baseline, current)
			if err != nil {
				return err
			}
			result.Players = engine.CarryClassification(result.Players, entry.Players)
			ranked := s.eng.Rank(result.Players, constants.DefaultSortKey, false)
			summary := s.eng.Summarize(ranked)

			return s.history.UpdateEntry(ctx, entry.ID, ranked, summary)
		})
	}

	return g.Wait()
}

// ensureWritable rejects uploads to archived seasons. A season row is not
// required to exist: uploads may precede formal season creation.
func (s *UploadService) ensureWritable(ctx context.Context, seasonID string) error {
	season, err := s.seasons.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if season.IsArchived {
		return fmt.Errorf("%w: %s", ErrSeasonArchived, seasonID)
	}
	return nil
}

// refreshSeasonStats updates the season document's derived counters.
// Best-effort: a stats failure never fails an upload.
func (s *UploadService) refreshSeasonStats(ctx context.Context, seasonID string) {
	season, err := s.seasons.Get(ctx, seasonID)
	if err != nil {
		return
	}

	if baseline, err := s.baselines.Get(ctx, seasonID); err == nil {
		season.HasBaseline = true
		season.PlayerCount = len(baseline.Players)
	}
	if _, err := s.snapshots.Get(ctx, seasonID); err == nil {
		season.HasCurrentData = true
	}
	if count, err := s.history.CountBySeason(ctx, seasonID); err == nil {
		season.TotalUploads = count
	}

	if err := s.seasons.Update(ctx, season); err != nil {
		s.logger.Warn().Err(err).Str("season_id", seasonID).Msg("failed to refresh season stats")
	}
}
