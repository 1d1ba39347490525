package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kvk-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(db *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger}
}

// Get loads the season's current snapshot.
func (r *SnapshotRepository) Get(ctx context.Context, seasonID string) (*domain.Snapshot, error) {
	var (
		s          domain.Snapshot
		playersRaw []byte
		summaryRaw []byte
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT season_id, file_name, description, timestamp, players, summary, version
		 FROM current_snapshots WHERE season_id = ?`, seasonID,
	).Scan(&s.SeasonID, &s.FileName, &s.Description, &s.Timestamp, &playersRaw, &summaryRaw, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(playersRaw, &s.Players); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot players: %w", err)
	}
	if err := json.Unmarshal(summaryRaw, &s.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot summary: %w", err)
	}

	return &s, nil
}

// Replace installs the snapshot wholesale, keyed by season id. Uploads never
// merge into an existing snapshot.
func (r *SnapshotRepository) Replace(ctx context.Context, s *domain.Snapshot) error {
	playersRaw, err := json.Marshal(s.Players)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot players: %w", err)
	}
	summaryRaw, err := json.Marshal(s.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot summary: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO current_snapshots (season_id, file_name, description, timestamp, players, summary)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(season_id) DO UPDATE SET
		   file_name = excluded.file_name,
		   description = excluded.description,
		   timestamp = excluded.timestamp,
		   players = excluded.players,
		   summary = excluded.summary,
		   version = current_snapshots.version + 1`,
		s.SeasonID, s.FileName, s.Description, s.Timestamp, playersRaw, summaryRaw)
	if err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	r.logger.Info().
		Str("season_id", s.SeasonID).
		Int("player_count", len(s.Players)).
		Msg("current snapshot replaced")
	return nil
}

// UpdatePlayers rewrites just the player rows of the current snapshot, used
// by classification and verified-death mutations. Conditional on the version
// read alongside the players; a lost race returns ErrConflict so the caller
// re-reads and retries rather than overwriting the other writer.
func (r *SnapshotRepository) UpdatePlayers(ctx context.Context, seasonID string, players []domain.PlayerDelta, version int64) error {
	playersRaw, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot players: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE current_snapshots SET players = ?, version = version + 1
		 WHERE season_id = ? AND version = ?`,
		playersRaw, seasonID, version)
	if err != nil {
		return fmt.Errorf("failed to update snapshot players: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missOrConflict(ctx, seasonID)
	}

	return nil
}

func (r *SnapshotRepository) missOrConflict(ctx context.Context, seasonID string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM current_snapshots WHERE season_id = ?`, seasonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check snapshot: %w", err)
	}
	return ErrConflict
}
