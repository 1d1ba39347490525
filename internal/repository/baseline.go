// Package repository persists tracker documents in SQLite. Player lists ride
// as JSON columns keyed by season id, so any keyed document store could stand
// in; season-scoped writes are single conditional upserts to keep concurrent
// uploads from interleaving.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kvk-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no document exists for the requested key.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict is returned when a conditional player-list update loses to a
// concurrent writer. Callers re-read and retry.
var ErrConflict = errors.New("repository: concurrent modification")

type BaselineRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBaselineRepository(db *sql.DB, logger zerolog.Logger) *BaselineRepository {
	return &BaselineRepository{db: db, logger: logger}
}

// Get loads the season baseline. Returns ErrNotFound if the season has no
// baseline yet.
func (r *BaselineRepository) Get(ctx context.Context, seasonID string) (*domain.Baseline, error) {
	var (
		b          domain.Baseline
		playersRaw []byte
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT season_id, file_name, timestamp, last_updated, players, version
		 FROM baselines WHERE season_id = ?`, seasonID,
	).Scan(&b.SeasonID, &b.FileName, &b.Timestamp, &b.LastUpdated, &playersRaw, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get baseline: %w", err)
	}

	if err := json.Unmarshal(playersRaw, &b.Players); err != nil {
		return nil, fmt.Errorf("failed to decode baseline players: %w", err)
	}

	return &b, nil
}

// Replace atomically installs a baseline for a season, overwriting any
// previous one. Single upsert keyed by season id; no read-modify-write.
func (r *BaselineRepository) Replace(ctx context.Context, b *domain.Baseline) error {
	playersRaw, err := json.Marshal(b.Players)
	if err != nil {
		return fmt.Errorf("failed to encode baseline players: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO baselines (season_id, file_name, timestamp, last_updated, players)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(season_id) DO UPDATE SET
		   file_name = excluded.file_name,
		   timestamp = excluded.timestamp,
		   last_updated = excluded.last_updated,
		   players = excluded.players,
		   version = baselines.version + 1`,
		b.SeasonID, b.FileName, b.Timestamp, b.LastUpdated, playersRaw)
	if err != nil {
		return fmt.Errorf("failed to replace baseline: %w", err)
	}

	r.logger.Info().
		Str("season_id", b.SeasonID).
		Int("player_count", len(b.Players)).
		Msg("baseline replaced")
	return nil
}

// UpdatePlayers rewrites the baseline player list after an amendment. The
// write is conditional on the version read alongside the players: a
// concurrent amendment bumps the version and this statement matches zero
// rows, surfacing ErrConflict instead of silently dropping the other
// writer's rows.
func (r *BaselineRepository) UpdatePlayers(ctx context.Context, seasonID string, players []domain.PlayerRecord, version int64) error {
	playersRaw, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("failed to encode baseline players: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE baselines SET players = ?, last_updated = ?, version = version + 1
		 WHERE season_id = ? AND version = ?`,
		playersRaw, time.Now().UTC(), seasonID, version)
	if err != nil {
		return fmt.Errorf("failed to update baseline players: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missOrConflict(ctx, seasonID)
	}

	return nil
}

func (r *BaselineRepository) missOrConflict(ctx context.Context, seasonID string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM baselines WHERE season_id = ?`, seasonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check baseline: %w", err)
	}
	return ErrConflict
}
