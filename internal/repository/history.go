package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"kvk-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type HistoryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewHistoryRepository(db *sql.DB, logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Append adds one upload entry. History is append-only; entries are never
// mutated outside explicit repair tooling.
func (r *HistoryRepository) Append(ctx context.Context, entry *domain.UploadEntry) error {
	if entry.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate upload id: %w", err)
		}
		entry.ID = id
	}

	playersRaw, err := json.Marshal(entry.Players)
	if err != nil {
		return fmt.Errorf("failed to encode history players: %w", err)
	}
	summaryRaw, err := json.Marshal(entry.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode history summary: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO upload_history (upload_id, season_id, file_name, description, timestamp, players, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SeasonID, entry.FileName, entry.Description, entry.Timestamp, playersRaw, summaryRaw)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	r.logger.Info().
		Str("season_id", entry.SeasonID).
		Str("upload_id", entry.ID).
		Msg("history entry appended")
	return nil
}

// ListBySeason returns every entry for a season in ascending timestamp
// order, the order history replay depends on.
func (r *HistoryRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.UploadEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT upload_id, season_id, file_name, description, timestamp, players, summary
		 FROM upload_history WHERE season_id = ? ORDER BY timestamp ASC`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.UploadEntry
	for rows.Next() {
		var (
			e          domain.UploadEntry
			playersRaw []byte
			summaryRaw []byte
		)
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.FileName, &e.Description, &e.Timestamp, &playersRaw, &summaryRaw); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal(playersRaw, &e.Players); err != nil {
			return nil, fmt.Errorf("failed to decode history players: %w", err)
		}
		if err := json.Unmarshal(summaryRaw, &e.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode history summary: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountBySeason reports how many uploads a season has accumulated.
func (r *HistoryRepository) CountBySeason(ctx context.Context, seasonID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM upload_history WHERE season_id = ?`, seasonID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// UpdateEntry rewrites one entry's player rows. Used only by replay repair
// when retroactively recomputing deltas against a rebuilt baseline.
func (r *HistoryRepository) UpdateEntry(ctx context.Context, uploadID string, players []domain.PlayerDelta, summary domain.Summary) error {
	playersRaw, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("failed to encode history players: %w", err)
	}
	summaryRaw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode history summary: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE upload_history SET players = ?, summary = ? WHERE upload_id = ?`,
		playersRaw, summaryRaw, uploadID)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteBySeason removes a season's history, used when an admin deletes a
// season outright.
func (r *HistoryRepository) DeleteBySeason(ctx context.Context, seasonID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM upload_history WHERE season_id = ?`, seasonID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
