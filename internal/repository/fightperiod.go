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

type FightPeriodRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFightPeriodRepository(db *sql.DB, logger zerolog.Logger) *FightPeriodRepository {
	return &FightPeriodRepository{db: db, logger: logger}
}

func (r *FightPeriodRepository) Get(ctx context.Context, seasonID string, fightNumber int) (*domain.FightPeriod, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM fight_periods WHERE season_id = ? AND fight_number = ?`,
		seasonID, fightNumber,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fight period: %w", err)
	}

	var fp domain.FightPeriod
	if err := json.Unmarshal(doc, &fp); err != nil {
		return nil, fmt.Errorf("failed to decode fight period: %w", err)
	}
	return &fp, nil
}

// ListBySeason returns a season's fight periods ordered by fight number.
func (r *FightPeriodRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.FightPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM fight_periods WHERE season_id = ? ORDER BY fight_number ASC`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fight periods: %w", err)
	}
	defer rows.Close()

	var periods []domain.FightPeriod
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan fight period: %w", err)
		}
		var fp domain.FightPeriod
		if err := json.Unmarshal(doc, &fp); err != nil {
			return nil, fmt.Errorf("failed to decode fight period: %w", err)
		}
		periods = append(periods, fp)
	}

	return periods, rows.Err()
}

// Insert creates a fight period. The composite primary key rejects duplicate
// fight numbers within a season.
func (r *FightPeriodRepository) Insert(ctx context.Context, fp *domain.FightPeriod) error {
	doc, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to encode fight period: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO fight_periods (season_id, fight_number, doc) VALUES (?, ?, ?)`,
		fp.SeasonID, fp.FightNumber, doc)
	if err != nil {
		return fmt.Errorf("failed to insert fight period: %w", err)
	}

	r.logger.Info().
		Str("season_id", fp.SeasonID).
		Int("fight_number", fp.FightNumber).
		Msg("fight period created")
	return nil
}

func (r *FightPeriodRepository) Update(ctx context.Context, fp *domain.FightPeriod) error {
	doc, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to encode fight period: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE fight_periods SET doc = ? WHERE season_id = ? AND fight_number = ?`,
		doc, fp.SeasonID, fp.FightNumber)
	if err != nil {
		return fmt.Errorf("failed to update fight period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *FightPeriodRepository) Delete(ctx context.Context, seasonID string, fightNumber int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM fight_periods WHERE season_id = ? AND fight_number = ?`,
		seasonID, fightNumber)
	if err != nil {
		return fmt.Errorf("failed to delete fight period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
