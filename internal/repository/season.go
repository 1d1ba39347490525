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

type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(db *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: db, logger: logger}
}

func (r *SeasonRepository) Get(ctx context.Context, seasonID string) (*domain.Season, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM seasons WHERE season_id = ?`, seasonID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	return decodeSeason(doc)
}

// GetActive returns the single active season, or ErrNotFound.
func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	seasons, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range seasons {
		if seasons[i].IsActive {
			return &seasons[i], nil
		}
	}
	return nil, ErrNotFound
}

// List returns all seasons, newest season number first.
func (r *SeasonRepository) List(ctx context.Context) ([]domain.Season, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM seasons ORDER BY season_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		s, err := decodeSeason(doc)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, *s)
	}

	return seasons, rows.Err()
}

// NextNumber returns the next sequential season number.
func (r *SeasonRepository) NextNumber(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(season_number) FROM seasons`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max season number: %w", err)
	}
	return int(max.Int64) + 1, nil
}

// Insert creates a season. The unique season_number index rejects races on
// concurrent creation.
func (r *SeasonRepository) Insert(ctx context.Context, s *domain.Season) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode season: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO seasons (season_id, season_number, doc) VALUES (?, ?, ?)`,
		s.SeasonID, s.SeasonNumber, doc)
	if err != nil {
		return fmt.Errorf("failed to insert season: %w", err)
	}

	r.logger.Info().Str("season_id", s.SeasonID).Msg("season created")
	return nil
}

func (r *SeasonRepository) Update(ctx context.Context, s *domain.Season) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode season: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE seasons SET doc = ? WHERE season_id = ?`, doc, s.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to update season: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeactivateAll clears the active flag on every season in one statement,
// downgrading an active status to completed in the same write.
func (r *SeasonRepository) DeactivateAll(ctx context.Context) error {
	return deactivateAll(ctx, r.db)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deactivateAll(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx,
		`UPDATE seasons
		    SET doc = json_set(doc,
		        '$.is_active', json('false'),
		        '$.status',
		        CASE WHEN json_extract(doc, '$.status') = ?
		             THEN ? ELSE json_extract(doc, '$.status') END)
		  WHERE json_extract(doc, '$.is_active')`,
		string(domain.SeasonActive), string(domain.SeasonCompleted))
	if err != nil {
		return fmt.Errorf("failed to deactivate seasons: %w", err)
	}
	return nil
}

// Activate makes s the only active season: every other season is deactivated
// and s's document is written, in one transaction. The caller sets the
// activation fields on s before calling.
func (r *SeasonRepository) Activate(ctx context.Context, s *domain.Season) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode season: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin activate: %w", err)
	}
	defer tx.Rollback()

	if err := deactivateAll(ctx, tx); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE seasons SET doc = ? WHERE season_id = ?`, doc, s.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to activate season: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activate: %w", err)
	}

	r.logger.Info().Str("season_id", s.SeasonID).Msg("season activated")
	return nil
}

func decodeSeason(doc []byte) (*domain.Season, error) {
	var s domain.Season
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("failed to decode season: %w", err)
	}
	return &s, nil
}
