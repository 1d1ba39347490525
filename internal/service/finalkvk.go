package service

import (
	"context"
	"errors"
	"fmt"

	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/ingest"
	"kvk-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// FinalKvKService processes the end-of-KvK finalization workbook: one upload
// that classifies every account, links farms to mains, and records the
// admin-verified death splits in a single pass.
type FinalKvKService struct {
	classifications *ClassificationService
	contributions   *ContributionService
	snapshots       *repository.SnapshotRepository
	logger          zerolog.Logger
}

func NewFinalKvKService(
	classifications *ClassificationService,
	contributions *ContributionService,
	snapshots *repository.SnapshotRepository,
	logger zerolog.Logger,
) *FinalKvKService {
	return &FinalKvKService{
		classifications: classifications,
		contributions:   contributions,
		snapshots:       snapshots,
		logger:          logger,
	}
}

// FinalKvKIssue points an admin at one workbook row that was skipped or
// rejected.
type FinalKvKIssue struct {
	Row        int    `json:"row"`
	GovernorID string `json:"governor_id,omitempty"`
	Message    string `json:"message"`
}

// FinalKvKResult reports what the finalization upload did, row by row.
type FinalKvKResult struct {
	SeasonID  string `json:"season_id"`
	FileName  string `json:"file_name"`
	TotalRows int    `json:"total_rows"`

	PlayersProcessed       int `json:"players_processed"`
	ClassificationsUpdated int `json:"classifications_updated"`
	FarmsLinked            int `json:"farms_linked"`
	DeathsVerified         int `json:"deaths_verified"`

	Errors   []FinalKvKIssue `json:"errors,omitempty"`
	Warnings []FinalKvKIssue `json:"warnings,omitempty"`

	Verification          *VerificationStatus    `json:"verification,omitempty"`
	ClassificationSummary *ClassificationSummary `json:"classification_summary,omitempty"`
}

// Process applies a parsed finalization workbook to the season. Two passes:
// classification and verified deaths first, then farm linking, so a farm can
// link to a main classified later in the same file. Bad rows are reported,
// not fatal; good rows around them still land.
func (s *FinalKvKService) Process(ctx context.Context, seasonID, fileName string, rows []ingest.FinalKvKRow) (*FinalKvKResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	snapshot, err := s.snapshots.Get(ctx, seasonID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, seasonID)
	}
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(snapshot.Players))
	for _, p := range snapshot.Players {
		known[p.GovernorID] = true
	}

	result := &FinalKvKResult{
		SeasonID:  seasonID,
		FileName:  fileName,
		TotalRows: len(rows),
	}

	for _, row := range rows {
		if !known[row.GovernorID] {
			result.Warnings = append(result.Warnings, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    "player not in current data, skipped",
			})
			continue
		}

		accountType := domain.AccountType(row.AccountType)
		if !accountType.Valid() {
			result.Errors = append(result.Errors, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    fmt.Sprintf("invalid account_type %q", row.AccountType),
			})
			continue
		}

		if err := s.classifications.Classify(ctx, seasonID, row.GovernorID, accountType, false, row.Notes); err != nil {
			result.Errors = append(result.Errors, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    err.Error(),
			})
			continue
		}
		result.ClassificationsUpdated++

		if err := s.contributions.SetVerifiedDeaths(ctx, seasonID, row.GovernorID, row.T4Deaths, row.T5Deaths, true, row.Notes); err != nil {
			result.Errors = append(result.Errors, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    err.Error(),
			})
			continue
		}
		result.DeathsVerified++
		result.PlayersProcessed++
	}

	for _, row := range rows {
		if row.AccountType != string(domain.AccountFarm) || !known[row.GovernorID] {
			continue
		}
		if row.LinkedToMain == "" {
			result.Warnings = append(result.Warnings, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    "farm account with no linked_to_main",
			})
			continue
		}
		if err := s.classifications.Link(ctx, seasonID, row.GovernorID, row.LinkedToMain); err != nil {
			result.Warnings = append(result.Warnings, FinalKvKIssue{
				Row:        row.Row,
				GovernorID: row.GovernorID,
				Message:    err.Error(),
			})
			continue
		}
		result.FarmsLinked++
	}

	if status, err := s.contributions.Verification(ctx, seasonID); err == nil {
		result.Verification = status
	}
	if summary, err := s.classifications.Summary(ctx, seasonID); err == nil {
		result.ClassificationSummary = summary
	}

	s.logger.Info().
		Str("season_id", seasonID).
		Str("file_name", fileName).
		Int("players_processed", result.PlayersProcessed).
		Int("farms_linked", result.FarmsLinked).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("final kvk data processed")

	return result, nil
}
