package service

import (
	"context"
	"testing"

	"kvk-tracker/internal/domain"
	"kvk-tracker/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalKvKProcess(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	rows := []ingest.FinalKvKRow{
		{Row: 2, GovernorID: governorID(1), AccountType: "main", T4Deaths: 1000, T5Deaths: 200, Notes: "verified by scan"},
		{Row: 3, GovernorID: governorID(2), AccountType: "farm", LinkedToMain: governorID(1), T4Deaths: 50, T5Deaths: 0},
		{Row: 4, GovernorID: governorID(3), AccountType: "vacation", T4Deaths: 0, T5Deaths: 0},
		{Row: 5, GovernorID: "g9", AccountType: "main", T4Deaths: 1, T5Deaths: 1},
		{Row: 6, GovernorID: governorID(1), AccountType: "whale", T4Deaths: 1, T5Deaths: 1},
	}

	result, err := f.finals.Process(ctx, "season_1", "final.xlsx", rows)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 3, result.PlayersProcessed)
	assert.Equal(t, 3, result.ClassificationsUpdated)
	assert.Equal(t, 3, result.DeathsVerified)
	assert.Equal(t, 1, result.FarmsLinked)

	require.Len(t, result.Warnings, 1, "unknown player is a warning")
	assert.Equal(t, "g9", result.Warnings[0].GovernorID)
	require.Len(t, result.Errors, 1, "bad account type is an error")
	assert.Equal(t, 6, result.Errors[0].Row)

	// Classification and link landed on the snapshot.
	cls, err := f.classifications.GetClassification(ctx, "season_1", governorID(2))
	require.NoError(t, err)
	assert.Equal(t, domain.AccountFarm, cls.AccountType)
	assert.Equal(t, governorID(1), cls.LinkedToMain)

	// The bad-account-type row did not clobber the earlier classification.
	cls, err = f.classifications.GetClassification(ctx, "season_1", governorID(1))
	require.NoError(t, err)
	assert.Equal(t, domain.AccountMain, cls.AccountType)

	// Deaths arrived verified, so they count toward DKP.
	score, err := f.contributions.PlayerScore(ctx, "season_1", governorID(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1000*4+200*8), score.TotalDeathScore)

	require.NotNil(t, result.Verification)
	assert.Equal(t, 3, result.Verification.Verified)
	require.NotNil(t, result.ClassificationSummary)
	assert.Equal(t, 1, result.ClassificationSummary.FarmAccounts)
}

func TestFinalKvKProcessFarmWithoutLink(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	rows := []ingest.FinalKvKRow{
		{Row: 2, GovernorID: governorID(2), AccountType: "farm", T4Deaths: 0, T5Deaths: 0},
	}

	result, err := f.finals.Process(ctx, "season_1", "final.xlsx", rows)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FarmsLinked)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "no linked_to_main")
}

func TestFinalKvKProcessRequiresSnapshot(t *testing.T) {
	f := newFixture(t)

	_, err := f.finals.Process(context.Background(), "season_1", "final.xlsx",
		[]ingest.FinalKvKRow{{Row: 2, GovernorID: "g1", AccountType: "main"}})
	require.ErrorIs(t, err, ErrNoData)
}
