package service

import (
	"context"
	"testing"

	"kvk-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSnapshot gets three linked-up players into a season: one future main,
// two future farms.
func seedSnapshot(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	_, err := f.uploads.ProcessBaseline(ctx, "season_1", "baseline.csv", uploadPlayers(
		[6]int64{1, 1000, 100, 0, 0, 0},
		[6]int64{2, 500, 50, 0, 0, 0},
		[6]int64{3, 300, 30, 0, 0, 0},
	))
	require.NoError(t, err)
	_, err = f.uploads.ProcessCurrent(ctx, "season_1", "week1.csv", "", uploadPlayers(
		[6]int64{1, 1000, 150, 0, 0, 0},
		[6]int64{2, 500, 60, 0, 0, 0},
		[6]int64{3, 300, 40, 0, 0, 0},
	))
	require.NoError(t, err)
}

func TestLinkRequiresFarmClassification(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	err := f.classifications.Link(ctx, "season_1", governorID(2), governorID(1))
	require.ErrorIs(t, err, ErrClassificationConflict, "unclassified account cannot be linked as a farm")
}

func TestLinkRejectsFarmAsMain(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(2), domain.AccountFarm, false, ""))
	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(3), domain.AccountFarm, false, ""))

	err := f.classifications.Link(ctx, "season_1", governorID(2), governorID(3))
	require.ErrorIs(t, err, ErrClassificationConflict, "a farm cannot own farms")
}

func TestLinkRejectsSelfLink(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)

	err := f.classifications.Link(context.Background(), "season_1", governorID(2), governorID(2))
	require.ErrorIs(t, err, ErrClassificationConflict)
}

func TestRelinkMovesFarm(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(3), domain.AccountFarm, false, ""))
	require.NoError(t, f.classifications.Link(ctx, "season_1", governorID(3), governorID(1)))
	// Last link wins: moving the farm detaches it from the first main.
	require.NoError(t, f.classifications.Link(ctx, "season_1", governorID(3), governorID(2)))

	oldMain, err := f.classifications.GetClassification(ctx, "season_1", governorID(1))
	require.NoError(t, err)
	assert.Empty(t, oldMain.FarmAccounts)

	newMain, err := f.classifications.GetClassification(ctx, "season_1", governorID(2))
	require.NoError(t, err)
	assert.Equal(t, []string{governorID(3)}, newMain.FarmAccounts)

	farm, err := f.classifications.GetClassification(ctx, "season_1", governorID(3))
	require.NoError(t, err)
	assert.Equal(t, governorID(2), farm.LinkedToMain)
}

func TestReclassifyFarmClearsLink(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(2), domain.AccountFarm, false, ""))
	require.NoError(t, f.classifications.Link(ctx, "season_1", governorID(2), governorID(1)))

	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(2), domain.AccountMain, false, ""))

	former, err := f.classifications.GetClassification(ctx, "season_1", governorID(2))
	require.NoError(t, err)
	assert.Empty(t, former.LinkedToMain)

	main, err := f.classifications.GetClassification(ctx, "season_1", governorID(1))
	require.NoError(t, err)
	assert.Empty(t, main.FarmAccounts)
}

func TestClassifyRejectsUnknownTypeAndPlayer(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	err := f.classifications.Classify(ctx, "season_1", governorID(1), "whale", false, "")
	require.ErrorIs(t, err, ErrClassificationConflict)

	err = f.classifications.Classify(ctx, "season_1", "g99", domain.AccountMain, false, "")
	require.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestUnlinkRestoresStandaloneFarm(t *testing.T) {
	f := newFixture(t)
	seedSnapshot(t, f)
	ctx := context.Background()

	require.NoError(t, f.classifications.Classify(ctx, "season_1", governorID(2), domain.AccountFarm, false, ""))
	require.NoError(t, f.classifications.Link(ctx, "season_1", governorID(2), governorID(1)))
	require.NoError(t, f.classifications.Unlink(ctx, "season_1", governorID(2), governorID(1)))

	farm, err := f.classifications.GetClassification(ctx, "season_1", governorID(2))
	require.NoError(t, err)
	assert.Empty(t, farm.LinkedToMain)
	assert.Equal(t, domain.AccountFarm, farm.AccountType, "unlink does not reclassify")

	summary, err := f.classifications.Summary(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalPlayers)
	assert.Equal(t, 1, summary.FarmAccounts)
	assert.Equal(t, 0, summary.FarmsLinked)
	assert.Equal(t, 2, summary.Unclassified)
}
