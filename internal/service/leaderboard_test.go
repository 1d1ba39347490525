package service

import (
	"context"
	"fmt"
	"testing"

	"kvk-tracker/internal/constants"
	"kvk-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterOf(n int) []domain.PlayerRecord {
	players := make([]domain.PlayerRecord, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, domain.PlayerRecord{
			GovernorID:   fmt.Sprintf("gov%04d", i),
			GovernorName: fmt.Sprintf("player %d", i),
			Stats: domain.StatVector{
				Power:      1_000_000,
				KillPoints: int64(i) * 10,
			},
		})
	}
	return players
}

func TestGetPlayerBelowLeaderboardCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	size := constants.MaxLeaderboardLimit + 1
	baseline := rosterOf(size)
	_, err := f.uploads.ProcessBaseline(ctx, "season_1", "baseline.csv", baseline)
	require.NoError(t, err)

	// Everyone gains kill points except gov0000, who lands last.
	current := rosterOf(size)
	for i := 1; i < size; i++ {
		current[i].Stats.KillPoints += int64(i)
	}
	_, err = f.uploads.ProcessCurrent(ctx, "season_1", "current.csv", "", current)
	require.NoError(t, err)

	board, err := f.leaderboards.Get(ctx, "season_1", constants.DefaultSortKey, 0)
	require.NoError(t, err)
	assert.Len(t, board.Players, constants.DefaultLeaderboardLimit)

	p, err := f.leaderboards.GetPlayer(ctx, "season_1", "gov0000")
	require.NoError(t, err)
	assert.Equal(t, size, p.Rank)
	assert.Equal(t, int64(0), p.Delta.KillPoints)

	_, err = f.leaderboards.GetPlayer(ctx, "season_1", "gov9999")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestGetPlayerBaselineOnlyFullRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	size := constants.MaxLeaderboardLimit + 1
	_, err := f.uploads.ProcessBaseline(ctx, "season_1", "baseline.csv", rosterOf(size))
	require.NoError(t, err)

	// Zero deltas everywhere, so ties keep input order and the last
	// player in the file lands past the board cap.
	last := fmt.Sprintf("gov%04d", size-1)
	p, err := f.leaderboards.GetPlayer(ctx, "season_1", last)
	require.NoError(t, err)
	assert.Equal(t, size, p.Rank)
	assert.True(t, p.InBaseline)
}
