package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"kvk-tracker/internal/database"
	"kvk-tracker/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second connection would see a second empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	return db
}

func somePlayers() []domain.PlayerRecord {
	return []domain.PlayerRecord{
		{GovernorID: "1001", GovernorName: "Alice", Stats: domain.StatVector{Power: 100, KillPoints: 10}},
		{GovernorID: "2002", GovernorName: "Bob", Stats: domain.StatVector{Power: 200, KillPoints: 20}},
	}
}

func TestBaselineRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBaselineRepository(testDB(t), zerolog.Nop())

	_, err := repo.Get(ctx, "season_1")
	require.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Replace(ctx, &domain.Baseline{
		SeasonID:    "season_1",
		FileName:    "baseline.csv",
		Timestamp:   now,
		LastUpdated: now,
		Players:     somePlayers(),
	}))

	got, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, "baseline.csv", got.FileName)
	require.Len(t, got.Players, 2)
	assert.Equal(t, int64(100), got.Players[0].Stats.Power)

	// Replace overwrites in place.
	require.NoError(t, repo.Replace(ctx, &domain.Baseline{
		SeasonID:    "season_1",
		FileName:    "baseline_v2.csv",
		Timestamp:   now,
		LastUpdated: now,
		Players:     somePlayers()[:1],
	}))
	got, err = repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, "baseline_v2.csv", got.FileName)
	assert.Len(t, got.Players, 1)

	// Amendment path, conditional on the version just read.
	require.NoError(t, repo.UpdatePlayers(ctx, "season_1", somePlayers(), got.Version))
	got, err = repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)

	require.ErrorIs(t, repo.UpdatePlayers(ctx, "season_99", nil, 0), ErrNotFound)
}

func TestBaselineUpdatePlayersConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewBaselineRepository(testDB(t), zerolog.Nop())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Replace(ctx, &domain.Baseline{
		SeasonID:    "season_1",
		Timestamp:   now,
		LastUpdated: now,
		Players:     somePlayers()[:1],
	}))

	stale, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)

	// A second writer amends the baseline between our read and write.
	require.NoError(t, repo.UpdatePlayers(ctx, "season_1", somePlayers(), stale.Version))

	err = repo.UpdatePlayers(ctx, "season_1", stale.Players, stale.Version)
	require.ErrorIs(t, err, ErrConflict)

	// The interleaving writer's rows survived.
	got, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.Greater(t, got.Version, stale.Version)
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(testDB(t), zerolog.Nop())

	_, err := repo.Get(ctx, "season_1")
	require.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	snapshot := &domain.Snapshot{
		SeasonID:  "season_1",
		FileName:  "week2.xlsx",
		Timestamp: now,
		Players: []domain.PlayerDelta{
			{GovernorID: "1001", Stats: domain.StatVector{KillPoints: 100}, Delta: domain.StatVector{KillPoints: 40}, Rank: 1},
		},
		Summary: domain.Summary{
			PlayerCount: 1,
			Totals:      map[string]int64{"kill_points": 100},
		},
	}
	require.NoError(t, repo.Replace(ctx, snapshot))

	got, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Summary.PlayerCount)
	assert.Equal(t, int64(40), got.Players[0].Delta.KillPoints)

	got.Players[0].AccountType = domain.AccountFarm
	require.NoError(t, repo.UpdatePlayers(ctx, "season_1", got.Players, got.Version))

	got, err = repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountFarm, got.Players[0].AccountType)

	// Stale version loses instead of clobbering.
	err = repo.UpdatePlayers(ctx, "season_1", got.Players, got.Version-1)
	require.ErrorIs(t, err, ErrConflict)

	require.ErrorIs(t, repo.UpdatePlayers(ctx, "season_99", nil, 0), ErrNotFound)
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(testDB(t), zerolog.Nop())

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := &domain.UploadEntry{SeasonID: "season_1", FileName: "a.csv", Timestamp: t0}
	second := &domain.UploadEntry{SeasonID: "season_1", FileName: "b.csv", Timestamp: t0.Add(time.Hour)}

	// Deliberately appended out of order.
	require.NoError(t, repo.Append(ctx, second))
	require.NoError(t, repo.Append(ctx, first))
	assert.NotEmpty(t, first.ID, "append assigns an id")
	assert.NotEqual(t, first.ID, second.ID)

	entries, err := repo.ListBySeason(ctx, "season_1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.csv", entries[0].FileName, "listed in timestamp order")

	count, err := repo.CountBySeason(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.UpdateEntry(ctx, first.ID,
		[]domain.PlayerDelta{{GovernorID: "1001"}},
		domain.Summary{PlayerCount: 1}))
	entries, err = repo.ListBySeason(ctx, "season_1")
	require.NoError(t, err)
	assert.Len(t, entries[0].Players, 1)

	n, err := repo.DeleteBySeason(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSeasonRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSeasonRepository(testDB(t), zerolog.Nop())

	n, err := repo.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Insert(ctx, &domain.Season{
		SeasonID: "season_1", SeasonNumber: 1, Status: domain.SeasonActive, IsActive: true,
	}))
	require.NoError(t, repo.Insert(ctx, &domain.Season{
		SeasonID: "season_2", SeasonNumber: 2, Status: domain.SeasonPreparing,
	}))

	n, err = repo.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	seasons, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, "season_2", seasons[0].SeasonID, "newest first")

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "season_1", active.SeasonID)

	require.NoError(t, repo.DeactivateAll(ctx))
	_, err = repo.GetActive(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeasonCompleted, got.Status)

	require.ErrorIs(t, repo.Update(ctx, &domain.Season{SeasonID: "season_99"}), ErrNotFound)
}

func TestSeasonActivateIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewSeasonRepository(testDB(t), zerolog.Nop())

	require.NoError(t, repo.Insert(ctx, &domain.Season{
		SeasonID: "season_1", SeasonNumber: 1, Status: domain.SeasonActive, IsActive: true,
	}))
	require.NoError(t, repo.Insert(ctx, &domain.Season{
		SeasonID: "season_2", SeasonNumber: 2, Status: domain.SeasonPreparing,
	}))

	require.NoError(t, repo.Activate(ctx, &domain.Season{
		SeasonID: "season_2", SeasonNumber: 2, Status: domain.SeasonActive, IsActive: true,
	}))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "season_2", active.SeasonID)

	// The previously active season was completed in the same write.
	got, err := repo.Get(ctx, "season_1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, domain.SeasonCompleted, got.Status)

	require.ErrorIs(t, repo.Activate(ctx, &domain.Season{SeasonID: "season_99", IsActive: true}), ErrNotFound)
}

func TestFightPeriodRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFightPeriodRepository(testDB(t), zerolog.Nop())

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	fp := &domain.FightPeriod{
		SeasonID:    "season_1",
		FightNumber: 1,
		FightName:   "Pass 4",
		StartTime:   start,
	}
	require.NoError(t, repo.Insert(ctx, fp))

	// Second insert on the same key must hit the composite primary key.
	require.Error(t, repo.Insert(ctx, fp))

	require.NoError(t, repo.Insert(ctx, &domain.FightPeriod{
		SeasonID: "season_1", FightNumber: 2, FightName: "Kingsland", StartTime: start.AddDate(0, 0, 7),
	}))

	periods, err := repo.ListBySeason(ctx, "season_1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 1, periods[0].FightNumber)

	fp.FightName = "Pass 4 (extended)"
	require.NoError(t, repo.Update(ctx, fp))
	got, err := repo.Get(ctx, "season_1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Pass 4 (extended)", got.FightName)

	require.NoError(t, repo.Delete(ctx, "season_1", 1))
	_, err = repo.Get(ctx, "season_1", 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "season_1", 1), ErrNotFound)
}
