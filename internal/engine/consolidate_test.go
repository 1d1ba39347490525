package engine

import (
	"testing"

	"kvk-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(id string, accountType domain.AccountType, linkedTo string, kp, kpGained int64) domain.PlayerDelta {
	return domain.PlayerDelta{
		GovernorID:   id,
		GovernorName: "player " + id,
		AccountType:  accountType,
		LinkedToMain: linkedTo,
		Stats:        domain.StatVector{KillPoints: kp},
		Delta:        domain.StatVector{KillPoints: kpGained},
	}
}

func TestConsolidateMergesFarmsIntoMain(t *testing.T) {
	players := []domain.PlayerDelta{
		classified("main1", domain.AccountMain, "", 1000, 100),
		classified("farm1", domain.AccountFarm, "main1", 200, 20),
		classified("farm2", domain.AccountFarm, "main1", 300, 30),
	}

	rows := testEngine().Consolidate(players, "kill_points_gained")

	require.Len(t, rows, 1, "farms never appear standalone")
	row := rows[0]
	assert.Equal(t, "main1", row.GovernorID)
	assert.Equal(t, int64(1500), row.CombinedStats.KillPoints)
	assert.Equal(t, int64(150), row.CombinedDelta.KillPoints)
	assert.Equal(t, int64(1000), row.MainStats.KillPoints)
	assert.Equal(t, 2, row.FarmCount)
	require.Len(t, row.FarmDetails, 2)
	assert.Equal(t, "farm1", row.FarmDetails[0].GovernorID)
}

func TestConsolidateConservation(t *testing.T) {
	// Total kill points across combined rows must equal the sum over mains
	// and linked farms; nothing is counted twice or dropped.
	players := []domain.PlayerDelta{
		classified("m1", domain.AccountMain, "", 1000, 0),
		classified("f1", domain.AccountFarm, "m1", 200, 0),
		classified("m2", domain.AccountMain, "", 500, 0),
		classified("u1", "", "", 50, 0),
	}

	rows := testEngine().Consolidate(players, "kill_points")

	var total int64
	for _, r := range rows {
		total += r.CombinedStats.KillPoints
	}
	assert.Equal(t, int64(1750), total)
}

func TestConsolidateUnclassifiedTreatedAsMain(t *testing.T) {
	players := []domain.PlayerDelta{
		classified("u1", "", "", 100, 10),
	}

	rows := testEngine().Consolidate(players, "kill_points_gained")
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AccountMain, rows[0].AccountType)
}

func TestConsolidateSkipsVacationAccounts(t *testing.T) {
	players := []domain.PlayerDelta{
		classified("m1", domain.AccountMain, "", 100, 10),
		classified("v1", domain.AccountVacation, "", 900, 90),
	}

	rows := testEngine().Consolidate(players, "kill_points_gained")
	require.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0].GovernorID)
}

func TestConsolidateOrphanedFarmOmitted(t *testing.T) {
	players := []domain.PlayerDelta{
		classified("m1", domain.AccountMain, "", 1000, 100),
		classified("ghostfarm", domain.AccountFarm, "missing", 500, 50),
		classified("farmfarm", domain.AccountFarm, "otherfarm", 300, 30),
		classified("otherfarm", domain.AccountFarm, "m1", 200, 20),
	}

	rows := testEngine().Consolidate(players, "kill_points_gained")

	require.Len(t, rows, 1)
	// m1 absorbs only its valid farm; the orphan and the farm-linked-to-farm
	// are dropped from every total.
	assert.Equal(t, int64(1200), rows[0].CombinedStats.KillPoints)
	assert.Equal(t, 1, rows[0].FarmCount)
}

func TestConsolidateRanksByCombinedValue(t *testing.T) {
	players := []domain.PlayerDelta{
		classified("solo", domain.AccountMain, "", 0, 120),
		classified("boosted", domain.AccountMain, "", 0, 80),
		classified("f1", domain.AccountFarm, "boosted", 0, 50),
	}

	rows := testEngine().Consolidate(players, "kill_points_gained")

	require.Len(t, rows, 2)
	assert.Equal(t, "boosted", rows[0].GovernorID, "combined 130 beats solo 120")
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
}
