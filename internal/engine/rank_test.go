package engine

import (
	"testing"

	"kvk-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func delta(id string, kpGained, power int64) domain.PlayerDelta {
	return domain.PlayerDelta{
		GovernorID: id,
		Stats:      domain.StatVector{Power: power},
		Delta:      domain.StatVector{KillPoints: kpGained},
	}
}

func TestRankByGainedFieldDescending(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("low", 100, 0),
		delta("high", 900, 0),
		delta("mid", 500, 0),
	}

	ranked := testEngine().Rank(players, "kill_points_gained", false)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, ids(ranked))
	for i, p := range ranked {
		assert.Equal(t, i+1, p.Rank)
	}
	// Input untouched.
	assert.Equal(t, "low", players[0].GovernorID)
	assert.Equal(t, 0, players[0].Rank)
}

func TestRankByRawField(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("small", 900, 10),
		delta("big", 100, 90),
	}

	ranked := testEngine().Rank(players, "power", false)
	assert.Equal(t, []string{"big", "small"}, ids(ranked))
}

func TestRankAscending(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("b", 500, 0),
		delta("a", 100, 0),
	}

	ranked := testEngine().Rank(players, "kill_points_gained", true)
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
}

func TestRankUnknownKeyKeepsInputOrder(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("first", 100, 0),
		delta("second", 900, 0),
	}

	ranked := testEngine().Rank(players, "no_such_field", false)

	assert.Equal(t, []string{"first", "second"}, ids(ranked))
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRankStableTies(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("tied1", 500, 0),
		delta("tied2", 500, 0),
		delta("tied3", 500, 0),
	}

	ranked := testEngine().Rank(players, "kill_points_gained", false)
	assert.Equal(t, []string{"tied1", "tied2", "tied3"}, ids(ranked))
}

func TestRankIdempotent(t *testing.T) {
	players := []domain.PlayerDelta{
		delta("a", 300, 0),
		delta("b", 700, 0),
		delta("c", 700, 0),
	}

	once := testEngine().Rank(players, "kill_points_gained", false)
	twice := testEngine().Rank(once, "kill_points_gained", false)
	assert.Equal(t, once, twice)
}

func TestSummarizeTotalsAveragesAndLeaders(t *testing.T) {
	players := []domain.PlayerDelta{
		{
			GovernorID:   "1001",
			GovernorName: "Alice",
			Stats:        domain.StatVector{Power: 100, KillPoints: 1000},
			Delta:        domain.StatVector{KillPoints: 50},
		},
		{
			GovernorID:   "2002",
			GovernorName: "Bob",
			Stats:        domain.StatVector{Power: 300, KillPoints: 400},
			Delta:        domain.StatVector{KillPoints: 200},
		},
	}

	summary := testEngine().Summarize(players)

	assert.Equal(t, 2, summary.PlayerCount)
	assert.Equal(t, int64(400), summary.Totals["power"])
	assert.Equal(t, int64(200), summary.Averages["power"])
	assert.Equal(t, int64(1400), summary.Totals["kill_points"])

	// Kill point leader is the biggest gainer, power leader the biggest
	// account overall.
	assert.Equal(t, "2002", summary.TopPlayers["kill_points"].GovernorID)
	assert.Equal(t, int64(200), summary.TopPlayers["kill_points"].Value)
	assert.Equal(t, "2002", summary.TopPlayers["power"].GovernorID)
	assert.Equal(t, int64(300), summary.TopPlayers["power"].Value)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := testEngine().Summarize(nil)
	assert.Equal(t, 0, summary.PlayerCount)
	assert.Empty(t, summary.Totals)
}

func ids(players []domain.PlayerDelta) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.GovernorID
	}
	return out
}
