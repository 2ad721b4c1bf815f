package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_IsDeepCopy(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1")
	g.Players["p1"].SelectedCountry = ptr("France")
	g.Provinces["France"] = "p1"

	snap := g.Snapshot()
	assert.Equal(t, "AB12", snap.RoomCode)
	assert.Equal(t, "p1", snap.HostID)
	assert.Equal(t, "waiting", snap.State)
	assert.Equal(t, "France", *snap.Players["p1"].SelectedCountry)

	// 修改快照不影响内部状态
	snap.Provinces["Germany"] = "p1"
	snap.FortLevels["France"] = 0
	*snap.Players["p1"].SelectedCountry = "Spain"

	assert.NotContains(t, g.Provinces, "Germany")
	assert.Equal(t, 29, g.FortLevels["France"])
	assert.Equal(t, "France", g.Players["p1"].Country())
}

func TestSnapshot_Idempotent(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	g.Provinces["France"] = "p1"

	first := g.Snapshot()
	second := g.Snapshot()
	assert.Equal(t, first, second)
	assert.Len(t, second.Players, 2)
	assert.Len(t, second.Provinces, 1)
}

func TestSnapshot_Timestamps(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1")
	now := time.UnixMilli(1_700_000_000_000)
	g.StartPlaying(now, time.Minute)

	snap := g.Snapshot()
	require.NotNil(t, snap.GameStartTime)
	require.NotNil(t, snap.GameEndTime)
	assert.Equal(t, int64(1_700_000_000_000), *snap.GameStartTime)
	assert.Equal(t, int64(1_700_000_060_000), *snap.GameEndTime)
}

func TestPhaseUpdate(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1")
	g.Phase = PhaseCountdown
	g.Countdown = 3

	u := g.PhaseUpdate()
	assert.Equal(t, "countdown", u.State)
	require.NotNil(t, u.Countdown)
	assert.Equal(t, 3, *u.Countdown)
	assert.Nil(t, u.Players)
	assert.Nil(t, u.GameStartTime)
}

func TestPlayersUpdate(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")

	u := g.PlayersUpdate("p2", "ghost")
	assert.Len(t, u.Players, 1)
	assert.Contains(t, u.Players, "p2")

	assert.Len(t, g.PlayersUpdate().Players, 2)
}

func TestLeaderboard_StableByJoinOrder(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2", "p3", "p4")
	g.Provinces["France"] = "p3"
	g.Provinces["Spain"] = "p3"
	g.Provinces["Germany"] = "p2"
	g.Provinces["Poland"] = "p4"

	board := g.Leaderboard()
	require.Len(t, board, 4)

	ids := []string{board[0].PlayerID, board[1].PlayerID, board[2].PlayerID, board[3].PlayerID}
	assert.Equal(t, []string{"p3", "p2", "p4", "p1"}, ids)
	assert.Equal(t, 2, board[0].Score)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 4, board[3].Rank)
	assert.Equal(t, 0, board[3].Score)
}
