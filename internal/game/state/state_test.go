package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/europe-conquest/internal/game/rule"
)

func ptr(s string) *string { return &s }

func newTestState(t *testing.T, ids ...string) *GameState {
	t.Helper()
	g := New("AB12", 5)
	for i, id := range ids {
		g.AddPlayer(NewPlayer(id, "Player "+id, rule.Palette[i], nil))
	}
	return g
}

func assertSingleHost(t *testing.T, g *GameState) {
	t.Helper()
	if g.PlayerCount() == 0 {
		assert.Empty(t, g.HostID)
		return
	}
	hosts := 0
	for id, p := range g.Players {
		if p.IsHost {
			hosts++
			assert.Equal(t, g.HostID, id)
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestNew(t *testing.T) {
	t.Parallel()

	g := New("AB12", 5)
	assert.Equal(t, PhaseWaiting, g.Phase)
	assert.Equal(t, 5, g.Countdown)
	assert.Equal(t, 42, g.FortLevel("Germany"))
	assert.Equal(t, 0, g.FortLevel("Atlantis"))
	assert.Empty(t, g.Provinces)
	assert.Nil(t, g.GameStartTime)
}

func TestNewPlayer(t *testing.T) {
	t.Parallel()

	p := NewPlayer("p1", "Anna", "#e74c3c", ptr("France"))
	assert.Equal(t, rule.InitialPower, p.Power)
	assert.Zero(t, p.Economy)
	assert.False(t, p.IsReady)
	assert.Equal(t, "France", p.Country())
	assert.Equal(t, "", NewPlayer("p2", "B", "", nil).Country())
}

func TestAddPlayer_FirstIsHost(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2", "p3")
	assert.Equal(t, "p1", g.HostID)
	assert.True(t, g.Players["p1"].IsHost)
	assert.False(t, g.Players["p2"].IsHost)
	assert.Equal(t, []string{"p1", "p2", "p3"}, g.Order)
	assertSingleHost(t, g)

	// 重复加入被忽略
	g.AddPlayer(NewPlayer("p2", "dup", "", nil))
	assert.Len(t, g.Order, 3)
	assert.Equal(t, "Player p2", g.Players["p2"].Name)
}

func TestRemovePlayer_HostInvariant(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2", "p3")

	sequences := []string{"p2", "p1", "p3"}
	for _, id := range sequences {
		removed, _ := g.RemovePlayer(id)
		require.NotNil(t, removed)
		assertSingleHost(t, g)
	}
	assert.Equal(t, 0, g.PlayerCount())

	g.AddPlayer(NewPlayer("p4", "late", "", nil))
	assert.Equal(t, "p4", g.HostID)
	assertSingleHost(t, g)
}

func TestRemovePlayer_HostPromotesByJoinOrder(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2", "p3")
	g.RemovePlayer("p1")
	assert.Equal(t, "p2", g.HostID)
	assert.True(t, g.Players["p2"].IsHost)
}

func TestRemovePlayer_DropsProvinces(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	g.Provinces["France"] = "p1"
	g.Provinces["Poland"] = "p1"
	g.Provinces["Germany"] = "p2"

	_, lost := g.RemovePlayer("p1")
	assert.Equal(t, []string{"France", "Poland"}, lost)
	assert.Equal(t, map[string]string{"Germany": "p2"}, g.Provinces)

	removed, lost := g.RemovePlayer("ghost")
	assert.Nil(t, removed)
	assert.Nil(t, lost)
}

func TestSelectionOwner(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	g.Players["p1"].SelectedCountry = ptr("France")

	owner, taken := g.SelectionOwner("France", "p2")
	assert.True(t, taken)
	assert.Equal(t, "p1", owner)

	_, taken = g.SelectionOwner("France", "p1")
	assert.False(t, taken)

	_, taken = g.SelectionOwner("Germany", "p2")
	assert.False(t, taken)
}

func TestAvailableColors(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	colors := g.AvailableColors()
	assert.Len(t, colors, len(rule.Palette)-2)
	assert.NotContains(t, colors, rule.Palette[0])
	assert.NotContains(t, colors, rule.Palette[1])
}

func TestAllReady(t *testing.T) {
	t.Parallel()

	assert.False(t, New("AB12", 5).AllReady())

	g := newTestState(t, "p1", "p2")
	g.Players["p1"].IsReady = true
	assert.False(t, g.AllReady())
	g.Players["p2"].IsReady = true
	assert.True(t, g.AllReady())
}

func TestStartPlaying(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "host", "p2", "p3")
	g.Players["host"].SelectedCountry = ptr("France")
	g.Players["host"].IsReady = true
	g.Players["p2"].SelectedCountry = ptr("Germany")
	g.Players["p2"].IsReady = true
	g.Players["p3"].SelectedCountry = ptr("Spain") // 未准备

	now := time.UnixMilli(1_700_000_000_000)
	g.StartPlaying(now, 10*time.Minute)

	assert.Equal(t, PhasePlaying, g.Phase)
	assert.Equal(t, map[string]string{"France": "host", "Germany": "p2"}, g.Provinces)
	assert.InDelta(t, 0.5*2937.5, g.Players["host"].Economy, 1e-9)
	assert.InDelta(t, 2129.95, g.Players["p2"].Economy, 1e-9)
	assert.Zero(t, g.Players["p3"].Economy)
	require.NotNil(t, g.GameEndTime)
	assert.Equal(t, 10*time.Minute, g.GameEndTime.Sub(*g.GameStartTime))
}

func TestTicks(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	g.Provinces["Germany"] = "p1"
	g.Provinces["Atlantis"] = "p1"

	g.TickPower()
	g.TickEconomy()

	assert.Equal(t, rule.InitialPower+1, g.Players["p1"].Power)
	assert.Equal(t, rule.InitialPower+1, g.Players["p2"].Power)
	assert.InDelta(t, 4259.9*0.02, g.Players["p1"].Economy, 1e-9)
	assert.Zero(t, g.Players["p2"].Economy)
}

func TestResetRound(t *testing.T) {
	t.Parallel()

	g := newTestState(t, "p1", "p2")
	g.Players["p1"].IsReady = true
	g.Players["p1"].Economy = 99
	g.Players["p1"].Power = 40
	g.Provinces["France"] = "p1"
	g.FortLevels["France"] = 35
	g.StartPlaying(time.Now(), time.Minute)
	g.Phase = PhaseEnded

	g.ResetRound(5)

	assert.Equal(t, PhaseWaiting, g.Phase)
	assert.Empty(t, g.Provinces)
	assert.Nil(t, g.GameStartTime)
	assert.Nil(t, g.GameEndTime)
	assert.Equal(t, 5, g.Countdown)
	assert.False(t, g.Players["p1"].IsReady)
	assert.Zero(t, g.Players["p1"].Economy)
	assert.Equal(t, rule.InitialPower, g.Players["p1"].Power)
	assert.Equal(t, 35, g.FortLevels["France"])
	assert.Equal(t, 2, g.PlayerCount())
}
