package state

import (
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// Info 转换为线上格式的玩家信息
func (p *Player) Info() protocol.PlayerInfo {
	info := protocol.PlayerInfo{
		ID:      p.ID,
		Name:    p.Name,
		Color:   p.Color,
		IsHost:  p.IsHost,
		IsReady: p.IsReady,
		Power:   p.Power,
		Economy: p.Economy,
	}
	if p.SelectedCountry != nil {
		c := *p.SelectedCountry
		info.SelectedCountry = &c
	}
	return info
}

// PlayersInfo 所有玩家信息
func (g *GameState) PlayersInfo() map[string]protocol.PlayerInfo {
	return lo.MapValues(g.Players, func(p *Player, _ string) protocol.PlayerInfo { return p.Info() })
}

// Snapshot 深拷贝出全量快照，结果与内部状态不共享任何可变数据
func (g *GameState) Snapshot() protocol.GameStateDTO {
	return protocol.GameStateDTO{
		RoomCode:      g.RoomCode,
		HostID:        g.HostID,
		State:         string(g.Phase),
		Players:       g.PlayersInfo(),
		Provinces:     maps.Clone(g.Provinces),
		FortLevels:    maps.Clone(g.FortLevels),
		Countdown:     g.Countdown,
		GameStartTime: epochMillis(g.GameStartTime),
		GameEndTime:   epochMillis(g.GameEndTime),
	}
}

// PhaseUpdate 阶段变化的增量更新
func (g *GameState) PhaseUpdate() protocol.StateUpdate {
	countdown := g.Countdown
	return protocol.StateUpdate{
		State:         string(g.Phase),
		Countdown:     &countdown,
		GameStartTime: epochMillis(g.GameStartTime),
		GameEndTime:   epochMillis(g.GameEndTime),
	}
}

// PlayersUpdate 仅携带指定玩家的增量更新，未指定时携带全部玩家
func (g *GameState) PlayersUpdate(ids ...string) protocol.StateUpdate {
	if len(ids) == 0 {
		return protocol.StateUpdate{Players: g.PlayersInfo()}
	}
	players := make(map[string]protocol.PlayerInfo, len(ids))
	for _, id := range ids {
		if p, ok := g.Players[id]; ok {
			players[id] = p.Info()
		}
	}
	return protocol.StateUpdate{Players: players}
}

// Leaderboard 按占领国家数降序排名，同分按加入顺序
func (g *GameState) Leaderboard() []protocol.LeaderboardEntry {
	counts := lo.CountValues(lo.Values(g.Provinces))

	entries := lo.Map(g.Order, func(id string, _ int) protocol.LeaderboardEntry {
		p := g.Players[id]
		return protocol.LeaderboardEntry{
			PlayerID: id,
			Name:     p.Name,
			Color:    p.Color,
			Score:    counts[id],
		}
	})
	slices.SortStableFunc(entries, func(a, b protocol.LeaderboardEntry) int {
		return b.Score - a.Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func epochMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
