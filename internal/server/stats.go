package server

import (
	"sync/atomic"

	"github.com/palemoky/europe-conquest/internal/game/room"
	"github.com/palemoky/europe-conquest/internal/protocol"
)

// gameStats 进程内游戏事件计数，用于监控日志
type gameStats struct {
	room.NopObserver

	joins    atomic.Int64
	attacks  atomic.Int64
	captures atomic.Int64
	upgrades atomic.Int64
}

func (g *gameStats) OnPlayerJoined(string, protocol.PlayerInfo) {
	g.joins.Add(1)
}

func (g *gameStats) OnAttackResult(_ string, ev protocol.AttackResultPayload) {
	g.attacks.Add(1)
	if ev.Success {
		g.captures.Add(1)
	}
}

func (g *gameStats) OnFortUpgraded(string, protocol.FortUpgradedPayload) {
	g.upgrades.Add(1)
}

// statsSnapshot 计数快照
type statsSnapshot struct {
	Joins    int64 `json:"joins"`
	Attacks  int64 `json:"attacks"`
	Captures int64 `json:"captures"`
	Upgrades int64 `json:"upgrades"`
}

func (g *gameStats) snapshot() statsSnapshot {
	return statsSnapshot{
		Joins:    g.joins.Load(),
		Attacks:  g.attacks.Load(),
		Captures: g.captures.Load(),
		Upgrades: g.upgrades.Load(),
	}
}
