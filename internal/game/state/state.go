package state

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/palemoky/europe-conquest/internal/game/rule"
)

// Phase 房间阶段，按 waiting → countdown → playing → ended → waiting 循环
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseEnded     Phase = "ended"
)

// Player 玩家
type Player struct {
	ID              string
	Name            string
	Color           string
	SelectedCountry *string
	IsHost          bool
	IsReady         bool
	Power           int
	Economy         float64
}

// Country 返回所选国家，未选择时返回空字符串
func (p *Player) Country() string {
	if p.SelectedCountry == nil {
		return ""
	}
	return *p.SelectedCountry
}

// GameState 一个房间的全部游戏数据，只由所属 Room 修改
type GameState struct {
	RoomCode      string
	HostID        string
	Phase         Phase
	Players       map[string]*Player
	Order         []string          // 加入顺序，用于排行榜平局和房主顺延
	Provinces     map[string]string // 国家 → 玩家 ID
	FortLevels    map[string]int
	Countdown     int
	GameStartTime *time.Time
	GameEndTime   *time.Time
}

// New 创建等待阶段的游戏状态，要塞等级按 GDP 初始化
func New(roomCode string, countdown int) *GameState {
	return &GameState{
		RoomCode:   roomCode,
		Phase:      PhaseWaiting,
		Players:    make(map[string]*Player),
		Provinces:  make(map[string]string),
		FortLevels: rule.InitialFortLevels(),
		Countdown:  countdown,
	}
}

// NewPlayer 创建初始兵力和经济的玩家
func NewPlayer(id, name, color string, country *string) *Player {
	return &Player{
		ID:              id,
		Name:            name,
		Color:           color,
		SelectedCountry: country,
		Power:           rule.InitialPower,
	}
}

// PlayerCount 玩家数量
func (g *GameState) PlayerCount() int {
	return len(g.Players)
}

// Player 按 ID 查找玩家
func (g *GameState) Player(id string) (*Player, bool) {
	p, ok := g.Players[id]
	return p, ok
}

// AddPlayer 加入玩家，第一个加入的玩家成为房主
func (g *GameState) AddPlayer(p *Player) {
	if _, exists := g.Players[p.ID]; exists {
		return
	}
	g.Players[p.ID] = p
	g.Order = append(g.Order, p.ID)
	if g.HostID == "" {
		g.setHost(p.ID)
	}
}

// RemovePlayer 移除玩家及其占领的国家，房主离开时按加入顺序顺延
// 返回被移除的玩家和其失去的国家
func (g *GameState) RemovePlayer(id string) (*Player, []string) {
	p, ok := g.Players[id]
	if !ok {
		return nil, nil
	}

	delete(g.Players, id)
	g.Order = slices.DeleteFunc(g.Order, func(pid string) bool { return pid == id })

	lost := g.OwnedCountries(id)
	for _, c := range lost {
		delete(g.Provinces, c)
	}

	if g.HostID == id {
		g.HostID = ""
		if len(g.Order) > 0 {
			g.setHost(g.Order[0])
		}
	}
	return p, lost
}

func (g *GameState) setHost(id string) {
	for pid, p := range g.Players {
		p.IsHost = pid == id
	}
	g.HostID = id
}

// SelectionOwner 返回已选择该国家的其他玩家
func (g *GameState) SelectionOwner(country, exceptID string) (string, bool) {
	for _, id := range g.Order {
		if id == exceptID {
			continue
		}
		if g.Players[id].Country() == country {
			return id, true
		}
	}
	return "", false
}

// AvailableColors 房间内尚未使用的颜色
func (g *GameState) AvailableColors() []string {
	used := lo.Map(lo.Values(g.Players), func(p *Player, _ int) string { return p.Color })
	return lo.Without(rule.Palette, used...)
}

// AllReady 至少一名玩家且全部已准备
func (g *GameState) AllReady() bool {
	if len(g.Players) == 0 {
		return false
	}
	return lo.EveryBy(lo.Values(g.Players), func(p *Player) bool { return p.IsReady })
}

// OwnedCountries 玩家占领的国家（按名称排序）
func (g *GameState) OwnedCountries(playerID string) []string {
	owned := lo.Keys(lo.PickByValues(g.Provinces, []string{playerID}))
	slices.Sort(owned)
	return owned
}

// FortLevel 国家要塞等级，未知国家为 0
func (g *GameState) FortLevel(country string) int {
	return g.FortLevels[country]
}

// StartPlaying 进入 playing：记录时间，为已准备且选了国家的玩家分配领土和开局经济
func (g *GameState) StartPlaying(now time.Time, length time.Duration) {
	start := now
	end := now.Add(length)
	g.Phase = PhasePlaying
	g.GameStartTime = &start
	g.GameEndTime = &end
	g.Countdown = 0

	for _, id := range g.Order {
		p := g.Players[id]
		if !p.IsReady || p.SelectedCountry == nil {
			continue
		}
		g.Provinces[*p.SelectedCountry] = p.ID
		p.Economy = rule.StartingEconomy(*p.SelectedCountry)
	}
}

// TickPower 所有玩家兵力增长
func (g *GameState) TickPower() {
	for _, p := range g.Players {
		p.Power += rule.PowerPerTick
	}
}

// TickEconomy 所有玩家按已占领 GDP 增长经济
func (g *GameState) TickEconomy() {
	for id, p := range g.Players {
		p.Economy += rule.EconomyGrowth(g.OwnedCountries(id))
	}
}

// ResetRound 回到 waiting：清空领土和计时，重置准备状态、兵力和经济
// 要塞等级跨局保留
func (g *GameState) ResetRound(countdown int) {
	g.Phase = PhaseWaiting
	clear(g.Provinces)
	g.GameStartTime = nil
	g.GameEndTime = nil
	g.Countdown = countdown
	for _, p := range g.Players {
		p.IsReady = false
		p.Power = rule.InitialPower
		p.Economy = 0
	}
}
