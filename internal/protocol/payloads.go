package protocol

import "encoding/json"

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp,omitempty"` // 客户端时间戳（毫秒）
}

// PlayerInfoInput 客户端提交的玩家资料
type PlayerInfoInput struct {
	Name            string  `json:"name" validate:"omitempty,max=32"`
	Color           string  `json:"color" validate:"omitempty,hexcolor"`
	SelectedCountry *string `json:"selectedCountry" validate:"omitempty,max=64"`
}

// CreateRoomPayload 创建房间请求，RoomCode 为可选的期望房间号
type CreateRoomPayload struct {
	PlayerID   string          `json:"playerId" validate:"omitempty,max=64"`
	PlayerInfo PlayerInfoInput `json:"playerInfo"`
	RoomCode   string          `json:"roomCode" validate:"omitempty,len=4,alphanum"`
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	PlayerID   string          `json:"playerId" validate:"omitempty,max=64"`
	PlayerInfo PlayerInfoInput `json:"playerInfo"`
	RoomCode   string          `json:"roomCode" validate:"required,len=4,alphanum"`
}

// LeaveRoomPayload 离开房间请求
type LeaveRoomPayload struct {
	PlayerID string `json:"playerId"`
}

// GameStateRequest update_game_state 中唯一被采纳的字段是阶段
type GameStateRequest struct {
	State string `json:"state" validate:"omitempty,oneof=waiting countdown playing ended"`
}

// UpdateGameStatePayload 房主阶段请求
type UpdateGameStatePayload struct {
	GameState GameStateRequest `json:"gameState"`
}

// PlayerActionPayload 玩家操作
type PlayerActionPayload struct {
	Action  PlayerAction    `json:"action" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AttackCountryPayload 进攻
type AttackCountryPayload struct {
	CountryName     string `json:"countryName" validate:"required,max=64"`
	AttackTypeIndex int    `json:"attackTypeIndex" validate:"min=0"`
}

// UpgradeFortPayload 升级要塞
type UpgradeFortPayload struct {
	CountryName string `json:"countryName" validate:"required,max=64"`
}

// PlayerReadyPayload 准备 / 取消准备
type PlayerReadyPayload struct {
	IsReady bool `json:"isReady"`
}

// CountrySelectedPayload 选择国家，空字符串表示取消选择
type CountrySelectedPayload struct {
	CountryName string `json:"countryName" validate:"max=64"`
}

// SignalPayload WebRTC 信令请求，内容原样转发
type SignalPayload struct {
	TargetPlayerID string          `json:"targetPlayerId" validate:"required,max=64"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

// --- 服务端响应 Payloads ---

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp,omitempty"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RoomCreatedPayload 房间创建成功
type RoomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
	PlayerID string `json:"playerId"`
}

// RoomJoinedPayload 加入房间成功
type RoomJoinedPayload struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
	PlayerID string `json:"playerId"`
}

// PlayerJoinedPayload 其他玩家加入
type PlayerJoinedPayload struct {
	PlayerID   string     `json:"playerId"`
	PlayerInfo PlayerInfo `json:"playerInfo"`
}

// PlayerLeftPayload 玩家离开
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

// RoomClosedPayload 房间关闭
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	SelectedCountry *string `json:"selectedCountry"`
	IsHost          bool    `json:"isHost"`
	IsReady         bool    `json:"isReady"`
	Power           int     `json:"power"`
	Economy         float64 `json:"economy"`
}

// GameStateDTO 全量快照
type GameStateDTO struct {
	RoomCode      string                `json:"roomCode"`
	HostID        string                `json:"hostId"`
	State         string                `json:"state"`
	Players       map[string]PlayerInfo `json:"players"`
	Provinces     map[string]string     `json:"provinces"`
	FortLevels    map[string]int        `json:"fortLevels"`
	Countdown     int                   `json:"countdown"`
	GameStartTime *int64                `json:"gameStartTime"`
	GameEndTime   *int64                `json:"gameEndTime"`
}

// StateUpdate 增量更新，只携带发生变化的字段
type StateUpdate struct {
	State         string                `json:"state,omitempty"`
	Countdown     *int                  `json:"countdown,omitempty"`
	Players       map[string]PlayerInfo `json:"players,omitempty"`
	Provinces     map[string]string     `json:"provinces,omitempty"`
	FortLevels    map[string]int        `json:"fortLevels,omitempty"`
	GameStartTime *int64                `json:"gameStartTime,omitempty"`
	GameEndTime   *int64                `json:"gameEndTime,omitempty"`
}

// AttackResultPayload 进攻结果（随机数之外的字段均可由输入复现）
type AttackResultPayload struct {
	AttackerID      string  `json:"attackerId"`
	CountryName     string  `json:"countryName"`
	AttackTypeIndex int     `json:"attackTypeIndex"`
	AttackType      string  `json:"attackType"`
	Success         bool    `json:"success"`
	BaseChance      float64 `json:"baseChance"`
	FinalChance     float64 `json:"finalChance"`
	FortLevel       int     `json:"fortLevel"`
	Defender        string  `json:"defender"` // 玩家 ID 或 "unoccupied"
	AttackerEconomy float64 `json:"attackerEconomy"`
	DefenderEconomy float64 `json:"defenderEconomy"`
}

// FortUpgradedPayload 要塞升级
type FortUpgradedPayload struct {
	PlayerID     string  `json:"playerId"`
	CountryName  string  `json:"countryName"`
	NewFortLevel int     `json:"newFortLevel"`
	NewEconomy   float64 `json:"newEconomy"`
}

// LeaderboardEntry 本轮排行条目
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Score    int    `json:"score"`
}

// GameOverPayload 本轮结束
type GameOverPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	ResetInSecs int                `json:"resetIn"`
}

// SignalRelayPayload 转发给目标玩家的信令
type SignalRelayPayload struct {
	FromPlayerID string          `json:"fromPlayerId"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// RoomListItem 房间列表条目
type RoomListItem struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Phase       string `json:"phase"`
}

// FallbackRecord 本地回退缓存记录（最近一次快照）
type FallbackRecord struct {
	GameData   GameStateDTO `json:"gameData"`
	LastUpdate int64        `json:"lastUpdate"` // epoch 毫秒
	PlayerID   string       `json:"playerId"`
}
