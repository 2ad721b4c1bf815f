package protocol

import "encoding/json"

// Message 基础消息结构（双向统一信封）
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 房间操作
	MsgCreateRoom MessageType = "create_room" // 创建房间
	MsgJoinRoom   MessageType = "join_room"   // 加入房间（同 ID 再次加入视为重连）
	MsgLeaveRoom  MessageType = "leave_room"  // 离开房间

	// 游戏操作
	MsgUpdateGameState MessageType = "update_game_state" // 房主阶段请求
	MsgPlayerAction    MessageType = "player_action"     // 细粒度玩家操作

	// 信令（点对点连接建立）
	MsgWebRTCOffer        MessageType = "webrtc_offer"
	MsgWebRTCAnswer       MessageType = "webrtc_answer"
	MsgWebRTCIceCandidate MessageType = "webrtc_ice_candidate"
)

// 服务端 → 客户端 消息类型
const (
	MsgPong MessageType = "pong" // 心跳 pong

	// 房间相关
	MsgRoomCreated  MessageType = "room_created"  // 房间创建成功
	MsgRoomJoined   MessageType = "room_joined"   // 加入房间成功
	MsgPlayerJoined MessageType = "player_joined" // 其他玩家加入
	MsgPlayerLeft   MessageType = "player_left"   // 玩家离开
	MsgRoomClosed   MessageType = "room_closed"   // 房间关闭

	// 状态同步
	MsgGameState       MessageType = "game_state"        // 全量快照
	MsgGameStateUpdate MessageType = "game_state_update" // 增量更新

	// 游戏事件
	MsgAttackResult MessageType = "attack_result" // 进攻结果
	MsgFortUpgraded MessageType = "fort_upgraded" // 要塞升级
	MsgGameOver     MessageType = "game_over"     // 本轮结束排行

	// 错误
	MsgError MessageType = "error"
)

// PlayerAction player_action 中的细分操作
type PlayerAction string

const (
	ActionAttackCountry   PlayerAction = "attack_country"
	ActionUpgradeFort     PlayerAction = "upgrade_fort"
	ActionPlayerReady     PlayerAction = "player_ready"
	ActionCountrySelected PlayerAction = "country_selected"
	ActionStartCountdown  PlayerAction = "start_countdown" // 仅房主
	ActionEndGame         PlayerAction = "end_game"        // 仅房主
)
