package handler

import (
	"strings"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/room"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// handleCreateRoom 处理创建房间
func (h *Handler) handleCreateRoom(s types.Session, c codec.CreateRoomCommand) error {
	// 维护模式检查
	if h.server.IsMaintenanceMode() {
		return apperrors.ErrMaintenance
	}

	// 如果已在房间中，先离开
	h.leaveCurrent(s)

	req := room.JoinRequestFrom(h.playerID(s, c.PlayerID), c.PlayerInfo)
	_, err := h.roomManager.CreateRoom(s, req, c.RoomCode)
	return err
}

// handleJoinRoom 处理加入房间；同一玩家再次加入即为重连
// 会话换房间或换玩家 ID 时先离开原房间，一个会话只绑定一个玩家
func (h *Handler) handleJoinRoom(s types.Session, c codec.JoinRoomCommand) error {
	playerID := h.playerID(s, c.PlayerID)
	if !strings.EqualFold(s.GetRoom(), c.RoomCode) || playerID != s.GetPlayerID() {
		h.leaveCurrent(s)
	}

	req := room.JoinRequestFrom(playerID, c.PlayerInfo)
	_, res, err := h.roomManager.JoinRoom(s, c.RoomCode, req)
	if err != nil {
		return err
	}
	if res.Reconnected {
		h.log.Info().Str("player", res.PlayerID).Str("room", c.RoomCode).Msg("🔄 玩家重连成功")
	}
	return nil
}

// handleLeaveRoom 处理离开房间
func (h *Handler) handleLeaveRoom(s types.Session) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	return r.Leave(s)
}

// leaveCurrent 离开会话当前所在的房间（如果有）
func (h *Handler) leaveCurrent(s types.Session) {
	if r, err := h.currentRoom(s); err == nil {
		_ = r.Leave(s)
	}
}

// playerID 请求未带 ID 时沿用会话上次的玩家 ID
func (h *Handler) playerID(s types.Session, requested string) string {
	if requested != "" {
		return requested
	}
	return s.GetPlayerID()
}
