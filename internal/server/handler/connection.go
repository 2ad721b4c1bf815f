package handler

import (
	"time"

	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(s types.Session, c codec.PingCommand) {
	// 立即回复 pong
	s.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: c.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// OnDisconnect 连接断开，与主动离开走同一条移除路径
func (h *Handler) OnDisconnect(s types.Session) {
	r, err := h.currentRoom(s)
	if err != nil {
		return
	}
	if err := r.Leave(s); err != nil {
		h.log.Debug().Err(err).Str("session", s.GetID()).Str("room", r.Code()).Msg("disconnect ignored")
		return
	}
	h.log.Info().Str("session", s.GetID()).Str("player", s.GetPlayerID()).Str("room", r.Code()).Msg("🔌 断线离开房间")
}
