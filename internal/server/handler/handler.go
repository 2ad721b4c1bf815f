package handler

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/room"
	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	RoomManager *room.RoomManager
}

// Handler 消息处理器：把会话的命令分发给所属房间
type Handler struct {
	server      types.ServerInterface
	roomManager *room.RoomManager
	log         zerolog.Logger
}

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		server:      deps.Server,
		roomManager: deps.RoomManager,
		log:         logger.Component("handler"),
	}
}

// Handle 解码并处理一条消息
// 未知类型只记录日志；格式错误回复 error 事件
func (h *Handler) Handle(s types.Session, msg *protocol.Message) {
	cmd, err := codec.DecodeCommand(msg)
	if err != nil {
		if errors.Is(err, codec.ErrUnknownCommand) {
			h.log.Warn().
				Str("session", s.GetID()).
				Str("type", string(msg.Type)).
				Int("size", len(msg.Data)).
				Msg("⚠️ 未知消息类型，已忽略")
			return
		}
		h.log.Debug().Err(err).Str("session", s.GetID()).Str("type", string(msg.Type)).Msg("invalid command")
		h.replyError(s, err)
		return
	}
	h.Dispatch(s, cmd)
}

// Dispatch 按命令类型分发
func (h *Handler) Dispatch(s types.Session, cmd codec.Command) {
	var err error
	switch c := cmd.(type) {
	case codec.PingCommand:
		h.handlePing(s, c)
	case codec.CreateRoomCommand:
		err = h.handleCreateRoom(s, c)
	case codec.JoinRoomCommand:
		err = h.handleJoinRoom(s, c)
	case codec.LeaveRoomCommand:
		err = h.handleLeaveRoom(s)
	case codec.PhaseRequestCommand:
		err = h.handlePhaseRequest(s, c)
	case codec.SelectCountryCommand:
		err = h.handleSelectCountry(s, c)
	case codec.ReadyCommand:
		err = h.handleReady(s, c)
	case codec.AttackCommand:
		err = h.handleAttack(s, c)
	case codec.UpgradeFortCommand:
		err = h.handleUpgradeFort(s, c)
	case codec.SignalCommand:
		err = h.handleSignal(s, c)
	default:
		h.log.Warn().Str("type", string(cmd.Type())).Msg("⚠️ 命令没有对应的处理器")
		return
	}

	if err != nil {
		h.log.Debug().Err(err).
			Str("session", s.GetID()).
			Str("player", s.GetPlayerID()).
			Str("type", string(cmd.Type())).
			Msg("command rejected")
		h.replyError(s, err)
	}
}

// replyError 只回复给发起请求的会话
func (h *Handler) replyError(s types.Session, err error) {
	s.SendMessage(codec.NewErrorMessageWithText(apperrors.Code(err), apperrors.Message(err)))
}

// currentRoom 会话当前所在的房间
func (h *Handler) currentRoom(s types.Session) (*room.Room, error) {
	code := s.GetRoom()
	if code == "" {
		return nil, apperrors.ErrNotInRoom
	}
	r := h.roomManager.GetRoom(code)
	if r == nil {
		return nil, apperrors.ErrNotInRoom
	}
	return r, nil
}
