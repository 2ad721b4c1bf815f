package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/protocol"
)

// ErrUnknownCommand 无法识别的消息类型，调用方记录日志后忽略
var ErrUnknownCommand = errors.New("codec: unknown command")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Command 入站命令，在传输边界一次性解码
// 新增命令必须在 DecodeCommand 与处理器的 type switch 中同时登记
type Command interface {
	Type() protocol.MessageType
}

// PingCommand 心跳
type PingCommand struct{ protocol.PingPayload }

// CreateRoomCommand 创建房间
type CreateRoomCommand struct{ protocol.CreateRoomPayload }

// JoinRoomCommand 加入房间 / 重连
type JoinRoomCommand struct{ protocol.JoinRoomPayload }

// LeaveRoomCommand 离开房间
type LeaveRoomCommand struct{ protocol.LeaveRoomPayload }

// PhaseRequestCommand 房主阶段请求（update_game_state 与 start_countdown / end_game）
type PhaseRequestCommand struct {
	Source protocol.MessageType
	Phase  string
}

// AttackCommand 进攻
type AttackCommand struct{ protocol.AttackCountryPayload }

// UpgradeFortCommand 升级要塞
type UpgradeFortCommand struct{ protocol.UpgradeFortPayload }

// ReadyCommand 准备状态切换
type ReadyCommand struct{ protocol.PlayerReadyPayload }

// SelectCountryCommand 选择国家
type SelectCountryCommand struct{ protocol.CountrySelectedPayload }

// SignalCommand WebRTC 信令转发
type SignalCommand struct {
	Kind protocol.MessageType
	protocol.SignalPayload
}

func (PingCommand) Type() protocol.MessageType           { return protocol.MsgPing }
func (CreateRoomCommand) Type() protocol.MessageType     { return protocol.MsgCreateRoom }
func (JoinRoomCommand) Type() protocol.MessageType       { return protocol.MsgJoinRoom }
func (LeaveRoomCommand) Type() protocol.MessageType      { return protocol.MsgLeaveRoom }
func (c PhaseRequestCommand) Type() protocol.MessageType { return c.Source }
func (AttackCommand) Type() protocol.MessageType         { return protocol.MsgPlayerAction }
func (UpgradeFortCommand) Type() protocol.MessageType    { return protocol.MsgPlayerAction }
func (ReadyCommand) Type() protocol.MessageType          { return protocol.MsgPlayerAction }
func (SelectCountryCommand) Type() protocol.MessageType  { return protocol.MsgPlayerAction }
func (c SignalCommand) Type() protocol.MessageType       { return c.Kind }

// 阶段名称（与 state.Phase 字符串保持一致）
const (
	phaseCountdown = "countdown"
	phaseEnded     = "ended"
)

// DecodeCommand 将信封解码为类型化命令
// 未知类型返回 ErrUnknownCommand；格式错误或校验失败返回包装后的 apperrors.ErrValidation
func DecodeCommand(msg *protocol.Message) (Command, error) {
	switch msg.Type {
	case protocol.MsgPing:
		p, err := decodeValid[protocol.PingPayload](msg.Data)
		if err != nil {
			return nil, err
		}
		return PingCommand{*p}, nil

	case protocol.MsgCreateRoom:
		p, err := decodeValid[protocol.CreateRoomPayload](msg.Data)
		if err != nil {
			return nil, err
		}
		p.RoomCode = NormalizeRoomCode(p.RoomCode)
		return CreateRoomCommand{*p}, nil

	case protocol.MsgJoinRoom:
		p, err := decodeValid[protocol.JoinRoomPayload](msg.Data)
		if err != nil {
			return nil, err
		}
		p.RoomCode = NormalizeRoomCode(p.RoomCode)
		return JoinRoomCommand{*p}, nil

	case protocol.MsgLeaveRoom:
		p, err := decodeValid[protocol.LeaveRoomPayload](msg.Data)
		if err != nil {
			return nil, err
		}
		return LeaveRoomCommand{*p}, nil

	case protocol.MsgUpdateGameState:
		p, err := decodeValid[protocol.UpdateGameStatePayload](msg.Data)
		if err != nil {
			return nil, err
		}
		return PhaseRequestCommand{Source: msg.Type, Phase: p.GameState.State}, nil

	case protocol.MsgPlayerAction:
		return decodeAction(msg.Data)

	case protocol.MsgWebRTCOffer, protocol.MsgWebRTCAnswer, protocol.MsgWebRTCIceCandidate:
		p, err := decodeValid[protocol.SignalPayload](msg.Data)
		if err != nil {
			return nil, err
		}
		return SignalCommand{Kind: msg.Type, SignalPayload: *p}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
}

func decodeAction(data json.RawMessage) (Command, error) {
	action, err := decodeValid[protocol.PlayerActionPayload](data)
	if err != nil {
		return nil, err
	}

	switch action.Action {
	case protocol.ActionAttackCountry:
		p, err := decodeValid[protocol.AttackCountryPayload](action.Payload)
		if err != nil {
			return nil, err
		}
		return AttackCommand{*p}, nil

	case protocol.ActionUpgradeFort:
		p, err := decodeValid[protocol.UpgradeFortPayload](action.Payload)
		if err != nil {
			return nil, err
		}
		return UpgradeFortCommand{*p}, nil

	case protocol.ActionPlayerReady:
		p, err := decodeValid[protocol.PlayerReadyPayload](action.Payload)
		if err != nil {
			return nil, err
		}
		return ReadyCommand{*p}, nil

	case protocol.ActionCountrySelected:
		p, err := decodeValid[protocol.CountrySelectedPayload](action.Payload)
		if err != nil {
			return nil, err
		}
		return SelectCountryCommand{*p}, nil

	case protocol.ActionStartCountdown:
		return PhaseRequestCommand{Source: protocol.MsgPlayerAction, Phase: phaseCountdown}, nil

	case protocol.ActionEndGame:
		return PhaseRequestCommand{Source: protocol.MsgPlayerAction, Phase: phaseEnded}, nil
	}

	return nil, fmt.Errorf("%w: action %q", ErrUnknownCommand, action.Action)
}

// decodeValid 解码并校验，空 data 视为空对象
func decodeValid[T any](data json.RawMessage) (*T, error) {
	var p T
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	if err := validatorInstance().Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return &p, nil
}

// NormalizeRoomCode 房间号大小写不敏感，统一为大写
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
