package apperrors

import (
	"errors"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// GameError 游戏错误（房间、注册表和处理器共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrValidation               = &GameError{Code: protocol.ErrCodeInvalidMsg, Message: protocol.ErrorMessages[protocol.ErrCodeInvalidMsg]}
	ErrRoomNotFound             = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: protocol.ErrorMessages[protocol.ErrCodeRoomNotFound]}
	ErrRoomFull                 = &GameError{Code: protocol.ErrCodeRoomFull, Message: protocol.ErrorMessages[protocol.ErrCodeRoomFull]}
	ErrNotInRoom                = &GameError{Code: protocol.ErrCodeNotInRoom, Message: protocol.ErrorMessages[protocol.ErrCodeNotInRoom]}
	ErrRoomCodeCollision        = &GameError{Code: protocol.ErrCodeRoomCodeCollision, Message: protocol.ErrorMessages[protocol.ErrCodeRoomCodeCollision]}
	ErrCreateFailed             = &GameError{Code: protocol.ErrCodeCreateFailed, Message: protocol.ErrorMessages[protocol.ErrCodeCreateFailed]}
	ErrRoomClosed               = &GameError{Code: protocol.ErrCodeRoomClosed, Message: protocol.ErrorMessages[protocol.ErrCodeRoomClosed]}
	ErrNotHost                  = &GameError{Code: protocol.ErrCodeNotHost, Message: protocol.ErrorMessages[protocol.ErrCodeNotHost]}
	ErrWrongPhase               = &GameError{Code: protocol.ErrCodeWrongPhase, Message: protocol.ErrorMessages[protocol.ErrCodeWrongPhase]}
	ErrCountrySelectionConflict = &GameError{Code: protocol.ErrCodeCountryConflict, Message: protocol.ErrorMessages[protocol.ErrCodeCountryConflict]}
	ErrNotReady                 = &GameError{Code: protocol.ErrCodeNotReady, Message: protocol.ErrorMessages[protocol.ErrCodeNotReady]}
	ErrNoCountry                = &GameError{Code: protocol.ErrCodeNoCountry, Message: protocol.ErrorMessages[protocol.ErrCodeNoCountry]}
	ErrInsufficientEconomy      = &GameError{Code: protocol.ErrCodeInsufficientEcon, Message: protocol.ErrorMessages[protocol.ErrCodeInsufficientEcon]}
	ErrAlreadyOwned             = &GameError{Code: protocol.ErrCodeAlreadyOwned, Message: protocol.ErrorMessages[protocol.ErrCodeAlreadyOwned]}
	ErrNotOwner                 = &GameError{Code: protocol.ErrCodeNotOwner, Message: protocol.ErrorMessages[protocol.ErrCodeNotOwner]}
	ErrFortMaxed                = &GameError{Code: protocol.ErrCodeFortMaxed, Message: protocol.ErrorMessages[protocol.ErrCodeFortMaxed]}
	ErrUnknownPlayer            = &GameError{Code: protocol.ErrCodeUnknownPlayer, Message: protocol.ErrorMessages[protocol.ErrCodeUnknownPlayer]}
	ErrInvalidAttackType        = &GameError{Code: protocol.ErrCodeInvalidAttackType, Message: protocol.ErrorMessages[protocol.ErrCodeInvalidAttackType]}
	ErrTargetNotFound           = &GameError{Code: protocol.ErrCodeTargetNotFound, Message: protocol.ErrorMessages[protocol.ErrCodeTargetNotFound]}
	ErrMaintenance              = &GameError{Code: protocol.ErrCodeServerMaintenance, Message: protocol.ErrorMessages[protocol.ErrCodeServerMaintenance]}
)

// Code 提取错误码，非 GameError 统一归为 ErrCodeUnknown
func Code(err error) int {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return protocol.ErrCodeUnknown
}

// Message 提取面向客户端的错误文本
func Message(err error) string {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Message
	}
	return protocol.ErrorMessages[protocol.ErrCodeUnknown]
}
