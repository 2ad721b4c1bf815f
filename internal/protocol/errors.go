package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001 // ValidationError
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeRoomNotFound      = 2001
	ErrCodeRoomFull          = 2002
	ErrCodeNotInRoom         = 2003
	ErrCodeRoomCodeCollision = 2004
	ErrCodeCreateFailed      = 2005
	ErrCodeRoomClosed        = 2006
	ErrCodeNotHost           = 2007
	ErrCodeWrongPhase        = 3001
	ErrCodeCountryConflict   = 3002
	ErrCodeNotReady          = 3003
	ErrCodeNoCountry         = 3004
	ErrCodeInsufficientEcon  = 3005
	ErrCodeAlreadyOwned      = 3006
	ErrCodeNotOwner          = 3007
	ErrCodeFortMaxed         = 3008
	ErrCodeUnknownPlayer     = 3009
	ErrCodeInvalidAttackType = 3010
	ErrCodeTargetNotFound    = 3011
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "Unknown error",
	ErrCodeInvalidMsg:        "Invalid message format",
	ErrCodeRateLimit:         "Too many messages",
	ErrCodeRoomNotFound:      "Room not found",
	ErrCodeRoomFull:          "Room is full",
	ErrCodeNotInRoom:         "You are not in a room",
	ErrCodeRoomCodeCollision: "Room code already exists",
	ErrCodeCreateFailed:      "Could not create room",
	ErrCodeRoomClosed:        "Room is closed",
	ErrCodeNotHost:           "Only the host can do that",
	ErrCodeWrongPhase:        "Action not allowed in the current phase",
	ErrCodeCountryConflict:   "Country already selected by another player",
	ErrCodeNotReady:          "All players must be ready",
	ErrCodeNoCountry:         "You must select a country first",
	ErrCodeInsufficientEcon:  "Not enough economy",
	ErrCodeAlreadyOwned:      "You already own this country",
	ErrCodeNotOwner:          "You can only upgrade forts in countries you own",
	ErrCodeFortMaxed:         "Fort is already at maximum level",
	ErrCodeUnknownPlayer:     "Unknown player",
	ErrCodeInvalidAttackType: "Invalid attack type",
	ErrCodeTargetNotFound:    "Target player not found",
	ErrCodeServerMaintenance: "Server is under maintenance",
}
