package types

import (
	"github.com/palemoky/europe-conquest/internal/protocol"
)

// Session 一个已连接客户端的传输句柄（用于打破 room / server 之间的循环依赖）
type Session interface {
	GetID() string
	GetPlayerID() string
	SetPlayerID(id string)
	GetRoom() string
	SetRoom(code string)
	// SendMessage 非阻塞投递，返回 false 表示会话已关闭或发送队列已满
	SendMessage(msg *protocol.Message) bool
	Close()
}

// ServerInterface 处理器需要的服务器能力
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
}
