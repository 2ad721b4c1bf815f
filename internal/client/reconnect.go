package client

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/logger"
)

// maxBackoff 重连退避上限
const maxBackoff = 30 * time.Second

// StartHeartbeat 启动心跳检测
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = c.Ping()
			case <-c.done:
				return
			}
		}
	}()
}

// tryReconnect 重新建连并用同一个玩家 ID 重新加入之前的房间
func (c *Client) tryReconnect() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			c.reconnecting.Store(false)
		}
	}()

	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	roomCode := c.RoomCode()

	// 指数退避重连策略
	backoff := c.opts.ReconnectInterval

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		log.Info().Int("attempt", attempt).Int("max", c.opts.ReconnectAttempts).Str("room", roomCode).Msg("🔄 尝试重连")

		select {
		case <-time.After(backoff):
		case <-c.done:
			c.reconnecting.Store(false)
			return
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.dial()
		if err != nil {
			log.Debug().Err(err).Msg("重连失败")
			continue
		}
		c.start(conn)

		// 重连成功通过 room_joined 确认
		if err := c.JoinRoom(roomCode); err != nil {
			_ = conn.Close()
			continue
		}
		return
	}

	log.Warn().Str("room", roomCode).Msg("❌ 重连失败，已达最大尝试次数")
	c.reconnecting.Store(false)
	c.Close()
}
