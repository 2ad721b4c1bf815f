package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小（信令里的 SDP 可能较长）
	maxMessageSize = 64 * 1024

	// 发送队列长度
	sendBuffer = 256
)

// Client 一个 WebSocket 连接，实现 types.Session
type Client struct {
	ID string // 连接唯一 ID
	IP string // 客户端 IP 地址

	server *Server
	conn   *websocket.Conn
	codec  codec.Codec
	send   chan []byte

	mu       sync.RWMutex
	playerID string // 绑定的玩家 ID
	roomCode string // 当前所在房间号
	closed   bool
}

// NewClient 创建客户端
func NewClient(s *Server, conn *websocket.Conn, c codec.Codec) *Client {
	return &Client{
		ID:     uuid.New().String(),
		server: s,
		conn:   conn,
		codec:  c,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) GetID() string { return c.ID }

func (c *Client) GetPlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Client) SetPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// SetRoom 设置客户端所在房间
func (c *Client) SetRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

// SendMessage 编码后放入发送队列，不阻塞调用方
// 队列已满说明对端消费不过来，直接关闭连接
func (c *Client) SendMessage(msg *protocol.Message) bool {
	data, err := c.codec.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("client", c.ID).Str("type", string(msg.Type)).Msg("消息编码错误")
		return true
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	select {
	case c.send <- data:
		c.mu.RUnlock()
		return true
	default:
	}
	c.mu.RUnlock()

	log.Warn().Str("client", c.ID).Msg("客户端发送缓冲区已满")
	c.Close()
	return false
}

// Close 关闭发送队列，WritePump 随后发送关闭帧并断开
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", c.ID).Msg("读取错误")
			}
			return
		}

		// 消息速率限制检查
		allowed, strikes := c.server.messageLimiter.Allow(c.ID)
		if !allowed {
			log.Warn().Str("client", c.ID).Str("ip", c.IP).Int("strikes", strikes).Msg("⚠️ 消息过于频繁")
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeRateLimit))
			if ShouldDisconnect(strikes) {
				log.Warn().Str("client", c.ID).Msg("🚫 多次超速，断开连接")
				return
			}
			continue
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("client", c.ID).Msg("消息解析错误")
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息，帧类型由编解码器决定
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleDisconnect 连接断开：离开房间并注销
func (c *Client) handleDisconnect() {
	c.server.handler.OnDisconnect(c)
	c.server.messageLimiter.Remove(c.ID)
	c.server.unregisterClient(c)
	c.Close()
}
