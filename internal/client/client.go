package client

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 默认最大重连次数
	defaultReconnectAttempts = 5
	// 默认重连间隔（指数退避的起点）
	defaultReconnectInterval = 2 * time.Second

	bufferSize = 256
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrBufferFull = errors.New("send buffer full")
	ErrTimeout    = errors.New("receive timeout")
)

// Options 客户端参数
type Options struct {
	URL         string
	Subprotocol string // 为空时使用 europe.json
	Origin      string

	PlayerID string // 为空时生成 UUID，重连时用同一个 ID 重新加入房间
	Name     string
	Color    string

	Reconnect         bool
	ReconnectAttempts int
	ReconnectInterval time.Duration
}

// Client WebSocket 游戏客户端
type Client struct {
	opts  Options
	codec codec.Codec

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	// 回调
	OnMessage   func(*protocol.Message) // 消息回调（在读协程中调用）
	OnReconnect func()                  // 重连并重新加入房间后回调
	OnClose     func()                  // 最终关闭回调

	mu       sync.RWMutex
	closed   bool
	roomCode string
	hostID   string

	latency      atomic.Int64
	reconnecting atomic.Bool
}

// New 创建客户端
func New(opts Options) *Client {
	if opts.PlayerID == "" {
		opts.PlayerID = uuid.NewString()
	}
	if opts.Subprotocol == "" {
		opts.Subprotocol = codec.SubprotocolJSON
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}
	return &Client{
		opts:    opts,
		codec:   codec.ForSubprotocol(opts.Subprotocol),
		send:    make(chan []byte, bufferSize),
		receive: make(chan *protocol.Message, bufferSize),
		done:    make(chan struct{}),
	}
}

// Connect 连接服务器
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.start(conn)
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{c.opts.Subprotocol},
	}
	var header http.Header
	if c.opts.Origin != "" {
		header = http.Header{"Origin": []string{c.opts.Origin}}
	}

	conn, resp, err := dialer.Dial(c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// start 为新连接启动读写协程
// 服务端可能不支持请求的子协议，以协商结果为准
func (c *Client) start(conn *websocket.Conn) {
	cd := codec.ForSubprotocol(conn.Subprotocol())

	c.mu.Lock()
	c.conn = conn
	c.codec = cd
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.readPump(conn, cd, stop)
	go c.writePump(conn, cd, stop)
}

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn, cd codec.Codec, stop chan struct{}) {
	defer func() {
		close(stop)
		_ = conn.Close()
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.handleReadExit()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", c.opts.PlayerID).Msg("读取错误")
			}
			return
		}

		pooled, err := cd.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("消息解析错误")
			continue
		}
		msg := &protocol.Message{Type: pooled.Type, Data: append([]byte(nil), pooled.Data...)}
		codec.PutMessage(pooled)

		c.track(msg)

		if c.OnMessage != nil {
			c.OnMessage(msg)
		}

		// 同时发送到 channel，消费不及时则丢弃
		select {
		case c.receive <- msg:
		default:
		}
	}
}

// track 根据服务端事件更新本地会话状态
func (c *Client) track(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgRoomCreated:
		if p, err := codec.ParsePayload[protocol.RoomCreatedPayload](msg); err == nil {
			c.setRoom(p.RoomCode, p.HostID)
		}
	case protocol.MsgRoomJoined:
		if p, err := codec.ParsePayload[protocol.RoomJoinedPayload](msg); err == nil {
			c.setRoom(p.RoomCode, p.HostID)
			if c.reconnecting.CompareAndSwap(true, false) && c.OnReconnect != nil {
				c.OnReconnect()
			}
		}
	case protocol.MsgRoomClosed:
		c.setRoom("", "")
	case protocol.MsgError:
		// 重连时房间已不存在
		if p, err := codec.ParsePayload[protocol.ErrorPayload](msg); err == nil &&
			p.Code == protocol.ErrCodeRoomNotFound && c.reconnecting.CompareAndSwap(true, false) {
			c.setRoom("", "")
		}
	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil && p.ClientTimestamp > 0 {
			c.latency.Store(time.Now().UnixMilli() - p.ClientTimestamp)
		}
	}
}

// handleReadExit 连接断开：仍在房间中则尝试重连，否则关闭
func (c *Client) handleReadExit() {
	if c.isClosed() {
		return
	}
	if c.opts.Reconnect && c.RoomCode() != "" {
		go c.tryReconnect()
		return
	}
	c.Close()
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, cd codec.Codec, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	frameType := websocket.TextMessage
	if cd.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return

		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
			return
		}
	}
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	c.mu.RLock()
	closed, cd := c.closed, c.codec
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	data, err := cd.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive 接收消息（阻塞）
func (c *Client) Receive() (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

// ReceiveWithTimeout 带超时接收消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.receive:
		return msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-c.done:
		return nil, ErrClosed
	}
}

// WaitFor 接收消息直到出现指定类型，其他消息被丢弃
func (c *Client) WaitFor(msgType protocol.MessageType, timeout time.Duration) (*protocol.Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		msg, err := c.ReceiveWithTimeout(remaining)
		if err != nil {
			return nil, err
		}
		if msg.Type == msgType {
			return msg, nil
		}
	}
}

// Close 关闭连接，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Done 关闭后返回的 channel 被关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Codec 当前连接协商出的编解码器
func (c *Client) Codec() codec.Codec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.codec
}

// PlayerID 本客户端使用的玩家 ID
func (c *Client) PlayerID() string {
	return c.opts.PlayerID
}

// RoomCode 当前所在房间号
func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// IsHost 是否为当前房间的房主
func (c *Client) IsHost() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode != "" && c.hostID == c.opts.PlayerID
}

func (c *Client) setRoom(code, hostID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
	c.hostID = hostID
}

// Latency 最近一次 ping 的往返延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}
