package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/europe-conquest/internal/config"
	"github.com/palemoky/europe-conquest/internal/game/room"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

type testServer struct {
	srv *Server
	hs  *httptest.Server
	mr  *miniredis.Miniredis
}

// newTestServer 启动一个带 miniredis 的服务器，withRedis 为 false 时禁用 Redis
func newTestServer(t *testing.T, withRedis bool, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Game.CleanupInterval = 0
	for _, m := range mutate {
		m(cfg)
	}

	ts := &testServer{}
	opts := []Option{WithScheduler(room.NewManualScheduler())}
	if withRedis {
		ts.mr = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: ts.mr.Addr()})
		opts = append(opts, WithRedis(rdb))
	}

	srv, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	ts.srv = srv
	ts.hs = httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		ts.hs.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.hs.URL, "http") + "/ws"
}

// wsClient 测试用 WebSocket 客户端
type wsClient struct {
	t     *testing.T
	conn  *websocket.Conn
	codec codec.Codec
}

func (ts *testServer) dial(t *testing.T, subprotocol string) *wsClient {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	if subprotocol != "" {
		dialer.Subprotocols = []string{subprotocol}
	}
	conn, resp, err := dialer.Dial(ts.wsURL(), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return &wsClient{t: t, conn: conn, codec: codec.ForSubprotocol(conn.Subprotocol())}
}

func (c *wsClient) send(msgType protocol.MessageType, payload any) {
	c.t.Helper()
	data, err := c.codec.Encode(codec.MustNewMessage(msgType, payload))
	require.NoError(c.t, err)

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(c.t, c.conn.WriteMessage(frame, data))
}

// readUntil 读取消息直到出现指定类型
func (c *wsClient) readUntil(msgType protocol.MessageType) *protocol.Message {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		frame, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", msgType)
		if c.codec.Binary() {
			assert.Equal(c.t, websocket.BinaryMessage, frame)
		} else {
			assert.Equal(c.t, websocket.TextMessage, frame)
		}

		msg, err := c.codec.Decode(data)
		require.NoError(c.t, err)
		if msg.Type == msgType {
			return &protocol.Message{Type: msg.Type, Data: append(json.RawMessage(nil), msg.Data...)}
		}
		codec.PutMessage(msg)
	}
}

func parse[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_CreateAndJoinAcrossCodecs(t *testing.T) {
	ts := newTestServer(t, true)

	host := ts.dial(t, codec.SubprotocolJSON)
	assert.Equal(t, codec.SubprotocolJSON, host.codec.Name())
	host.send(protocol.MsgCreateRoom, protocol.CreateRoomPayload{
		PlayerID:   "p1",
		PlayerInfo: protocol.PlayerInfoInput{Name: "Alice"},
	})
	created := parse[protocol.RoomCreatedPayload](t, host.readUntil(protocol.MsgRoomCreated))
	assert.Equal(t, "p1", created.HostID)
	require.Len(t, created.RoomCode, 4)

	guest := ts.dial(t, codec.SubprotocolProto)
	assert.True(t, guest.codec.Binary())
	guest.send(protocol.MsgJoinRoom, protocol.JoinRoomPayload{
		PlayerID:   "p2",
		PlayerInfo: protocol.PlayerInfoInput{Name: "Bob"},
		RoomCode:   strings.ToLower(created.RoomCode),
	})
	joined := parse[protocol.RoomJoinedPayload](t, guest.readUntil(protocol.MsgRoomJoined))
	assert.Equal(t, created.RoomCode, joined.RoomCode)
	assert.Equal(t, "p1", joined.HostID)

	snap := parse[protocol.GameStateDTO](t, guest.readUntil(protocol.MsgGameState))
	assert.Len(t, snap.Players, 2)

	pj := parse[protocol.PlayerJoinedPayload](t, host.readUntil(protocol.MsgPlayerJoined))
	assert.Equal(t, "p2", pj.PlayerID)

	// 断开连接等同离开房间
	require.NoError(t, guest.conn.Close())
	left := parse[protocol.PlayerLeftPayload](t, host.readUntil(protocol.MsgPlayerLeft))
	assert.Equal(t, "p2", left.PlayerID)

	r := ts.srv.RoomManager().GetRoom(created.RoomCode)
	require.NotNil(t, r)
	require.NoError(t, r.Sync())
	assert.Equal(t, 1, r.PlayerCount())
}

func TestServer_PingAndErrors(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.dial(t, "")
	assert.Equal(t, codec.SubprotocolJSON, c.codec.Name(), "no subprotocol falls back to JSON")

	c.send(protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	pong := parse[protocol.PongPayload](t, c.readUntil(protocol.MsgPong))
	assert.Equal(t, int64(42), pong.ClientTimestamp)

	c.send(protocol.MsgJoinRoom, protocol.JoinRoomPayload{PlayerID: "p1", RoomCode: "ZZZZ"})
	errMsg := parse[protocol.ErrorPayload](t, c.readUntil(protocol.MsgError))
	assert.Equal(t, protocol.ErrCodeRoomNotFound, errMsg.Code)

	// 无法解析的帧
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	errMsg = parse[protocol.ErrorPayload](t, c.readUntil(protocol.MsgError))
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errMsg.Code)
}

func TestServer_RESTEndpoints(t *testing.T) {
	ts := newTestServer(t, true)

	host := ts.dial(t, codec.SubprotocolJSON)
	host.send(protocol.MsgCreateRoom, protocol.CreateRoomPayload{PlayerID: "p1", RoomCode: "EURO"})
	created := parse[protocol.RoomCreatedPayload](t, host.readUntil(protocol.MsgRoomCreated))
	require.Equal(t, "EURO", created.RoomCode)

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.hs.URL+"/health", &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["rooms"])
	assert.Equal(t, true, health["redis"])

	var list struct {
		Rooms []protocol.RoomListItem `json:"rooms"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.hs.URL+"/api/rooms", &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "EURO", list.Rooms[0].RoomCode)
	assert.Equal(t, 1, list.Rooms[0].PlayerCount)

	var live struct {
		Source   string                `json:"source"`
		GameData protocol.GameStateDTO `json:"gameData"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.hs.URL+"/api/rooms/euro/snapshot", &live))
	assert.Equal(t, "live", live.Source)
	assert.Equal(t, "p1", live.GameData.HostID)

	// 没有实时房间时读取回退快照
	require.NoError(t, ts.srv.redisStore.SaveFallback(context.Background(), "GONE", &protocol.FallbackRecord{
		GameData:   protocol.GameStateDTO{RoomCode: "GONE", HostID: "old"},
		LastUpdate: 1234,
		PlayerID:   "old",
	}))
	var fallback struct {
		Source     string                `json:"source"`
		GameData   protocol.GameStateDTO `json:"gameData"`
		LastUpdate int64                 `json:"lastUpdate"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.hs.URL+"/api/rooms/GONE/snapshot", &fallback))
	assert.Equal(t, "fallback", fallback.Source)
	assert.Equal(t, "old", fallback.GameData.HostID)
	assert.Equal(t, int64(1234), fallback.LastUpdate)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.hs.URL+"/api/rooms/NONE/snapshot", nil))

	require.NoError(t, ts.srv.leaderboard.RecordRound(context.Background(), []protocol.LeaderboardEntry{
		{Rank: 1, PlayerID: "p1", Name: "Alice", Score: 7},
		{Rank: 2, PlayerID: "p2", Name: "Bob", Score: 3},
	}))
	var board struct {
		Leaderboard []map[string]any `json:"leaderboard"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.hs.URL+"/api/leaderboard?n=1", &board))
	require.Len(t, board.Leaderboard, 1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.hs.URL+"/api/leaderboard?n=abc", nil))
}

func TestServer_FallbackWrittenOnStateChange(t *testing.T) {
	ts := newTestServer(t, true)

	host := ts.dial(t, codec.SubprotocolJSON)
	host.send(protocol.MsgCreateRoom, protocol.CreateRoomPayload{PlayerID: "p1", RoomCode: "SAVE"})
	host.readUntil(protocol.MsgRoomCreated)

	assert.Eventually(t, func() bool {
		rec, err := ts.srv.redisStore.LoadFallback(context.Background(), "SAVE")
		return err == nil && rec != nil && rec.GameData.HostID == "p1"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_WithoutRedis(t *testing.T) {
	ts := newTestServer(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.hs.URL+"/api/leaderboard", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.hs.URL+"/api/rooms/ABCD/snapshot", nil))
}

func TestServer_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Game.CleanupInterval = 0
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1" // 无服务监听

	srv, err := NewServer(cfg)
	require.NoError(t, err, "redis failure degrades instead of failing startup")
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	assert.Nil(t, srv.redis)
	assert.Nil(t, srv.leaderboard)
}

func TestServer_MaintenanceRejectsConnections(t *testing.T) {
	ts := newTestServer(t, false)
	ts.srv.EnterMaintenanceMode()
	assert.True(t, ts.srv.IsMaintenanceMode())

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_OriginRejected(t *testing.T) {
	ts := newTestServer(t, false, func(cfg *config.Config) {
		cfg.Security.AllowedOrigins = []string{"https://play.example"}
	})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://play.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(), header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestServer_ConnectionLimit(t *testing.T) {
	ts := newTestServer(t, false, func(cfg *config.Config) {
		cfg.Server.MaxConnections = 1
	})

	ts.dial(t, "")
	assert.Eventually(t, func() bool { return ts.srv.GetOnlineCount() == 1 }, time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_GracefulShutdownClosesClients(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.dial(t, "")
	c.send(protocol.MsgCreateRoom, protocol.CreateRoomPayload{PlayerID: "p1"})
	c.readUntil(protocol.MsgRoomCreated)

	// 没有进行中的对局，立即关闭
	ts.srv.GracefulShutdown(time.Second)

	assert.Zero(t, ts.srv.RoomManager().RoomCount())
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
