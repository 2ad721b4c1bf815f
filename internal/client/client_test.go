package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/europe-conquest/internal/config"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/server"
)

const waitTimeout = 3 * time.Second

type fixture struct {
	srv *server.Server
	url string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Game.CleanupInterval = 0
	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	hs := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		hs.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return &fixture{srv: srv, url: "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"}
}

func (f *fixture) connect(t *testing.T, opts Options) *Client {
	t.Helper()
	opts.URL = f.url
	c := New(opts)
	require.NoError(t, c.Connect())
	t.Cleanup(c.Close)
	return c
}

func waitFor[T any](t *testing.T, c *Client, msgType protocol.MessageType) *T {
	t.Helper()
	msg, err := c.WaitFor(msgType, waitTimeout)
	require.NoError(t, err, "waiting for %s", msgType)
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

// setupRoom 房主创建 EURO 房间，guest 加入
func (f *fixture) setupRoom(t *testing.T, guestOpts Options) (host, guest *Client) {
	t.Helper()

	host = f.connect(t, Options{PlayerID: "host", Name: "Alice"})
	require.NoError(t, host.CreateRoom("EURO"))
	waitFor[protocol.RoomCreatedPayload](t, host, protocol.MsgRoomCreated)

	guestOpts.PlayerID = "guest"
	guestOpts.Name = "Bob"
	guest = f.connect(t, guestOpts)
	require.NoError(t, guest.JoinRoom("euro"))
	waitFor[protocol.RoomJoinedPayload](t, guest, protocol.MsgRoomJoined)
	waitFor[protocol.PlayerJoinedPayload](t, host, protocol.MsgPlayerJoined)
	return host, guest
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Options{URL: "ws://localhost/ws"})
	assert.NotEmpty(t, c.PlayerID(), "player id is generated")
	assert.Equal(t, codec.SubprotocolJSON, c.Codec().Name())
	assert.Equal(t, defaultReconnectAttempts, c.opts.ReconnectAttempts)
	assert.Equal(t, defaultReconnectInterval, c.opts.ReconnectInterval)

	p := New(Options{Subprotocol: codec.SubprotocolProto})
	assert.True(t, p.Codec().Binary())
}

func TestClient_CreateAndJoin(t *testing.T) {
	f := newFixture(t)
	host, guest := f.setupRoom(t, Options{Subprotocol: codec.SubprotocolProto})

	assert.Equal(t, "EURO", host.RoomCode())
	assert.True(t, host.IsHost())
	assert.Equal(t, "EURO", guest.RoomCode())
	assert.False(t, guest.IsHost())
	assert.True(t, guest.Codec().Binary(), "proto subprotocol negotiated")

	require.NoError(t, guest.LeaveRoom())
	left := waitFor[protocol.PlayerLeftPayload](t, host, protocol.MsgPlayerLeft)
	assert.Equal(t, "guest", left.PlayerID)
	assert.Empty(t, guest.RoomCode())
}

func TestClient_PingLatency(t *testing.T) {
	f := newFixture(t)
	c := f.connect(t, Options{})

	require.NoError(t, c.Ping())
	pong := waitFor[protocol.PongPayload](t, c, protocol.MsgPong)
	assert.NotZero(t, pong.ServerTimestamp)
	assert.GreaterOrEqual(t, c.Latency(), int64(0))
}

func TestClient_ActionsReachRoom(t *testing.T) {
	f := newFixture(t)
	host, guest := f.setupRoom(t, Options{})

	require.NoError(t, host.SelectCountry("France"))
	require.NoError(t, guest.SelectCountry("Germany"))
	require.NoError(t, guest.Ready(true))

	r := f.srv.RoomManager().GetRoom("EURO")
	require.NotNil(t, r)
	assert.Eventually(t, func() bool {
		snap, err := r.Snapshot()
		if err != nil {
			return false
		}
		g := snap.Players["guest"]
		h := snap.Players["host"]
		return h.SelectedCountry != nil && *h.SelectedCountry == "France" &&
			g.SelectedCountry != nil && *g.SelectedCountry == "Germany" && g.IsReady
	}, waitTimeout, 20*time.Millisecond)

	// 非房主不能开始倒计时
	require.NoError(t, guest.StartCountdown())
	errMsg := waitFor[protocol.ErrorPayload](t, guest, protocol.MsgError)
	assert.Equal(t, protocol.ErrCodeNotHost, errMsg.Code)

	// 等待阶段不能进攻
	require.NoError(t, host.Attack("Poland", 0))
	errMsg = waitFor[protocol.ErrorPayload](t, host, protocol.MsgError)
	assert.Equal(t, protocol.ErrCodeWrongPhase, errMsg.Code)
}

func TestClient_SignalRelay(t *testing.T) {
	f := newFixture(t)
	host, guest := f.setupRoom(t, Options{Subprotocol: codec.SubprotocolProto})

	require.NoError(t, host.Signal(protocol.MsgWebRTCOffer, "guest", json.RawMessage(`{"sdp":"v=0"}`)))
	relay := waitFor[protocol.SignalRelayPayload](t, guest, protocol.MsgWebRTCOffer)
	assert.Equal(t, "host", relay.FromPlayerID)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(relay.Offer))

	require.NoError(t, guest.Signal(protocol.MsgWebRTCIceCandidate, "host", json.RawMessage(`{"candidate":"c1"}`)))
	relay = waitFor[protocol.SignalRelayPayload](t, host, protocol.MsgWebRTCIceCandidate)
	assert.Equal(t, "guest", relay.FromPlayerID)
	assert.JSONEq(t, `{"candidate":"c1"}`, string(relay.Candidate))
}

func TestClient_ReconnectRejoinsRoom(t *testing.T) {
	f := newFixture(t)
	_, guest := f.setupRoom(t, Options{Reconnect: true, ReconnectInterval: 20 * time.Millisecond})

	var reconnects atomic.Int32
	guest.OnReconnect = func() { reconnects.Add(1) }

	// 模拟网络中断
	guest.mu.RLock()
	conn := guest.conn
	guest.mu.RUnlock()
	require.NoError(t, conn.Close())

	joined := waitFor[protocol.RoomJoinedPayload](t, guest, protocol.MsgRoomJoined)
	assert.Equal(t, "EURO", joined.RoomCode)
	assert.Equal(t, int32(1), reconnects.Load())
	assert.False(t, guest.IsReconnecting())

	r := f.srv.RoomManager().GetRoom("EURO")
	require.NotNil(t, r)
	assert.Eventually(t, func() bool {
		snap, err := r.Snapshot()
		if err != nil {
			return false
		}
		_, ok := snap.Players["guest"]
		return ok && r.PlayerCount() == 2
	}, waitTimeout, 20*time.Millisecond)
}

func TestClient_NoReconnectWithoutRoom(t *testing.T) {
	f := newFixture(t)
	host, guest := f.setupRoom(t, Options{Reconnect: true, ReconnectInterval: 20 * time.Millisecond})

	// 房主离开，房间关闭
	require.NoError(t, host.LeaveRoom())
	waitFor[protocol.RoomClosedPayload](t, guest, protocol.MsgRoomClosed)
	assert.Empty(t, guest.RoomCode())

	guest.mu.RLock()
	conn := guest.conn
	guest.mu.RUnlock()
	require.NoError(t, conn.Close())

	select {
	case <-guest.Done():
	case <-time.After(waitTimeout):
		t.Fatal("client should close instead of reconnecting")
	}
	assert.ErrorIs(t, guest.Ping(), ErrClosed)
}

func TestClient_Close(t *testing.T) {
	f := newFixture(t)

	var closed atomic.Int32
	c := f.connect(t, Options{})
	c.OnClose = func() { closed.Add(1) }

	c.Close()
	c.Close()
	assert.Equal(t, int32(1), closed.Load())
	assert.ErrorIs(t, c.CreateRoom(""), ErrClosed)

	_, err := c.Receive()
	assert.ErrorIs(t, err, ErrClosed)

	assert.Eventually(t, func() bool { return f.srv.GetOnlineCount() == 0 }, waitTimeout, 20*time.Millisecond)
}

func TestClient_ConnectFails(t *testing.T) {
	t.Parallel()

	c := New(Options{URL: "ws://127.0.0.1:1/ws"})
	assert.Error(t, c.Connect())
}
