package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/europe-conquest/internal/broadcast"
	"github.com/palemoky/europe-conquest/internal/game/rule"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/testutil"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		MaxPlayers:       10,
		CountdownSeconds: 5,
		SessionLength:    10 * time.Minute,
		PowerInterval:    5 * time.Second,
		EconomyInterval:  5 * time.Second,
		ResetDelay:       30 * time.Second,
	}
}

// harness 一个使用手动调度器与固定随机数的房间管理器
type harness struct {
	t     *testing.T
	rm    *RoomManager
	sched *ManualScheduler
	obs   *testutil.RecordingObserver
	store *testutil.RecordingStore
}

func newHarness(t *testing.T, random ...float64) *harness {
	return newHarnessWith(t, testSettings(), nil, random...)
}

func newHarnessWith(t *testing.T, settings Settings, gen func() string, random ...float64) *harness {
	t.Helper()
	if len(random) == 0 {
		random = []float64{0.5}
	}
	h := &harness{
		t:     t,
		sched: NewManualScheduler(),
		obs:   &testutil.RecordingObserver{},
		store: testutil.NewRecordingStore(),
	}
	h.rm = NewRoomManager(ManagerOptions{
		Settings: settings,
		Deps: Deps{
			Fanout:    broadcast.New(),
			Observer:  h.obs,
			Recorder:  h.store,
			Store:     h.store,
			Scheduler: h.sched,
			Random:    FixedRandom(random...),
			Clock:     func() time.Time { return testEpoch },
		},
		Staleness:    2 * time.Hour,
		GenerateCode: gen,
	})
	t.Cleanup(h.rm.Shutdown)
	return h
}

func ptr(s string) *string { return &s }

// create 创建房间，房主使用调色板第一个颜色
func (h *harness) create(hostID, country string) (*Room, *testutil.SimpleSession) {
	h.t.Helper()
	s := testutil.NewSimpleSession("s-" + hostID)
	req := JoinRequest{PlayerID: hostID, Name: hostID, Color: rule.Palette[0]}
	if country != "" {
		req.Country = ptr(country)
	}
	r, err := h.rm.CreateRoom(s, req, "")
	require.NoError(h.t, err)
	return r, s
}

// join 加入房间，颜色按加入顺序从调色板取
func (h *harness) join(r *Room, playerID, country string) *testutil.SimpleSession {
	h.t.Helper()
	s := testutil.NewSimpleSession("s-" + playerID)
	req := JoinRequest{PlayerID: playerID, Name: playerID, Color: rule.Palette[r.PlayerCount()%len(rule.Palette)]}
	if country != "" {
		req.Country = ptr(country)
	}
	_, _, err := h.rm.JoinRoom(s, r.Code(), req)
	require.NoError(h.t, err)
	return s
}

// tick 推进时间并等待回调投递的任务执行完毕
func (h *harness) tick(r *Room, d time.Duration) {
	h.t.Helper()
	h.sched.Advance(d)
	require.NoError(h.t, r.Sync())
}

// startGame 房主选 France，p2 选 Germany，双方准备并完成倒计时
func (h *harness) startGame() (*Room, *testutil.SimpleSession, *testutil.SimpleSession) {
	h.t.Helper()
	r, host := h.create("host", "France")
	p2 := h.join(r, "p2", "Germany")
	require.NoError(h.t, r.SetReady("host", true))
	require.NoError(h.t, r.SetReady("p2", true))
	require.NoError(h.t, r.RequestPhase("host", "countdown"))
	for range 5 {
		h.tick(r, time.Second)
	}
	require.Equal(h.t, "playing", string(r.Phase()))
	return r, host, p2
}

func snapshot(t *testing.T, r *Room) protocol.GameStateDTO {
	t.Helper()
	snap, err := r.Snapshot()
	require.NoError(t, err)
	return snap
}

// countdownValues 会话收到的倒计时序列
func countdownValues(s *testutil.SimpleSession) []int {
	var values []int
	for _, m := range s.MessagesOfType(protocol.MsgGameStateUpdate) {
		u := testutil.Decode[protocol.StateUpdate](m)
		if u.State == "countdown" && u.Countdown != nil {
			values = append(values, *u.Countdown)
		}
	}
	return values
}

// setState 在执行协程中直接修改状态（仅测试）
func setState(t *testing.T, r *Room, fn func(r *Room)) {
	t.Helper()
	require.NoError(t, r.exec(func() { fn(r) }))
}
