package room

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/config"
	"github.com/palemoky/europe-conquest/internal/game/state"
	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/server/storage"
	"github.com/palemoky/europe-conquest/internal/types"
)

const (
	countdownTick = time.Second // 倒计时步长
	actionBuffer  = 64          // 执行队列容量
)

// Settings 房间规则参数
type Settings struct {
	MaxPlayers       int
	CountdownSeconds int
	SessionLength    time.Duration
	PowerInterval    time.Duration
	EconomyInterval  time.Duration
	ResetDelay       time.Duration
}

// SettingsFromConfig 从游戏配置构建房间参数
func SettingsFromConfig(cfg *config.GameConfig) Settings {
	return Settings{
		MaxPlayers:       cfg.MaxPlayers,
		CountdownSeconds: cfg.CountdownSeconds,
		SessionLength:    cfg.SessionLengthDuration(),
		PowerInterval:    cfg.PowerIntervalDuration(),
		EconomyInterval:  cfg.EconomyIntervalDuration(),
		ResetDelay:       cfg.ResetDelayDuration(),
	}
}

// Fanout 向会话投递消息（由 broadcast.SyncBroadcaster 实现）
type Fanout interface {
	Broadcast(sessions []types.Session, msg *protocol.Message, exceptPlayerIDs ...string)
	Send(s types.Session, msg *protocol.Message)
}

type nopFanout struct{}

func (nopFanout) Broadcast([]types.Session, *protocol.Message, ...string) {}
func (nopFanout) Send(types.Session, *protocol.Message)                   {}

// ResultRecorder 记录每局排行
type ResultRecorder interface {
	RecordRound(roomCode string, entries []protocol.LeaderboardEntry)
}

// MetaStore 房间元数据存储
type MetaStore interface {
	SaveRoom(roomCode string, meta *storage.RoomMeta)
	DeleteRoom(roomCode string)
}

// Deps 房间协作者，零值字段使用默认实现
type Deps struct {
	Fanout    Fanout
	Observer  Observer
	Recorder  ResultRecorder
	Store     MetaStore
	Scheduler Scheduler
	Random    func() float64
	Clock     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Fanout == nil {
		d.Fanout = nopFanout{}
	}
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}
	if d.Scheduler == nil {
		d.Scheduler = RealScheduler{}
	}
	if d.Random == nil {
		d.Random = rand.Float64
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// Room 游戏房间
// 所有对 state 和 sessions 的读写都在 run 协程中串行执行
type Room struct {
	code      string
	createdAt time.Time
	settings  Settings
	deps      Deps
	log       zerolog.Logger

	state    *state.GameState
	sessions map[string]types.Session // 玩家 ID → 会话

	// 计时器句柄与轮次，仅在执行协程中访问
	round          uint64
	countdownTimer Timer
	powerTimer     Timer
	economyTimer   Timer
	endTimer       Timer
	resetTimer     Timer

	actions   chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	onClosed  func(r *Room)

	playerCount atomic.Int32
	phase       atomic.Value // state.Phase
}

func newRoom(code string, settings Settings, deps Deps, onClosed func(r *Room)) *Room {
	deps = deps.withDefaults()
	r := &Room{
		code:      code,
		createdAt: deps.Clock(),
		settings:  settings,
		deps:      deps,
		log:       log.With().Str("room", code).Logger(),
		state:     state.New(code, settings.CountdownSeconds),
		sessions:  make(map[string]types.Session),
		actions:   make(chan func(), actionBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		onClosed:  onClosed,
	}
	r.phase.Store(state.PhaseWaiting)
	return r
}

// start 启动执行协程
func (r *Room) start() {
	go r.run()
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.actions:
			r.safeRun(fn)
		case <-r.quit:
			return
		}
	}
}

func (r *Room) safeRun(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogPanic(rec)
		}
	}()
	fn()
}

// exec 在执行协程中运行 fn 并等待完成
// 不能在执行协程内部调用
func (r *Room) exec(fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case r.actions <- task:
	case <-r.quit:
		return apperrors.ErrRoomClosed
	}

	select {
	case <-finished:
		return nil
	case <-r.done:
		select {
		case <-finished:
			return nil
		default:
			return apperrors.ErrRoomClosed
		}
	}
}

// post 投递 fn 而不等待，供计时器回调使用
func (r *Room) post(fn func()) {
	select {
	case r.actions <- fn:
	case <-r.quit:
	}
}

// Sync 等待此前投递的任务全部执行完毕
func (r *Room) Sync() error {
	return r.exec(func() {})
}

// Code 房间号
func (r *Room) Code() string { return r.code }

// CreatedAt 创建时间
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// PlayerCount 当前玩家数（无需进入执行协程）
func (r *Room) PlayerCount() int { return int(r.playerCount.Load()) }

// Phase 当前阶段（无需进入执行协程）
func (r *Room) Phase() state.Phase { return r.phase.Load().(state.Phase) }

// IsClosed 房间是否已关闭
func (r *Room) IsClosed() bool {
	select {
	case <-r.quit:
		return true
	default:
		return false
	}
}

// Snapshot 返回当前全量快照
func (r *Room) Snapshot() (protocol.GameStateDTO, error) {
	var snap protocol.GameStateDTO
	err := r.exec(func() { snap = r.state.Snapshot() })
	return snap, err
}

// Close 关闭房间并通知所有玩家
func (r *Room) Close(reason string) {
	if err := r.exec(func() { r.closeRoom(reason) }); err != nil {
		r.log.Debug().Err(err).Msg("room already closed")
	}
}

// sessionList 当前会话列表
func (r *Room) sessionList() []types.Session {
	list := make([]types.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	return list
}

// broadcast 投递给房间内所有会话
func (r *Room) broadcast(msg *protocol.Message, exceptPlayerIDs ...string) {
	r.deps.Fanout.Broadcast(r.sessionList(), msg, exceptPlayerIDs...)
}

// sendTo 投递给单个玩家
func (r *Room) sendTo(playerID string, msg *protocol.Message) {
	if s, ok := r.sessions[playerID]; ok {
		r.deps.Fanout.Send(s, msg)
	}
}

// changed 每次状态变更后通知观察者并刷新原子计数
func (r *Room) changed() {
	r.playerCount.Store(int32(r.state.PlayerCount()))
	r.phase.Store(r.state.Phase)
	r.deps.Observer.OnStateChanged(r.code, r.state.Snapshot())
}
