package room

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/state"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/types"
)

const (
	roomCodeLength  = 4                                      // 房间号长度
	roomCodeChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // 房间号字符集
	maxCodeAttempts = 16                                     // 生成房间号的最大尝试次数
)

// ManagerOptions 房间管理器参数
type ManagerOptions struct {
	Settings        Settings
	Deps            Deps
	Staleness       time.Duration // 空房间保留时长
	CleanupInterval time.Duration // 清理扫描间隔，0 表示不启动后台清理
	GenerateCode    func() string // 房间号生成器，测试中可替换
}

// RoomManager 房间管理器（房间号 → 房间）
type RoomManager struct {
	settings     Settings
	deps         Deps
	staleness    time.Duration
	generateCode func() string

	rooms map[string]*Room
	mu    sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRoomManager 创建房间管理器
func NewRoomManager(opts ManagerOptions) *RoomManager {
	rm := &RoomManager{
		settings:     opts.Settings,
		deps:         opts.Deps.withDefaults(),
		staleness:    opts.Staleness,
		generateCode: opts.GenerateCode,
		rooms:        make(map[string]*Room),
		stop:         make(chan struct{}),
	}
	if rm.generateCode == nil {
		rm.generateCode = randomRoomCode
	}

	// 启动房间清理协程
	if opts.CleanupInterval > 0 {
		go rm.cleanupLoop(opts.CleanupInterval)
	}
	return rm
}

// CreateRoom 创建房间并让创建者成为房主
// preferred 为客户端期望的房间号：已被占用时返回 ErrRoomCodeCollision；为空时随机生成
func (rm *RoomManager) CreateRoom(s types.Session, req JoinRequest, preferred string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code, err := rm.allocateCode(preferred)
	if err != nil {
		return nil, err
	}

	room := newRoom(code, rm.settings, rm.deps, rm.forget)
	// 房间发布前同步加入房主，保证房主一定是第一个玩家
	if _, err := room.admit(s, req, true); err != nil {
		return nil, err
	}
	room.start()
	rm.rooms[code] = room

	log.Info().Str("room", code).Str("host", room.state.HostID).Msg("🏠 room created")
	return room, nil
}

// allocateCode 在持有写锁时选出未被占用的房间号
func (rm *RoomManager) allocateCode(preferred string) (string, error) {
	if preferred != "" {
		code := strings.ToUpper(preferred)
		if !validRoomCode(code) {
			return "", apperrors.ErrValidation
		}
		if _, exists := rm.rooms[code]; exists {
			return "", apperrors.ErrRoomCodeCollision
		}
		return code, nil
	}

	for range maxCodeAttempts {
		code := rm.generateCode()
		if _, exists := rm.rooms[code]; !exists {
			return code, nil
		}
		log.Debug().Str("room", code).Msg("room code collision, retrying")
	}
	log.Warn().Int("attempts", maxCodeAttempts).Msg("❌ could not allocate a free room code")
	return "", apperrors.ErrCreateFailed
}

// JoinRoom 加入房间
func (rm *RoomManager) JoinRoom(s types.Session, code string, req JoinRequest) (*Room, JoinResult, error) {
	room := rm.GetRoom(code)
	if room == nil {
		return nil, JoinResult{}, apperrors.ErrRoomNotFound
	}
	res, err := room.Join(s, req)
	if err != nil {
		return nil, JoinResult{}, err
	}
	return room, res, nil
}

// GetRoom 获取房间，房间号大小写不敏感
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[strings.ToUpper(code)]
}

// RemoveRoom 删除并关闭房间
func (rm *RoomManager) RemoveRoom(code string, reason string) {
	room := rm.GetRoom(code)
	if room == nil {
		return
	}
	room.Close(reason)
	rm.forget(room)
}

// forget 房间关闭回调，只删除同一实例
func (rm *RoomManager) forget(r *Room) {
	rm.mu.Lock()
	current, ok := rm.rooms[r.code]
	removed := ok && current == r
	if removed {
		delete(rm.rooms, r.code)
	}
	rm.mu.Unlock()

	if removed && rm.deps.Store != nil {
		rm.deps.Store.DeleteRoom(r.code)
	}
}

// GetRoomList 获取可加入的房间列表（按房间号排序）
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]protocol.RoomListItem, 0, len(rm.rooms))
	for code, room := range rm.rooms {
		count := room.PlayerCount()
		if count >= rm.settings.MaxPlayers || room.IsClosed() {
			continue
		}
		rooms = append(rooms, protocol.RoomListItem{
			RoomCode:    code,
			PlayerCount: count,
			MaxPlayers:  rm.settings.MaxPlayers,
			Phase:       string(room.Phase()),
		})
	}
	slices.SortFunc(rooms, func(a, b protocol.RoomListItem) int { return strings.Compare(a.RoomCode, b.RoomCode) })
	return rooms
}

// RoomCount 当前房间数
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// GetActiveGamesCount 获取进行中的游戏数量（倒计时与对局中）
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		switch room.Phase() {
		case state.PhaseCountdown, state.PhasePlaying:
			count++
		}
	}
	return count
}

// cleanupLoop 定期清理空置过久的房间
func (rm *RoomManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.Sweep(time.Now())
		case <-rm.stop:
			return
		}
	}
}

// Sweep 删除没有玩家且创建时间早于 now-staleness 的房间，返回删除数量
func (rm *RoomManager) Sweep(now time.Time) int {
	rm.mu.RLock()
	var stale []*Room
	for _, room := range rm.rooms {
		if room.PlayerCount() == 0 && now.Sub(room.CreatedAt()) > rm.staleness {
			stale = append(stale, room)
		}
	}
	rm.mu.RUnlock()

	// 关闭房间会回调 forget 获取写锁，不能在持锁时进行
	for _, room := range stale {
		room.Close(ReasonStale)
		rm.forget(room)
		log.Info().Str("room", room.Code()).Msg("🧹 stale room removed")
	}
	return len(stale)
}

// Shutdown 停止清理协程并关闭所有房间
func (rm *RoomManager) Shutdown() {
	rm.stopOnce.Do(func() { close(rm.stop) })

	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.RUnlock()

	for _, room := range rooms {
		room.Close(ReasonShutdown)
		rm.forget(room)
	}
}

// randomRoomCode 生成随机房间号
func randomRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
	}
	return string(code)
}

func validRoomCode(code string) bool {
	if len(code) != roomCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(roomCodeChars, c) {
			return false
		}
	}
	return true
}
