package broadcast

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/types"
)

// FallbackStore 最近一次全量快照的缓存
// 实现必须不阻塞，并按提交顺序落地同一房间的写入（storage.Writer）
type FallbackStore interface {
	SaveFallback(roomCode string, rec *protocol.FallbackRecord)
}

// SyncBroadcaster 把同一条消息投递给房间内的所有会话
// 每个会话的投递都是非阻塞的，失败的会话只被关闭，不影响其他会话
type SyncBroadcaster struct {
	store FallbackStore
	clock func() time.Time
	log   zerolog.Logger
}

// Option 构造选项
type Option func(*SyncBroadcaster)

// WithFallbackStore 在每次状态变化后缓存全量快照
func WithFallbackStore(store FallbackStore) Option {
	return func(b *SyncBroadcaster) { b.store = store }
}

// WithClock 替换时钟（测试用）
func WithClock(clock func() time.Time) Option {
	return func(b *SyncBroadcaster) { b.clock = clock }
}

// New 创建广播器
func New(opts ...Option) *SyncBroadcaster {
	b := &SyncBroadcaster{
		clock: time.Now,
		log:   logger.Component("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Broadcast 发送给所有会话，exceptPlayerIDs 中的玩家除外
func (b *SyncBroadcaster) Broadcast(sessions []types.Session, msg *protocol.Message, exceptPlayerIDs ...string) {
	for _, s := range sessions {
		if s == nil || slices.Contains(exceptPlayerIDs, s.GetPlayerID()) {
			continue
		}
		b.Send(s, msg)
	}
}

// Send 发送给单个会话
func (b *SyncBroadcaster) Send(s types.Session, msg *protocol.Message) {
	if s == nil || msg == nil {
		return
	}
	if s.SendMessage(msg) {
		return
	}

	b.log.Warn().
		Str("session", s.GetID()).
		Str("player", s.GetPlayerID()).
		Str("room", s.GetRoom()).
		Str("type", string(msg.Type)).
		Msg("📭 消息投递失败，关闭会话")
	s.Close()
}

// OnStateChanged 把快照写入回退缓存，不阻塞调用方
func (b *SyncBroadcaster) OnStateChanged(roomCode string, snap protocol.GameStateDTO) {
	if b.store == nil {
		return
	}

	rec := &protocol.FallbackRecord{
		GameData:   snap,
		LastUpdate: b.clock().UnixMilli(),
		PlayerID:   snap.HostID,
	}

	b.store.SaveFallback(roomCode, rec)
}

func (b *SyncBroadcaster) OnPlayerJoined(string, protocol.PlayerInfo)          {}
func (b *SyncBroadcaster) OnPlayerLeft(string, string)                         {}
func (b *SyncBroadcaster) OnAttackResult(string, protocol.AttackResultPayload) {}
func (b *SyncBroadcaster) OnFortUpgraded(string, protocol.FortUpgradedPayload) {}
