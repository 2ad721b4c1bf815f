//go:build !production

package testutil

import (
	"sync"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// RecordingObserver 记录房间事件回调（并发安全）
type RecordingObserver struct {
	mu        sync.Mutex
	snapshots []protocol.GameStateDTO
	joined    []protocol.PlayerInfo
	left      []string
	attacks   []protocol.AttackResultPayload
	forts     []protocol.FortUpgradedPayload
}

func (o *RecordingObserver) OnStateChanged(_ string, snap protocol.GameStateDTO) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, snap)
}

func (o *RecordingObserver) OnPlayerJoined(_ string, p protocol.PlayerInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.joined = append(o.joined, p)
}

func (o *RecordingObserver) OnPlayerLeft(_ string, playerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.left = append(o.left, playerID)
}

func (o *RecordingObserver) OnAttackResult(_ string, ev protocol.AttackResultPayload) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attacks = append(o.attacks, ev)
}

func (o *RecordingObserver) OnFortUpgraded(_ string, ev protocol.FortUpgradedPayload) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.forts = append(o.forts, ev)
}

// LastSnapshot 最近一次状态快照
func (o *RecordingObserver) LastSnapshot() (protocol.GameStateDTO, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.snapshots) == 0 {
		return protocol.GameStateDTO{}, false
	}
	return o.snapshots[len(o.snapshots)-1], true
}

// Joined 加入事件
func (o *RecordingObserver) Joined() []protocol.PlayerInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]protocol.PlayerInfo(nil), o.joined...)
}

// Left 离开事件
func (o *RecordingObserver) Left() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.left...)
}

// Attacks 进攻事件
func (o *RecordingObserver) Attacks() []protocol.AttackResultPayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]protocol.AttackResultPayload(nil), o.attacks...)
}

// Forts 要塞升级事件
func (o *RecordingObserver) Forts() []protocol.FortUpgradedPayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]protocol.FortUpgradedPayload(nil), o.forts...)
}
