package room

import "github.com/palemoky/europe-conquest/internal/protocol"

// Observer 房间事件的外部消费者（渲染层、统计、回退缓存）
// 回调在房间执行协程中同步调用，实现不能阻塞，也不能回调房间方法
type Observer interface {
	OnStateChanged(roomCode string, snapshot protocol.GameStateDTO)
	OnPlayerJoined(roomCode string, player protocol.PlayerInfo)
	OnPlayerLeft(roomCode, playerID string)
	OnAttackResult(roomCode string, event protocol.AttackResultPayload)
	OnFortUpgraded(roomCode string, event protocol.FortUpgradedPayload)
}

// NopObserver 空实现，可嵌入以只覆盖部分回调
type NopObserver struct{}

func (NopObserver) OnStateChanged(string, protocol.GameStateDTO)        {}
func (NopObserver) OnPlayerJoined(string, protocol.PlayerInfo)          {}
func (NopObserver) OnPlayerLeft(string, string)                         {}
func (NopObserver) OnAttackResult(string, protocol.AttackResultPayload) {}
func (NopObserver) OnFortUpgraded(string, protocol.FortUpgradedPayload) {}

// Observers 依次通知多个观察者
type Observers []Observer

func (o Observers) OnStateChanged(code string, snap protocol.GameStateDTO) {
	for _, ob := range o {
		ob.OnStateChanged(code, snap)
	}
}

func (o Observers) OnPlayerJoined(code string, p protocol.PlayerInfo) {
	for _, ob := range o {
		ob.OnPlayerJoined(code, p)
	}
}

func (o Observers) OnPlayerLeft(code, playerID string) {
	for _, ob := range o {
		ob.OnPlayerLeft(code, playerID)
	}
}

func (o Observers) OnAttackResult(code string, ev protocol.AttackResultPayload) {
	for _, ob := range o {
		ob.OnAttackResult(code, ev)
	}
}

func (o Observers) OnFortUpgraded(code string, ev protocol.FortUpgradedPayload) {
	for _, ob := range o {
		ob.OnFortUpgraded(code, ev)
	}
}
