package room

import (
	"github.com/palemoky/europe-conquest/internal/server/storage"
)

// meta 将房间转换为可序列化的元数据（需在执行协程中调用）
func (r *Room) meta() *storage.RoomMeta {
	return &storage.RoomMeta{
		Code:        r.code,
		HostID:      r.state.HostID,
		Phase:       string(r.state.Phase),
		PlayerCount: r.state.PlayerCount(),
		MaxPlayers:  r.settings.MaxPlayers,
		CreatedAt:   r.createdAt.Unix(),
	}
}

// saveMeta 异步保存房间元数据
func (r *Room) saveMeta() {
	if r.deps.Store != nil {
		r.deps.Store.SaveRoom(r.code, r.meta())
	}
}
