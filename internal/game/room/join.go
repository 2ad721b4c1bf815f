package room

import (
	"slices"

	"github.com/google/uuid"

	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/rule"
	"github.com/palemoky/europe-conquest/internal/game/state"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// 关闭原因
const (
	ReasonHostDisconnected = "Host disconnected"
	ReasonStale            = "Room expired"
	ReasonShutdown         = "Server shutting down"
)

// JoinRequest 加入 / 创建房间时提交的玩家资料
type JoinRequest struct {
	PlayerID string
	Name     string
	Color    string
	Country  *string
}

// JoinRequestFrom 从线上格式构建加入请求
func JoinRequestFrom(playerID string, info protocol.PlayerInfoInput) JoinRequest {
	return JoinRequest{
		PlayerID: playerID,
		Name:     info.Name,
		Color:    info.Color,
		Country:  info.SelectedCountry,
	}
}

// JoinResult 加入结果
type JoinResult struct {
	PlayerID    string
	HostID      string
	Reconnected bool
}

// Join 加入房间；同一玩家 ID 再次加入视为重连
func (r *Room) Join(s types.Session, req JoinRequest) (JoinResult, error) {
	var (
		res JoinResult
		err error
	)
	if execErr := r.exec(func() { res, err = r.admit(s, req, false) }); execErr != nil {
		return JoinResult{}, apperrors.ErrRoomNotFound
	}
	return res, err
}

// admit 在执行协程中（或房间发布前）加入玩家
func (r *Room) admit(s types.Session, req JoinRequest, created bool) (JoinResult, error) {
	if req.PlayerID != "" {
		if _, exists := r.state.Player(req.PlayerID); exists {
			return r.reconnect(s, req.PlayerID), nil
		}
	}

	if r.state.PlayerCount() >= r.settings.MaxPlayers {
		return JoinResult{}, apperrors.ErrRoomFull
	}

	id := req.PlayerID
	if id == "" {
		id = uuid.NewString()
	}

	country := req.Country
	if country != nil && *country == "" {
		country = nil
	}
	if country != nil {
		if owner, taken := r.state.SelectionOwner(*country, id); taken {
			r.log.Info().Str("player", id).Str("country", *country).Str("owner", owner).
				Msg("🚩 selected country already taken, joining without selection")
			country = nil
		}
	}

	p := state.NewPlayer(id, r.playerName(id, req.Name, created), r.pickColor(req.Color), country)
	r.state.AddPlayer(p)
	r.sessions[id] = s
	s.SetPlayerID(id)
	s.SetRoom(r.code)

	res := JoinResult{PlayerID: id, HostID: r.state.HostID}
	if created {
		r.deps.Fanout.Send(s, codec.MustNewMessage(protocol.MsgRoomCreated, protocol.RoomCreatedPayload{
			RoomCode: r.code,
			HostID:   res.HostID,
			PlayerID: id,
		}))
	} else {
		r.deps.Fanout.Send(s, codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
			RoomCode: r.code,
			HostID:   res.HostID,
			PlayerID: id,
		}))
	}
	r.deps.Fanout.Send(s, codec.MustNewMessage(protocol.MsgGameState, r.state.Snapshot()))
	r.broadcast(codec.MustNewMessage(protocol.MsgPlayerJoined, protocol.PlayerJoinedPayload{
		PlayerID:   id,
		PlayerInfo: p.Info(),
	}), id)

	r.log.Info().Str("player", id).Str("name", p.Name).Int("players", r.state.PlayerCount()).Msg("👤 player joined")
	r.deps.Observer.OnPlayerJoined(r.code, p.Info())
	r.changed()
	r.saveMeta()
	return res, nil
}

// reconnect 将已有玩家绑定到新会话，旧会话只解除关联不关闭
func (r *Room) reconnect(s types.Session, playerID string) JoinResult {
	if old, ok := r.sessions[playerID]; ok && old.GetID() != s.GetID() {
		old.SetRoom("")
	}
	r.sessions[playerID] = s
	s.SetPlayerID(playerID)
	s.SetRoom(r.code)

	r.deps.Fanout.Send(s, codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
		RoomCode: r.code,
		HostID:   r.state.HostID,
		PlayerID: playerID,
	}))
	r.deps.Fanout.Send(s, codec.MustNewMessage(protocol.MsgGameState, r.state.Snapshot()))

	r.log.Info().Str("player", playerID).Msg("📶 player reconnected")
	return JoinResult{PlayerID: playerID, HostID: r.state.HostID, Reconnected: true}
}

// Leave 会话离开房间（主动离开与断线走同一路径）
// 只有当前绑定该玩家的会话才能触发移除，重连后旧会话的断开会被忽略
func (r *Room) Leave(s types.Session) error {
	var err error
	if execErr := r.exec(func() { err = r.leave(s) }); execErr != nil {
		return nil
	}
	return err
}

func (r *Room) leave(s types.Session) error {
	playerID := s.GetPlayerID()
	current, ok := r.sessions[playerID]
	if !ok || current.GetID() != s.GetID() {
		return apperrors.ErrNotInRoom
	}

	if playerID == r.state.HostID {
		r.log.Info().Str("player", playerID).Msg("👑 host left, closing room")
		delete(r.sessions, playerID)
		s.SetRoom("")
		r.deps.Observer.OnPlayerLeft(r.code, playerID)
		r.closeRoom(ReasonHostDisconnected)
		return nil
	}

	r.state.RemovePlayer(playerID)
	delete(r.sessions, playerID)
	s.SetRoom("")

	r.broadcast(codec.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{PlayerID: playerID}))
	r.broadcast(codec.MustNewMessage(protocol.MsgGameState, r.state.Snapshot()))

	r.log.Info().Str("player", playerID).Int("players", r.state.PlayerCount()).Msg("👋 player left")
	r.deps.Observer.OnPlayerLeft(r.code, playerID)
	r.changed()
	r.saveMeta()

	if r.state.PlayerCount() == 0 {
		r.closeRoom(ReasonStale)
	}
	return nil
}

// closeRoom 通知剩余玩家、停止所有计时器并退出执行协程，只执行一次
func (r *Room) closeRoom(reason string) {
	r.closeOnce.Do(func() {
		r.stopTimers()
		r.broadcast(codec.MustNewMessage(protocol.MsgRoomClosed, protocol.RoomClosedPayload{Reason: reason}))
		for _, s := range r.sessions {
			s.SetRoom("")
		}
		clear(r.sessions)
		r.playerCount.Store(0)

		close(r.quit)
		r.log.Info().Str("reason", reason).Msg("🏠 room closed")
		if r.onClosed != nil {
			r.onClosed(r)
		}
	})
}

// playerName 未提供名称时按 ID 末四位生成
func (r *Room) playerName(id, name string, host bool) string {
	if name != "" {
		return name
	}
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	if host {
		return "Host " + suffix
	}
	return "Player " + suffix
}

// pickColor 优先使用请求的颜色（需在调色板中且未被占用），否则随机选择一个可用颜色
func (r *Room) pickColor(requested string) string {
	available := r.state.AvailableColors()
	if len(available) == 0 {
		return rule.Palette[0]
	}
	if slices.Contains(available, requested) {
		return requested
	}
	idx := int(r.deps.Random() * float64(len(available)))
	return available[min(idx, len(available)-1)]
}
