package client

import (
	"encoding/json"
	"time"

	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

// --- 便捷方法 ---

func (c *Client) playerInfo() protocol.PlayerInfoInput {
	return protocol.PlayerInfoInput{Name: c.opts.Name, Color: c.opts.Color}
}

// CreateRoom 创建房间，roomCode 为空时由服务端生成
func (c *Client) CreateRoom(roomCode string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgCreateRoom, protocol.CreateRoomPayload{
		PlayerID:   c.opts.PlayerID,
		PlayerInfo: c.playerInfo(),
		RoomCode:   roomCode,
	}))
}

// JoinRoom 加入房间
func (c *Client) JoinRoom(roomCode string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoinRoom, protocol.JoinRoomPayload{
		PlayerID:   c.opts.PlayerID,
		PlayerInfo: c.playerInfo(),
		RoomCode:   roomCode,
	}))
}

// LeaveRoom 离开房间
func (c *Client) LeaveRoom() error {
	c.setRoom("", "")
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeaveRoom, protocol.LeaveRoomPayload{
		PlayerID: c.opts.PlayerID,
	}))
}

func (c *Client) action(action protocol.PlayerAction, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = data
	}
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPlayerAction, protocol.PlayerActionPayload{
		Action:  action,
		Payload: raw,
	}))
}

// SelectCountry 选择国家，空字符串表示取消
func (c *Client) SelectCountry(country string) error {
	return c.action(protocol.ActionCountrySelected, protocol.CountrySelectedPayload{CountryName: country})
}

// Ready 准备 / 取消准备
func (c *Client) Ready(ready bool) error {
	return c.action(protocol.ActionPlayerReady, protocol.PlayerReadyPayload{IsReady: ready})
}

// StartCountdown 开始倒计时（仅房主）
func (c *Client) StartCountdown() error {
	return c.action(protocol.ActionStartCountdown, nil)
}

// EndGame 提前结束本局（仅房主）
func (c *Client) EndGame() error {
	return c.action(protocol.ActionEndGame, nil)
}

// Attack 进攻国家
func (c *Client) Attack(country string, attackTypeIndex int) error {
	return c.action(protocol.ActionAttackCountry, protocol.AttackCountryPayload{
		CountryName:     country,
		AttackTypeIndex: attackTypeIndex,
	})
}

// UpgradeFort 升级要塞
func (c *Client) UpgradeFort(country string) error {
	return c.action(protocol.ActionUpgradeFort, protocol.UpgradeFortPayload{CountryName: country})
}

// Signal 发送点对点信令，body 原样转发给目标玩家
func (c *Client) Signal(kind protocol.MessageType, target string, body json.RawMessage) error {
	p := protocol.SignalPayload{TargetPlayerID: target}
	switch kind {
	case protocol.MsgWebRTCOffer:
		p.Offer = body
	case protocol.MsgWebRTCAnswer:
		p.Answer = body
	default:
		p.Candidate = body
	}
	return c.SendMessage(codec.MustNewMessage(kind, p))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}
