package handler

import (
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// handlePhaseRequest 房主阶段请求；update_game_state 中只有阶段字段会被采纳
func (h *Handler) handlePhaseRequest(s types.Session, c codec.PhaseRequestCommand) error {
	if c.Phase == "" {
		return nil
	}
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	return r.RequestPhase(s.GetPlayerID(), c.Phase)
}

// handleSelectCountry 处理选择国家
func (h *Handler) handleSelectCountry(s types.Session, c codec.SelectCountryCommand) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	return r.SelectCountry(s.GetPlayerID(), c.CountryName)
}

// handleReady 处理准备
func (h *Handler) handleReady(s types.Session, c codec.ReadyCommand) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	return r.SetReady(s.GetPlayerID(), c.IsReady)
}

// handleAttack 处理进攻，结果由房间广播
func (h *Handler) handleAttack(s types.Session, c codec.AttackCommand) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	_, err = r.Attack(s.GetPlayerID(), c.CountryName, c.AttackTypeIndex)
	return err
}

// handleUpgradeFort 处理要塞升级
func (h *Handler) handleUpgradeFort(s types.Session, c codec.UpgradeFortCommand) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	_, err = r.UpgradeFort(s.GetPlayerID(), c.CountryName)
	return err
}
