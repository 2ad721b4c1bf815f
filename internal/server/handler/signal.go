package handler

import (
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/types"
)

// handleSignal 转发 offer / answer / ice 候选给同房间的目标玩家
func (h *Handler) handleSignal(s types.Session, c codec.SignalCommand) error {
	r, err := h.currentRoom(s)
	if err != nil {
		return err
	}
	return r.Relay(s.GetPlayerID(), c.TargetPlayerID, c.Kind, protocol.SignalRelayPayload{
		Offer:     c.Offer,
		Answer:    c.Answer,
		Candidate: c.Candidate,
	})
}
