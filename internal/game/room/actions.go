package room

import (
	"github.com/palemoky/europe-conquest/internal/apperrors"
	"github.com/palemoky/europe-conquest/internal/game/rule"
	"github.com/palemoky/europe-conquest/internal/game/state"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

// Unoccupied 无人占领的国家在进攻结果中的防守方标识
const Unoccupied = "unoccupied"

// do 在执行协程中运行返回错误的操作
func (r *Room) do(fn func() error) error {
	var err error
	if execErr := r.exec(func() { err = fn() }); execErr != nil {
		return execErr
	}
	return err
}

// SelectCountry 选择国家，空字符串取消选择；只允许在等待阶段
func (r *Room) SelectCountry(playerID, country string) error {
	return r.do(func() error {
		p, ok := r.state.Player(playerID)
		if !ok {
			return apperrors.ErrUnknownPlayer
		}
		if r.state.Phase != state.PhaseWaiting {
			return apperrors.ErrWrongPhase
		}

		if country == "" {
			p.SelectedCountry = nil
			p.IsReady = false
		} else {
			if _, taken := r.state.SelectionOwner(country, playerID); taken {
				return apperrors.ErrCountrySelectionConflict
			}
			c := country
			p.SelectedCountry = &c
		}

		r.log.Debug().Str("player", playerID).Str("country", country).Msg("🗺️ country selected")
		r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, r.state.PlayersUpdate(playerID)))
		r.changed()
		return nil
	})
}

// SetReady 准备 / 取消准备；准备前必须已选择国家
func (r *Room) SetReady(playerID string, ready bool) error {
	return r.do(func() error {
		p, ok := r.state.Player(playerID)
		if !ok {
			return apperrors.ErrUnknownPlayer
		}
		if r.state.Phase != state.PhaseWaiting {
			return apperrors.ErrWrongPhase
		}
		if ready && p.SelectedCountry == nil {
			return apperrors.ErrNoCountry
		}

		p.IsReady = ready
		r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, r.state.PlayersUpdate(playerID)))
		r.changed()
		return nil
	})
}

// Attack 进攻一个国家，费用无论成败都会扣除，随机数每次进攻只抽取一次
func (r *Room) Attack(playerID, country string, attackTypeIndex int) (protocol.AttackResultPayload, error) {
	var result protocol.AttackResultPayload
	err := r.do(func() error {
		var err error
		result, err = r.attack(playerID, country, attackTypeIndex)
		return err
	})
	return result, err
}

func (r *Room) attack(playerID, country string, attackTypeIndex int) (protocol.AttackResultPayload, error) {
	attacker, ok := r.state.Player(playerID)
	if !ok {
		return protocol.AttackResultPayload{}, apperrors.ErrUnknownPlayer
	}
	if r.state.Phase != state.PhasePlaying {
		return protocol.AttackResultPayload{}, apperrors.ErrWrongPhase
	}
	at, ok := rule.LookupAttackType(attackTypeIndex)
	if !ok {
		return protocol.AttackResultPayload{}, apperrors.ErrInvalidAttackType
	}
	defenderID, occupied := r.state.Provinces[country]
	if occupied && defenderID == playerID {
		return protocol.AttackResultPayload{}, apperrors.ErrAlreadyOwned
	}
	if attacker.Economy < at.Cost {
		return protocol.AttackResultPayload{}, apperrors.ErrInsufficientEconomy
	}

	attacker.Economy -= at.Cost
	fortLevel := r.state.FortLevel(country)
	finalChance := rule.FinalChance(at.BaseChance, fortLevel)
	success := r.deps.Random() < finalChance

	result := protocol.AttackResultPayload{
		AttackerID:      playerID,
		CountryName:     country,
		AttackTypeIndex: attackTypeIndex,
		AttackType:      at.Name,
		Success:         success,
		BaseChance:      at.BaseChance,
		FinalChance:     finalChance,
		FortLevel:       fortLevel,
		Defender:        Unoccupied,
		AttackerEconomy: attacker.Economy,
	}
	changedPlayers := []string{playerID}
	if occupied {
		result.Defender = defenderID
		if d, ok := r.state.Player(defenderID); ok {
			result.DefenderEconomy = d.Economy
		}
		changedPlayers = append(changedPlayers, defenderID)
	} else {
		result.DefenderEconomy = rule.GDPOrDefault(country)
	}

	update := r.state.PlayersUpdate(changedPlayers...)
	if success {
		r.state.Provinces[country] = playerID
		update.Provinces = map[string]string{country: playerID}
	}

	r.log.Info().
		Str("player", playerID).
		Str("country", country).
		Str("defender", result.Defender).
		Float64("chance", finalChance).
		Bool("success", success).
		Msg("⚔️ attack")

	r.broadcast(codec.MustNewMessage(protocol.MsgAttackResult, result))
	r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, update))
	r.deps.Observer.OnAttackResult(r.code, result)
	r.changed()
	return result, nil
}

// UpgradeFort 升级自己占领国家的要塞
func (r *Room) UpgradeFort(playerID, country string) (protocol.FortUpgradedPayload, error) {
	var event protocol.FortUpgradedPayload
	err := r.do(func() error {
		p, ok := r.state.Player(playerID)
		if !ok {
			return apperrors.ErrUnknownPlayer
		}
		if r.state.Phase != state.PhasePlaying {
			return apperrors.ErrWrongPhase
		}
		if r.state.Provinces[country] != playerID {
			return apperrors.ErrNotOwner
		}
		level := r.state.FortLevel(country)
		if level >= rule.MaxFortLevel {
			return apperrors.ErrFortMaxed
		}
		if p.Economy < rule.FortUpgradeCost {
			return apperrors.ErrInsufficientEconomy
		}

		p.Economy -= rule.FortUpgradeCost
		r.state.FortLevels[country] = level + 1

		event = protocol.FortUpgradedPayload{
			PlayerID:     playerID,
			CountryName:  country,
			NewFortLevel: level + 1,
			NewEconomy:   p.Economy,
		}
		update := r.state.PlayersUpdate(playerID)
		update.FortLevels = map[string]int{country: level + 1}

		r.log.Info().Str("player", playerID).Str("country", country).Int("level", level+1).Msg("🏰 fort upgraded")
		r.broadcast(codec.MustNewMessage(protocol.MsgFortUpgraded, event))
		r.broadcast(codec.MustNewMessage(protocol.MsgGameStateUpdate, update))
		r.deps.Observer.OnFortUpgraded(r.code, event)
		r.changed()
		return nil
	})
	return event, err
}

// Relay 将信令转发给同一房间的目标玩家，内容不做解析
func (r *Room) Relay(fromPlayerID, targetPlayerID string, kind protocol.MessageType, payload protocol.SignalRelayPayload) error {
	return r.do(func() error {
		if _, ok := r.sessions[fromPlayerID]; !ok {
			return apperrors.ErrNotInRoom
		}
		if _, ok := r.sessions[targetPlayerID]; !ok {
			return apperrors.ErrTargetNotFound
		}
		payload.FromPlayerID = fromPlayerID
		r.sendTo(targetPlayerID, codec.MustNewMessage(kind, payload))
		return nil
	})
}
